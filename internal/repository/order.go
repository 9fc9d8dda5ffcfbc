package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raditya/toko-backend/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, total_amount, shipping_cost, destination_id, courier, shipping_address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	attachTokenSQL = `UPDATE orders SET snap_token = $2 WHERE id = $1`

	getOrderSQL = `SELECT id, user_id, total_amount, shipping_cost, destination_id, courier,
			shipping_address, status, snap_token, tracking_number, created_at
		FROM orders WHERE id = $1`

	updateStatusFromSQL = `UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`

	setStatusSQL = `UPDATE orders
		SET status = $2, tracking_number = COALESCE($3, tracking_number)
		WHERE id = $1`

	listUserOrdersSQL = `SELECT id, created_at, status, total_amount, snap_token, tracking_number
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listUserOrderItemsSQL = `SELECT oi.id, oi.order_id, oi.quantity, oi.price_at_purchase,
			COALESCE(p.name, ''), COALESCE(p.image_url, '{}')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`

	listAllOrdersSQL = `SELECT o.id, o.user_id, COALESCE(pr.full_name, ''), o.total_amount,
			o.status, o.tracking_number, o.created_at
		FROM orders o
		LEFT JOIN profiles pr ON pr.id = o.user_id
		ORDER BY o.created_at DESC`

	aggregateOrdersSQL = `SELECT count(*),
			COALESCE(sum(total_amount) FILTER (WHERE status IN ('paid', 'completed')), 0),
			count(*) FILTER (WHERE status = 'pending')
		FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and its lines in a single transaction.
// Lines go in through COPY; a failure anywhere rolls the whole order back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.TotalAmount, o.ShippingCost,
		o.DestinationID, o.Courier, o.ShippingAddress, o.Status,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	rows := make([][]any, len(o.Lines))
	for i, line := range o.Lines {
		rows[i] = []any{o.ID, line.ProductID, line.Quantity, line.PriceAtPurchase}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"order_id", "product_id", "quantity", "price_at_purchase"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("creating order items for %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AttachToken stores the gateway token on the order.
func (r *OrderRepository) AttachToken(ctx context.Context, orderID, token string) error {
	tag, err := r.pool.Exec(ctx, attachTokenSQL, orderID, token)
	if err != nil {
		return fmt.Errorf("attaching token to order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{OrderID: orderID}
	}
	return nil
}

// GetByID loads an order header.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.NotFoundError{OrderID: orderID}
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	return &o, nil
}

// UpdateStatusFrom performs the compare-and-swap status write. Zero rows
// affected means another writer moved the order first.
func (r *OrderRepository) UpdateStatusFrom(ctx context.Context, orderID string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateStatusFromSQL, orderID, to, from)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStaleStatus
	}
	return nil
}

// SetStatus overwrites the status unconditionally (administrative path).
func (r *OrderRepository) SetStatus(ctx context.Context, orderID string, to order.Status, trackingNumber *string) error {
	tag, err := r.pool.Exec(ctx, setStatusSQL, orderID, to, trackingNumber)
	if err != nil {
		return fmt.Errorf("setting status of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return &order.NotFoundError{OrderID: orderID}
	}
	return nil
}

// ListByUser returns the user's orders with nested items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.UserOrder, error) {
	rows, err := r.pool.Query(ctx, listUserOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.UserOrder, error) {
		var o order.UserOrder
		err := row.Scan(&o.ID, &o.CreatedAt, &o.Status, &o.TotalAmount, &o.SnapToken, &o.TrackingNumber)
		o.Items = []order.UserOrderItem{}
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	if len(orders) == 0 {
		return []order.UserOrder{}, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, listUserOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			item    order.UserOrderItem
			orderID string
		)
		err := itemRows.Scan(&item.ID, &orderID, &item.Quantity, &item.PriceAtPurchase,
			&item.Product.Name, &item.Product.ImageURLs)
		if err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}

	return orders, nil
}

// ListAll returns every order with the owner's profile name, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.AdminOrder, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.AdminOrder, error) {
		var o order.AdminOrder
		err := row.Scan(&o.ID, &o.UserID, &o.UserFullName, &o.TotalAmount,
			&o.Status, &o.TrackingNumber, &o.CreatedAt)
		return o, err
	})
}

// Aggregate computes the admin dashboard summary.
func (r *OrderRepository) Aggregate(ctx context.Context) (*order.Aggregates, error) {
	var agg order.Aggregates
	err := r.pool.QueryRow(ctx, aggregateOrdersSQL).
		Scan(&agg.TotalOrders, &agg.TotalRevenue, &agg.PendingOrders)
	if err != nil {
		return nil, fmt.Errorf("aggregating orders: %w", err)
	}
	return &agg, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.ShippingCost, &o.DestinationID,
		&o.Courier, &o.ShippingAddress, &o.Status, &o.SnapToken, &o.TrackingNumber,
		&o.CreatedAt,
	)
	return o, err
}
