package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raditya/toko-backend/internal/domain/product"
)

// --- Mock implementations ---

type statusWrite struct {
	orderID string
	from    Status
	to      Status
}

type mockOrderRepo struct {
	orders map[string]*Order

	lastCreated  *Order
	tokens       map[string]string
	cas          []statusWrite
	overrides    []statusWrite
	lastTracking *string

	createErr error
	attachErr error
	getErr    error
	casErr    error
	setErr    error
}

func newOrderRepo(orders ...*Order) *mockOrderRepo {
	byID := make(map[string]*Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	return &mockOrderRepo{orders: byID, tokens: make(map[string]string)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastCreated = o
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) AttachToken(_ context.Context, orderID, token string) error {
	if m.attachErr != nil {
		return m.attachErr
	}
	m.tokens[orderID] = token
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, orderID string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, &NotFoundError{OrderID: orderID}
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateStatusFrom(_ context.Context, orderID string, from, to Status) error {
	if m.casErr != nil {
		return m.casErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return &NotFoundError{OrderID: orderID}
	}
	if o.Status != from {
		return ErrStaleStatus
	}
	o.Status = to
	m.cas = append(m.cas, statusWrite{orderID: orderID, from: from, to: to})
	return nil
}

func (m *mockOrderRepo) SetStatus(_ context.Context, orderID string, to Status, trackingNumber *string) error {
	if m.setErr != nil {
		return m.setErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return &NotFoundError{OrderID: orderID}
	}
	m.overrides = append(m.overrides, statusWrite{orderID: orderID, from: o.Status, to: to})
	m.lastTracking = trackingNumber
	o.Status = to
	if trackingNumber != nil {
		o.TrackingNumber = trackingNumber
	}
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]UserOrder, error) {
	out := []UserOrder{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, UserOrder{ID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount})
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]AdminOrder, error) {
	out := []AdminOrder{}
	for _, o := range m.orders {
		out = append(out, AdminOrder{ID: o.ID, UserID: o.UserID, Status: o.Status})
	}
	return out, nil
}

func (m *mockOrderRepo) Aggregate(_ context.Context) (*Aggregates, error) {
	agg := &Aggregates{TotalRevenue: decimal.Zero}
	for _, o := range m.orders {
		agg.TotalOrders++
		switch o.Status {
		case StatusPaid, StatusCompleted:
			agg.TotalRevenue = agg.TotalRevenue.Add(o.TotalAmount)
		case StatusPending:
			agg.PendingOrders++
		}
	}
	return agg, nil
}

type mockStockRepo struct {
	decrements map[string]int
	failFor    map[string]error
}

func newStockRepo() *mockStockRepo {
	return &mockStockRepo{decrements: make(map[string]int), failFor: make(map[string]error)}
}

func (m *mockStockRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockStockRepo) GetByID(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockStockRepo) DecrementStock(_ context.Context, id string, quantity int) error {
	if err, ok := m.failFor[id]; ok {
		return err
	}
	m.decrements[id] += quantity
	return nil
}

type mockQuoter struct {
	quote *Quote
	err   error

	lastDestination string
	lastWeight      int
	lastCourier     string
}

func (m *mockQuoter) Quote(_ context.Context, destinationID string, weight int, courier string) (*Quote, error) {
	m.lastDestination = destinationID
	m.lastWeight = weight
	m.lastCourier = courier
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

type mockIssuer struct {
	token string
	err   error

	lastReq *IssueRequest
}

func (m *mockIssuer) IssueToken(_ context.Context, req IssueRequest) (string, error) {
	m.lastReq = &req
	if m.err != nil {
		return "", m.err
	}
	return m.token, nil
}

// --- Helpers ---

func regQuote(cost int64) *Quote {
	return &Quote{
		Cost:        decimal.NewFromInt(cost),
		CourierName: "jne",
		Service:     "REG",
	}
}

func validCheckout(items ...CartItem) CheckoutRequest {
	return CheckoutRequest{
		UserID:          "user-1",
		Items:           items,
		DestinationID:   "1234",
		Courier:         "jne",
		ShippingAddress: "Jl. Merdeka No. 7, Bandung",
	}
}

// --- Tests ---

func TestCheckout_MissingUser(t *testing.T) {
	svc := NewService(newOrderRepo(), newStockRepo(), &mockQuoter{}, &mockIssuer{})

	req := validCheckout(CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1})
	req.UserID = ""
	_, err := svc.Checkout(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingUser)
}

func TestCheckout_MissingDestination(t *testing.T) {
	svc := NewService(newOrderRepo(), newStockRepo(), &mockQuoter{}, &mockIssuer{})

	req := validCheckout(CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1})
	req.DestinationID = ""
	_, err := svc.Checkout(context.Background(), req)
	require.ErrorIs(t, err, ErrMissingDestination)
}

func TestCheckout_EmptyItems(t *testing.T) {
	repo := newOrderRepo()
	stock := newStockRepo()
	quoter := &mockQuoter{quote: regQuote(9000)}
	svc := NewService(repo, stock, quoter, &mockIssuer{token: "tok"})

	_, err := svc.Checkout(context.Background(), validCheckout())
	require.ErrorIs(t, err, ErrEmptyItems)

	// Nothing left the validation stage: no quote, no order, no stock touch.
	assert.Empty(t, quoter.lastCourier)
	assert.Nil(t, repo.lastCreated)
	assert.Empty(t, stock.decrements)
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	svc := NewService(newOrderRepo(), newStockRepo(), &mockQuoter{quote: regQuote(9000)}, &mockIssuer{token: "tok"})

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 0},
	))

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestCheckout_Success(t *testing.T) {
	repo := newOrderRepo()
	stock := newStockRepo()
	quoter := &mockQuoter{quote: regQuote(9000)}
	issuer := &mockIssuer{token: "snap-token-abc"}
	svc := NewService(repo, stock, quoter, issuer)

	res, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Name: "Kopi Gayo", Price: decimal.NewFromInt(10000), Quantity: 2},
	))
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)
	assert.Equal(t, "snap-token-abc", res.Token)

	// Total = 2 * 10000 + 9000 shipping.
	o := repo.lastCreated
	require.NotNil(t, o)
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(29000)), "total %s", o.TotalAmount)
	assert.True(t, o.ShippingCost.Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "jne - REG", o.Courier)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "p1", o.Lines[0].ProductID)
	assert.Equal(t, 2, o.Lines[0].Quantity)

	// Stock reserved and token attached.
	assert.Equal(t, 2, stock.decrements["p1"])
	assert.Equal(t, "snap-token-abc", repo.tokens[res.OrderID])

	// Weight defaulted to 1000g per unit.
	assert.Equal(t, 2000, quoter.lastWeight)
	assert.Equal(t, "1234", quoter.lastDestination)
}

func TestCheckout_ExplicitWeight(t *testing.T) {
	quoter := &mockQuoter{quote: regQuote(9000)}
	svc := NewService(newOrderRepo(), newStockRepo(), quoter, &mockIssuer{token: "tok"})

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 3, Weight: 250},
	))
	require.NoError(t, err)
	assert.Equal(t, 750, quoter.lastWeight)
}

func TestCheckout_QuoteFailureHasNoSideEffects(t *testing.T) {
	repo := newOrderRepo()
	stock := newStockRepo()
	quoter := &mockQuoter{err: &UpstreamError{Provider: "rajaongkir", Err: errors.New("no services")}}
	svc := NewService(repo, stock, quoter, &mockIssuer{token: "tok"})

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1},
	))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "rajaongkir", upErr.Provider)
	assert.Nil(t, repo.lastCreated)
	assert.Empty(t, stock.decrements)
}

func TestCheckout_StockFailureDoesNotAbort(t *testing.T) {
	repo := newOrderRepo()
	stock := newStockRepo()
	stock.failFor["p1"] = product.ErrInsufficientStock
	svc := NewService(repo, stock, &mockQuoter{quote: regQuote(5000)}, &mockIssuer{token: "tok"})

	res, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 5},
		CartItem{ProductID: "p2", Price: decimal.NewFromInt(200), Quantity: 1},
	))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	// The failing line is skipped, the rest is still reserved.
	assert.Equal(t, 0, stock.decrements["p1"])
	assert.Equal(t, 1, stock.decrements["p2"])
}

func TestCheckout_IssuerFailureLeavesPendingOrder(t *testing.T) {
	repo := newOrderRepo()
	issuer := &mockIssuer{err: &UpstreamError{Provider: "midtrans", Err: errors.New("503")}}
	svc := NewService(repo, newStockRepo(), &mockQuoter{quote: regQuote(5000)}, issuer)

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1},
	))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)

	// The order row was written before the gateway call and stays pending
	// without a token.
	require.NotNil(t, repo.lastCreated)
	assert.Equal(t, StatusPending, repo.lastCreated.Status)
	assert.Empty(t, repo.tokens)
}

func TestCheckout_GatewayGrossEqualsLineSum(t *testing.T) {
	issuer := &mockIssuer{token: "tok"}
	svc := NewService(newOrderRepo(), newStockRepo(), &mockQuoter{quote: regQuote(9000)}, issuer)

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Name: "Kopi", Price: decimal.RequireFromString("10000.50"), Quantity: 2},
		CartItem{ProductID: "p2", Name: "Dripper", Price: decimal.NewFromInt(145000), Quantity: 1},
	))
	require.NoError(t, err)

	req := issuer.lastReq
	require.NotNil(t, req)
	require.Len(t, req.Lines, 3) // two items plus the shipping-fee line

	sum := decimal.Zero
	for _, line := range req.Lines {
		sum = sum.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	assert.True(t, req.GrossAmount.Equal(sum), "gross %s != line sum %s", req.GrossAmount, sum)

	// Fractional unit prices are rounded before declaration.
	assert.True(t, req.Lines[0].Price.Equal(decimal.NewFromInt(10001)))

	last := req.Lines[len(req.Lines)-1]
	assert.Equal(t, "shipping-fee", last.ID)
	assert.True(t, last.Price.Equal(decimal.NewFromInt(9000)))
}

func TestCheckout_ItemNameFallbackAndTruncation(t *testing.T) {
	issuer := &mockIssuer{token: "tok"}
	svc := NewService(newOrderRepo(), newStockRepo(), &mockQuoter{quote: regQuote(1000)}, issuer)

	long := "Premium Single Origin Arabica Coffee Beans From The Gayo Highlands"
	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Name: "", Price: decimal.NewFromInt(100), Quantity: 1},
		CartItem{ProductID: "p2", Name: long, Price: decimal.NewFromInt(100), Quantity: 1},
	))
	require.NoError(t, err)

	req := issuer.lastReq
	require.NotNil(t, req)
	assert.Equal(t, "Product", req.Lines[0].Name)
	assert.Len(t, []rune(req.Lines[1].Name), 50)
}

func TestCheckout_CreateFailureAborts(t *testing.T) {
	repo := newOrderRepo()
	repo.createErr = errors.New("connection refused")
	stock := newStockRepo()
	issuer := &mockIssuer{token: "tok"}
	svc := NewService(repo, stock, &mockQuoter{quote: regQuote(1000)}, issuer)

	_, err := svc.Checkout(context.Background(), validCheckout(
		CartItem{ProductID: "p1", Price: decimal.NewFromInt(100), Quantity: 1},
	))
	require.Error(t, err)
	assert.Empty(t, stock.decrements)
	assert.Nil(t, issuer.lastReq)
}
