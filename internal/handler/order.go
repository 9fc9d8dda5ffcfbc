package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/raditya/toko-backend/internal/domain/order"
)

type cartItemRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Weight   int             `json:"weight,omitempty"`
}

type checkoutRequest struct {
	Items           []cartItemRequest `json:"items"`
	DestinationID   string            `json:"destination_id"`
	Courier         string            `json:"courier"`
	ShippingAddress string            `json:"shipping_address"`
}

type checkoutResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	OrderID string `json:"orderId"`
}

// checkout is POST /products/orders.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.CartItem{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Weight:    item.Weight,
		}
	}

	result, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:          u.ID,
		Items:           items,
		DestinationID:   req.DestinationID,
		Courier:         req.Courier,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Success: true,
		Token:   result.Token,
		OrderID: result.OrderID,
	})
}

type userOrderResponse struct {
	ID             string                  `json:"id"`
	CreatedAt      time.Time               `json:"created_at"`
	Status         string                  `json:"status"`
	TotalAmount    float64                 `json:"total_amount"`
	SnapToken      *string                 `json:"snap_token"`
	TrackingNumber *string                 `json:"tracking_number"`
	Items          []userOrderItemResponse `json:"order_items"`
}

type userOrderItemResponse struct {
	ID              int64           `json:"id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase float64         `json:"price_at_purchase"`
	Product         productSnapshot `json:"products"`
}

type productSnapshot struct {
	Name     string   `json:"name"`
	ImageURL []string `json:"image_url"`
}

// myOrders is GET /products/orders/my-orders.
func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	orders, err := h.orders.OrdersOf(r.Context(), u.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Always an array, never null.
	resp := make([]userOrderResponse, len(orders))
	for i, o := range orders {
		items := make([]userOrderItemResponse, len(o.Items))
		for j, item := range o.Items {
			items[j] = userOrderItemResponse{
				ID:              item.ID,
				Quantity:        item.Quantity,
				PriceAtPurchase: item.PriceAtPurchase.InexactFloat64(),
				Product: productSnapshot{
					Name:     item.Product.Name,
					ImageURL: item.Product.ImageURLs,
				},
			}
		}
		resp[i] = userOrderResponse{
			ID:             o.ID,
			CreatedAt:      o.CreatedAt,
			Status:         string(o.Status),
			TotalAmount:    o.TotalAmount.InexactFloat64(),
			SnapToken:      o.SnapToken,
			TrackingNumber: o.TrackingNumber,
			Items:          items,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
}

type orderResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Status         string  `json:"status"`
	TotalAmount    float64 `json:"total_amount"`
	TrackingNumber *string `json:"tracking_number"`
}

type updateStatusResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    orderResponse `json:"data"`
}

// updateOrderStatus is PATCH /products/order-status/{id}.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), order.UpdateStatusRequest{
		OrderID:        chi.URLParam(r, "id"),
		Status:         order.Status(req.Status),
		TrackingNumber: req.TrackingNumber,
		UserID:         u.ID,
		Admin:          u.IsAdmin(),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateStatusResponse{
		Success: true,
		Message: "order status updated to " + string(o.Status),
		Data: orderResponse{
			ID:             o.ID,
			UserID:         o.UserID,
			Status:         string(o.Status),
			TotalAmount:    o.TotalAmount.InexactFloat64(),
			TrackingNumber: o.TrackingNumber,
		},
	})
}

type statsResponse struct {
	Stats  statsSummary         `json:"stats"`
	Orders []adminOrderResponse `json:"orders"`
}

type statsSummary struct {
	TotalOrders   int     `json:"totalOrders"`
	TotalRevenue  float64 `json:"totalRevenue"`
	PendingOrders int     `json:"pendingOrders"`
}

type adminOrderResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	FullName       string    `json:"full_name"`
	TotalAmount    float64   `json:"total_amount"`
	Status         string    `json:"status"`
	TrackingNumber *string   `json:"tracking_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// stats is GET /products/stats (admin only).
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	agg, orders, err := h.orders.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := statsResponse{
		Stats: statsSummary{
			TotalOrders:   agg.TotalOrders,
			TotalRevenue:  agg.TotalRevenue.InexactFloat64(),
			PendingOrders: agg.PendingOrders,
		},
		Orders: make([]adminOrderResponse, len(orders)),
	}
	for i, o := range orders {
		resp.Orders[i] = adminOrderResponse{
			ID:             o.ID,
			UserID:         o.UserID,
			FullName:       o.UserFullName,
			TotalAmount:    o.TotalAmount.InexactFloat64(),
			Status:         string(o.Status),
			TrackingNumber: o.TrackingNumber,
			CreatedAt:      o.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
