package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type shippingCostRequest struct {
	Items         []cartItemRequest `json:"items"`
	DestinationID string            `json:"destination_id"`
	Courier       string            `json:"courier"`
}

type shippingCostResponse struct {
	Success bool    `json:"success"`
	Cost    float64 `json:"cost"`
	Service string  `json:"service"`
}

type shippingErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// shippingCost is POST /products/shipping/cost: a quote-only call the
// storefront uses before checkout.
func (h *Handler) shippingCost(w http.ResponseWriter, r *http.Request) {
	var req shippingCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	weight := 0
	for _, item := range req.Items {
		w := item.Weight
		if w == 0 {
			w = 1000
		}
		weight += w * item.Quantity
	}

	quote, err := h.shipping.Quote(r.Context(), req.DestinationID, weight, req.Courier)
	if err != nil {
		zctx.From(r.Context()).Error("shipping quote failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, shippingErrorResponse{
			Success: false,
			Message: "failed to calculate shipping cost",
		})
		return
	}

	writeJSON(w, http.StatusOK, shippingCostResponse{
		Success: true,
		Cost:    quote.Cost.InexactFloat64(),
		Service: quote.Service,
	})
}

// provinces is GET /products/shipping/provinces. On provider failure the
// storefront expects an empty array, not an error object.
func (h *Handler) provinces(w http.ResponseWriter, r *http.Request) {
	data, err := h.shipping.Provinces(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("province lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, []any{})
		return
	}
	writeRaw(w, data)
}

// cities is GET /products/shipping/cities/{id}.
func (h *Handler) cities(w http.ResponseWriter, r *http.Request) {
	data, err := h.shipping.Cities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		zctx.From(r.Context()).Error("city lookup failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "failed to fetch cities")
		return
	}
	writeRaw(w, data)
}

// districts is GET /products/shipping/districts/{id}.
func (h *Handler) districts(w http.ResponseWriter, r *http.Request) {
	data, err := h.shipping.Districts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		zctx.From(r.Context()).Error("district lookup failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "failed to fetch districts")
		return
	}
	writeRaw(w, data)
}

func writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
