package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/raditya/toko-backend/internal/domain/order"
)

type webhookRequest struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// webhook is POST /products/midtrans-webhook. Once the payload is parsed
// (and, when enabled, its signature verified) the delivery is always
// acknowledged with 200: the gateway retries aggressively on anything else,
// so store failures are logged instead of surfaced.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if h.cfg.VerifyWebhookSignature &&
		!h.signatures.ValidSignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey) {
		zctx.From(r.Context()).Warn("webhook signature mismatch",
			zap.String("order_id", req.OrderID))
		writeMessage(w, http.StatusForbidden, "invalid signature")
		return
	}

	err := h.reconciler.Apply(r.Context(), order.Notification{
		OrderID:           req.OrderID,
		TransactionStatus: req.TransactionStatus,
		FraudStatus:       req.FraudStatus,
		StatusCode:        req.StatusCode,
		GrossAmount:       req.GrossAmount,
		SignatureKey:      req.SignatureKey,
	})
	if err != nil {
		// Acknowledge anyway; the failed write needs operator attention,
		// not a gateway retry storm.
		zctx.From(r.Context()).Error("webhook reconciliation failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
	}

	writeMessage(w, http.StatusOK, "Webhook processed")
}
