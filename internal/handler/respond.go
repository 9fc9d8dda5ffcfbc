package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/raditya/toko-backend/internal/domain/order"
	"github.com/raditya/toko-backend/internal/domain/product"
)

// messageResponse is the generic error body: {"message": "..."}.
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best effort: the status is already committed.
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps domain errors onto the HTTP taxonomy: validation 400,
// authorization 403, not found 404, everything else 500. Upstream and
// internal details stay in the log, not the response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		writeMessage(w, http.StatusBadRequest, err.Error())

	case isAuthorizationError(err):
		writeMessage(w, http.StatusForbidden, err.Error())

	case isNotFoundError(err):
		writeMessage(w, http.StatusNotFound, err.Error())

	default:
		var upstream *order.UpstreamError
		if errors.As(err, &upstream) {
			zctx.From(r.Context()).Error("upstream failure",
				zap.String("provider", upstream.Provider),
				zap.Error(err),
			)
			writeMessage(w, http.StatusInternalServerError, "upstream service unavailable")
			return
		}

		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	var iq *order.InvalidQuantityError
	return errors.Is(err, order.ErrEmptyItems) ||
		errors.Is(err, order.ErrMissingDestination) ||
		errors.As(err, &iq)
}

func isAuthorizationError(err error) bool {
	var (
		authz *order.AuthorizationError
		trans *order.TransitionError
	)
	return errors.As(err, &authz) || errors.As(err, &trans)
}

func isNotFoundError(err error) bool {
	var nf *order.NotFoundError
	return errors.As(err, &nf) || errors.Is(err, product.ErrNotFound)
}
