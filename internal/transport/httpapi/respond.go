package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// errorResponse — единый JSON-конверт ошибок API.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorResponse{Error: code, Message: message, Details: details})
}

// writeError переводит доменные ошибки в HTTP-статусы.
// Неожиданные ошибки отдаются как 500 с обезличенным телом; детали только в логах.
func writeError(logger *log.Entry, w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeErrorBody(w, http.StatusConflict, "insufficient_stock", stockErr.Error(), map[string]any{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
		return
	}

	var transErr *domain.InvalidTransitionError
	if errors.As(err, &transErr) {
		writeErrorBody(w, http.StatusBadRequest, "invalid_transition", transErr.Error(), map[string]any{
			"from": transErr.From,
			"to":   transErr.To,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrReviewNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrReviewNotEligible):
		writeErrorBody(w, http.StatusNotFound, "not_eligible", err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateReview):
		writeErrorBody(w, http.StatusConflict, "duplicate_review", err.Error(), nil)
	case domain.IsIdempotencyConflict(err):
		writeErrorBody(w, http.StatusConflict, "idempotency_conflict", err.Error(), nil)
	case errors.Is(err, domain.ErrStatusConflict):
		writeErrorBody(w, http.StatusConflict, "status_conflict", err.Error(), nil)
	case errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrCustomerDetailsRequired),
		errors.Is(err, domain.ErrPaymentMethodRequired),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrTotalsMismatch),
		errors.Is(err, domain.ErrRatingOutOfRange),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrOrderRefRequired):
		writeErrorBody(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		logger.WithError(err).Error("unhandled api error")
		writeErrorBody(w, http.StatusInternalServerError, "internal", "internal server error", nil)
	}
}
