package httpapi

import (
	"errors"
	"net/http"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/money"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActionExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrStockExceeded),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrMissingClient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  err.Error(),
			"fields": verr.Fields,
		})
		return
	}
	writeError(w, statusFor(err), err)
}

// writeResult writes payload on success. Persistence warnings keep the
// success status and are reported in a "warning" field.
func writeResult(w http.ResponseWriter, status int, payload map[string]any, err error) {
	if err != nil && !domain.IsWarning(err) {
		writeServiceError(w, err)
		return
	}
	if err != nil {
		payload["warning"] = err.Error()
	}
	writeJSON(w, status, payload)
}
