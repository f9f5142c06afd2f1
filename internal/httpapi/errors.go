package httpapi

import (
	"errors"
	"net/http"

	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/checkout"
	"lafavorita/backend/internal/inventory"
	"lafavorita/backend/internal/promo"
	"lafavorita/backend/internal/report"
	"lafavorita/backend/internal/service"
	"lafavorita/backend/internal/store"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNoActor),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, auth.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, auth.ErrUnknownUser),
		errors.Is(err, auth.ErrRecoverySessionGone):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, service.ErrDuplicateUsername),
		errors.Is(err, service.ErrSelfDelete),
		errors.Is(err, service.ErrLastAdmin),
		errors.Is(err, promo.ErrBelowCost),
		errors.Is(err, auth.ErrRecoveryStepMismatch):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrInsufficientPayment),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, auth.ErrWrongAnswers),
		errors.Is(err, auth.ErrNoSecurityQuestions),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInvalid),
		errors.Is(err, inventory.ErrInvalidProduct),
		errors.Is(err, promo.ErrInvalidPercent),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidEmployee),
		errors.Is(err, service.ErrInvalidDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error to its status. Below-cost and
// payment errors carry the figures the operator needs to decide.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var below *promo.BelowCostError
	if errors.As(err, &below) {
		writeJSON(w, status, map[string]any{
			"error": err.Error(),
			"warning": map[string]any{
				"price":       below.Price,
				"newPrice":    below.NewPrice,
				"costPrice":   below.CostPrice,
				"lossPerUnit": below.LossPerUnit,
			},
		})
		return
	}
	var payment *checkout.PaymentError
	if errors.As(err, &payment) {
		writeJSON(w, status, map[string]any{
			"error":    err.Error(),
			"total":    payment.Total,
			"tendered": payment.Tendered,
			"missing":  payment.Missing,
		})
		return
	}

	if status >= 500 {
		a.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("internal error")
	}
	writeError(w, status, err)
}
