package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// Transport-level codes. Domain failures use the codes in domain.ErrorCode.
const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeUnauthenticated      = "unauthenticated"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a service error onto its status and wire code.
// Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	if code == "" {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	writeError(w, statusFor(err), code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrCarNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorizedAction),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrCarUnavailable),
		errors.Is(err, domain.ErrPaymentAlreadySettled),
		errors.Is(err, domain.ErrDeliveryCodeNotIssued),
		errors.Is(err, domain.ErrReviewExists),
		errors.Is(err, domain.ErrReviewNotAllowed),
		errors.Is(err, domain.ErrUserEmailTaken),
		errors.Is(err, domain.ErrPlateTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIncorrectCode),
		errors.Is(err, domain.ErrOwnCar):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
