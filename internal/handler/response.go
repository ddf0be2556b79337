package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// ErrorResponse represents an error response. Retryable tells the client
// the same request may succeed if resubmitted as-is.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error(), Retryable: service.Retryable(err)})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrDuplicateOperation):
		return http.StatusConflict

	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	// A held payout is not a failure: the request was accepted and the
	// trip awaits manual review.
	case errors.Is(err, service.ErrFraudHold):
		return http.StatusAccepted

	default:
		return http.StatusInternalServerError
	}
}

// actorFrom reads the acting principal from the request headers. Upstream
// auth is expected to have validated them.
func actorFrom(c *gin.Context) domain.Actor {
	role := domain.ActorRole(c.GetHeader("X-Actor-Role"))
	switch role {
	case domain.RoleRider, domain.RoleDriver, domain.RoleDispatcher, domain.RoleAdmin:
	default:
		role = domain.RoleRider
	}
	return domain.Actor{
		ID:   c.GetHeader("X-Actor-ID"),
		Role: role,
	}
}

// fmtTime renders a timestamp for responses, empty when unset.
func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}
