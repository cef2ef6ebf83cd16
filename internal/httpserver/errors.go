package httpserver

import (
	"errors"
	"net/http"

	"farmstand/internal/domain"
	sessionsvc "farmstand/internal/service/session"
	"github.com/gin-gonic/gin"
)

// apiError is the JSON error body. Action tells the client what to offer the buyer next.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Action    string `json:"action,omitempty"`
}

func abortWithError(c *gin.Context, status int, body apiError) {
	c.AbortWithStatusJSON(status, body)
}

func writeError(c *gin.Context, err error) {
	status, body := mapError(err)
	c.JSON(status, body)
}

func mapError(err error) (int, apiError) {
	var partial *domain.PartialMaterializationError
	switch {
	case errors.As(err, &partial):
		return http.StatusAccepted, apiError{
			Code:    "partial_materialization",
			Message: "Payment received. Some orders are still being created and will appear shortly.",
			Action:  "contact_support",
		}
	case errors.Is(err, sessionsvc.ErrInvalidToken):
		return http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "invalid or expired session"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, apiError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, apiError{Code: "invalid_input", Message: err.Error()}
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, apiError{Code: "empty_cart", Message: "Your cart is empty."}
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, apiError{
			Code:      "gateway_unavailable",
			Message:   "We could not reach the payment provider. Nothing was charged.",
			Retryable: true,
			Action:    "retry",
		}
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		return http.StatusConflict, apiError{
			Code:      "payment_not_confirmed",
			Message:   "Payment has not been confirmed yet.",
			Retryable: true,
			Action:    "reverify",
		}
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, apiError{
			Code:      "checkout_in_progress",
			Message:   "Your order is being finalized.",
			Retryable: true,
			Action:    "reverify",
		}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, apiError{Code: "invalid_transition", Message: err.Error()}
	case errors.Is(err, domain.ErrNotCancellable):
		return http.StatusConflict, apiError{Code: "not_cancellable", Message: "This order can no longer be cancelled."}
	case errors.Is(err, domain.ErrInvalidTicket):
		return http.StatusConflict, apiError{
			Code:    "invalid_ticket",
			Message: "Cancellation confirmation expired. Start again.",
			Action:  "prepare",
		}
	case errors.Is(err, domain.ErrCancellationFailed):
		return http.StatusServiceUnavailable, apiError{
			Code:      "cancellation_failed",
			Message:   "We could not cancel the order. It was not changed.",
			Retryable: true,
			Action:    "prepare",
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, apiError{Code: "already_exists", Message: err.Error()}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal", Message: "internal error"}
	}
}
