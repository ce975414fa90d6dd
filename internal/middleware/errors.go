package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mada-pay/mada_pay/internal/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidRequest, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{domain.ErrInvalidPrice, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrWalletInactive, http.StatusLocked},
	{domain.ErrProviderFailure, http.StatusBadGateway},
}

// StatusOf maps an error to the HTTP status it is reported with.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders handler errors as JSON. Domain errors keep their reason;
// anything unclassified is logged and hidden behind a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusOf(err)
		requestID, _ := c.Locals(requestIDHeader).(string)

		resp := errorResponse{
			Error:     http.StatusText(status),
			Message:   domain.Reason(err),
			RequestID: requestID,
		}
		var de *domain.Error
		if errors.As(err, &de) {
			resp.Error = de.Kind.Error()
		}
		if status == http.StatusInternalServerError {
			var fe *fiber.Error
			if !errors.As(err, &fe) {
				logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
				resp.Message = "internal error"
			}
		}
		return c.Status(status).JSON(resp)
	}
}
