package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/valpere/medassist/internal/assistant"
)

// Messages shown to users. Causes stay in the logs.
const (
	MsgEmptyQuestion = "Please type a question first."
	MsgTooLong       = "Your question is too long. Please shorten it and try again."
	MsgTimeout       = "The answer took too long. Please try again."
	MsgUnavailable   = "The medical assistant is unavailable right now. Please try again later."
)

// statusFor maps a pipeline error to an HTTP status and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return http.StatusUnprocessableEntity, MsgEmptyQuestion
	case errors.Is(err, assistant.ErrQuestionTooLong):
		return http.StatusUnprocessableEntity, MsgTooLong
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, MsgTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, MsgUnavailable
	default:
		return http.StatusBadGateway, MsgUnavailable
	}
}
