// Package notifyport is the outbound interface between the survey service and
// the staff messaging adapters.
package notifyport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Normalized failure codes carried by NotifyError.
const (
	CodeRateLimited    = "rate_limited"
	CodeChatNotFound   = "chat_not_found"
	CodeBadRequest     = "bad_request"
	CodeBadPayload     = "bad_payload"
	CodeForbidden      = "forbidden"
	CodeUnauthorized   = "unauthorized"
	CodeUnknown        = "unknown"
	CodeCanceled       = "context_canceled"
	CodeDeadline       = "context_deadline"
	CodeContextFailure = "context_error"
)

// Receipt identifies a delivered message.
type Receipt struct {
	ChatID    int64
	MessageID int
}

// Sender delivers plain-text messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (Receipt, error)
}

// NotifyError is a failed send with a normalized code. RetryAfter is set when
// the transport asked the caller to back off.
type NotifyError struct {
	Op         string
	Code       string
	RetryAfter time.Duration
	Wrapped    error
}

func (e *NotifyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *NotifyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

func NewNotifyError(op, code string, err error) *NotifyError {
	return &NotifyError{Op: op, Code: code, Wrapped: err}
}

// IsCode reports whether err is a NotifyError with code.
func IsCode(err error, code string) bool {
	var ne *NotifyError
	return errors.As(err, &ne) && ne != nil && ne.Code == code
}

// RetryAfter returns the back-off requested by the transport, or zero.
func RetryAfter(err error) time.Duration {
	var ne *NotifyError
	if errors.As(err, &ne) && ne != nil {
		return ne.RetryAfter
	}
	return 0
}
