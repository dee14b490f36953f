package notifyport

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("notify chat: %w", &NotifyError{Op: "send_message", Code: CodeRateLimited, RetryAfter: 3 * time.Second})
	if !IsCode(err, CodeRateLimited) {
		t.Fatalf("expected %s through wrapping", CodeRateLimited)
	}
	if IsCode(err, CodeForbidden) {
		t.Fatalf("unexpected %s match", CodeForbidden)
	}
	if got := RetryAfter(err); got != 3*time.Second {
		t.Fatalf("expected 3s retry hint, got %v", got)
	}
}

func TestPlainErrorsCarryNoCode(t *testing.T) {
	err := errors.New("boom")
	if IsCode(err, CodeUnknown) || IsCode(nil, CodeUnknown) {
		t.Fatalf("plain errors must not match a code")
	}
	if RetryAfter(err) != 0 {
		t.Fatalf("expected no retry hint")
	}
}

func TestNotifyErrorUnwraps(t *testing.T) {
	cause := errors.New("empty text")
	err := NewNotifyError("send_message", CodeBadPayload, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
	if err.Error() != "send_message: bad_payload: empty text" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
