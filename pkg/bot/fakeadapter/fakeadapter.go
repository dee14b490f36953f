package fakeadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"patientsurvey/pkg/ports/notifyport"
)

// FakeAdapter implements notifyport.Sender for headless tests.
type FakeAdapter struct {
	mu            sync.Mutex
	Calls         []Call
	NextMessageID int
	FailNext      map[string][]error
}

// Call captures a delivered message.
type Call struct {
	Op        string
	ChatID    int64
	MessageID int
	Text      string
}

var _ notifyport.Sender = (*FakeAdapter)(nil)

// SendMessage records a send operation and returns a synthetic receipt.
func (f *FakeAdapter) SendMessage(ctx context.Context, chatID int64, text string) (notifyport.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return notifyport.Receipt{}, wrapContextError("send_message", err)
	}
	if err := f.maybeFail("send_message"); err != nil {
		return notifyport.Receipt{}, err
	}
	msgID := f.nextMessageID()
	f.record(Call{Op: "send_message", ChatID: chatID, MessageID: msgID, Text: text})
	return notifyport.Receipt{
		ChatID:    chatID,
		MessageID: msgID,
	}, nil
}

// Fail queues err to be returned by the next call for op (wrapped as NotifyError if needed).
// Repeated calls queue further failures.
func (f *FakeAdapter) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		f.FailNext = make(map[string][]error)
	}
	f.FailNext[op] = append(f.FailNext[op], err)
}

// LastCall returns the most recent call for the given op.
func (f *FakeAdapter) LastCall(op string) *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			c := f.Calls[i]
			return &c
		}
	}
	return nil
}

// CallCount returns the number of successful calls recorded.
func (f *FakeAdapter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeAdapter) nextMessageID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NextMessageID == 0 {
		f.NextMessageID = 1
	}
	id := f.NextMessageID
	f.NextMessageID++
	return id
}

func (f *FakeAdapter) record(call Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakeAdapter) maybeFail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.FailNext[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.FailNext[op] = queue[1:]
	if _, ok := err.(*notifyport.NotifyError); ok {
		return err
	}
	return &notifyport.NotifyError{Op: op, Code: "fake_error", Wrapped: err}
}

func wrapContextError(op string, err error) error {
	switch err {
	case context.Canceled:
		return &notifyport.NotifyError{Op: op, Code: notifyport.CodeCanceled, Wrapped: err}
	case context.DeadlineExceeded:
		return &notifyport.NotifyError{Op: op, Code: notifyport.CodeDeadline, Wrapped: err}
	default:
		return &notifyport.NotifyError{Op: op, Code: notifyport.CodeContextFailure, Wrapped: err}
	}
}

// Helpers to script common NotifyError cases in tests.
func RateLimited(op string, retry time.Duration) *notifyport.NotifyError {
	return &notifyport.NotifyError{Op: op, Code: notifyport.CodeRateLimited, RetryAfter: retry, Wrapped: fmt.Errorf("rate limited")}
}

func Forbidden(op string) *notifyport.NotifyError {
	return &notifyport.NotifyError{Op: op, Code: notifyport.CodeForbidden, Wrapped: fmt.Errorf("bot was blocked")}
}
