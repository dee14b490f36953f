package survey

import (
	"errors"
	"fmt"
)

var (
	ErrNotStarted         = errors.New("survey has not been started")
	ErrAlreadyStarted     = errors.New("survey has already been started")
	ErrInvalidAccess      = errors.New("survey link is invalid")
	ErrNotInProgress      = errors.New("survey is not accepting answers")
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrNotCurrentQuestion = errors.New("question is not the current one")
	ErrInvalidValue       = errors.New("answer must be between 1 and 5")
	ErrUnanswered         = errors.New("current question is unanswered")
	ErrAtLastStep         = errors.New("already at the last question")
	ErrAtFirstStep        = errors.New("already at the first question")
	ErrSubmitNotAllowed   = errors.New("survey cannot be submitted yet")
	ErrSubmissionInFlight = errors.New("submission already in progress")
)

// Reason classifies a failed submission.
type Reason string

const (
	ReasonFailed  Reason = "failed"
	ReasonTimeout Reason = "timeout"
)

// SubmissionError is returned by Submit when the store rejected the insert or
// did not answer in time. Answers are kept and Submit may be retried.
type SubmissionError struct {
	Reason  Reason
	Attempt int
	Err     error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("submission %s (attempt %d): %v", e.Reason, e.Attempt, e.Err)
	}
	return fmt.Sprintf("submission %s (attempt %d)", e.Reason, e.Attempt)
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the patient-facing text; backend detail is never exposed.
func (e *SubmissionError) Message() string {
	return SubmitErrorMessage
}

// IsTimeout reports whether err is a submission that timed out.
func IsTimeout(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se) && se.Reason == ReasonTimeout
}
