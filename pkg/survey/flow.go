// Package survey drives one patient through the nine-question survey and its
// submission.
package survey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/storage"
)

// DefaultSubmitTimeout bounds a single insert into the store.
const DefaultSubmitTimeout = 15 * time.Second

const notifyTimeout = 30 * time.Second

// Inserter is the part of the persistence service the flow needs.
type Inserter interface {
	Insert(ctx context.Context, rec storage.SubmissionRecord) (storage.SurveyResponse, error)
}

// Notifier receives successfully stored responses.
type Notifier interface {
	NotifySubmission(ctx context.Context, resp storage.SurveyResponse) error
}

// Options tune a Flow. Zero values select defaults.
type Options struct {
	SubmitTimeout time.Duration
	Now           func() time.Time
	Notifier      Notifier
}

// Flow is the state of one survey session. All methods are safe for
// concurrent use; Submit does not hold the lock while waiting on the store.
type Flow struct {
	mu sync.Mutex

	def      *config.SurveyDefinition
	store    Inserter
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
	machine  *fsm.FSM

	patient    *identity.PatientInfo
	rejections identity.ValidationErrors
	step       int
	answers    [config.QuestionCount]*int

	attempts    int
	failure     *SubmissionError
	response    *storage.SurveyResponse
	submittedAt time.Time
}

// NewFlow creates a flow awaiting identity.
func NewFlow(def *config.SurveyDefinition, store Inserter, opts Options) (*Flow, error) {
	if def == nil {
		return nil, fmt.Errorf("survey: definition is nil")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("survey: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("survey: store is nil")
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Flow{
		def:      def,
		store:    store,
		notifier: opts.Notifier,
		timeout:  opts.SubmitTimeout,
		now:      opts.Now,
		machine:  newFlowFSM(StateAwaitingIdentity),
	}, nil
}

// Start consumes the identity extraction result. A rejected identity makes the
// flow terminal.
func (f *Flow) Start(ctx context.Context, res identity.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.machine.Current() != StateAwaitingIdentity {
		return ErrAlreadyStarted
	}
	if !res.OK() {
		log.Printf("[Start] Identity rejected: %v", res.Errors.Codes())
		return f.fire(ctx, EventIdentityRejected, f, res.Errors)
	}
	log.Printf("[Start] Identity accepted (dept=%s, visit=%s)", res.Patient.Department, res.Patient.VisitDate)
	return f.fire(ctx, EventIdentityAccepted, f, res.Patient)
}

// SelectAnswer records value for the question at the current step without
// moving the step. Answers are only accepted while the survey is in progress.
func (f *Flow) SelectAnswer(questionID string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.machine.Current() != StateInProgress {
		return f.stateError()
	}
	if _, ok := f.def.Question(questionID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, questionID)
	}
	if current := f.def.Questions[f.step].ID; questionID != current {
		return fmt.Errorf("%w: %q, current is %q", ErrNotCurrentQuestion, questionID, current)
	}
	if value < config.LikertMin || value > config.LikertMax {
		return fmt.Errorf("%w: got %d", ErrInvalidValue, value)
	}
	f.answers[f.step] = storage.IntPtr(value)
	return nil
}

// Next advances one step when the current question is answered.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.machine.Current() != StateInProgress {
		return f.stateError()
	}
	if f.step >= LastStep {
		return ErrAtLastStep
	}
	if f.answers[f.step] == nil {
		return fmt.Errorf("%w: %s", ErrUnanswered, config.QuestionID(f.step))
	}
	f.step++
	return nil
}

// Previous goes back one step. Answers are kept.
func (f *Flow) Previous() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.machine.Current() != StateInProgress {
		return f.stateError()
	}
	if f.step <= 0 {
		return ErrAtFirstStep
	}
	f.step--
	return nil
}

// Submit stores the answers. It is allowed on the last step once the last
// question is answered, and again after a failed attempt. A failure or
// timeout returns a *SubmissionError and leaves the answers untouched.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.machine.Current() {
	case StateInProgress, StateSubmissionFailed:
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmissionInFlight
	case StateInvalidAccess:
		f.mu.Unlock()
		return ErrInvalidAccess
	case StateAwaitingIdentity:
		f.mu.Unlock()
		return ErrNotStarted
	default:
		f.mu.Unlock()
		return ErrSubmitNotAllowed
	}
	if f.step != LastStep || f.answers[LastStep] == nil {
		f.mu.Unlock()
		return ErrSubmitNotAllowed
	}
	record := f.recordLocked()
	if err := f.fire(ctx, EventSubmit, f); err != nil {
		f.mu.Unlock()
		return err
	}
	f.attempts++
	attempt := f.attempts
	f.mu.Unlock()

	log.Printf("[Submit] Attempt %d started (answered=%d)", attempt, record.Answered())
	resp, err := f.insert(ctx, record)

	f.mu.Lock()
	defer f.mu.Unlock()

	// The outcome must be recorded even when the caller has gone away.
	evCtx := context.WithoutCancel(ctx)
	if err != nil {
		subErr := &SubmissionError{Reason: ReasonFailed, Attempt: attempt, Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			subErr.Reason = ReasonTimeout
		}
		log.Printf("[Submit] Attempt %d failed: %v", attempt, err)
		if fireErr := f.fire(evCtx, EventSubmitFailed, f, subErr); fireErr != nil {
			return fireErr
		}
		return subErr
	}

	if err := f.fire(evCtx, EventSubmitSucceeded, f, resp, f.now()); err != nil {
		return err
	}
	log.Printf("[Submit] Attempt %d stored as %s", attempt, resp.ID)

	if f.notifier != nil {
		go f.notify(evCtx, resp)
	}
	return nil
}

func (f *Flow) insert(ctx context.Context, record storage.SubmissionRecord) (storage.SurveyResponse, error) {
	insertCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type outcome struct {
		resp storage.SurveyResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := f.store.Insert(insertCtx, record)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-insertCtx.Done():
		select {
		case out := <-done:
			return out.resp, out.err
		default:
		}
		return storage.SurveyResponse{}, insertCtx.Err()
	}
}

func (f *Flow) notify(ctx context.Context, resp storage.SurveyResponse) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := f.notifier.NotifySubmission(ctx, resp); err != nil {
		log.Printf("[notify] Failed to notify about response %s: %v", resp.ID, err)
	}
}

// State returns the current flow state name.
func (f *Flow) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.machine.Current()
}

// Step returns the current zero-based question index.
func (f *Flow) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Progress returns (step+1)/9.
func (f *Flow) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return progress(f.step)
}

func (f *Flow) recordLocked() storage.SubmissionRecord {
	var rec storage.SubmissionRecord
	if f.patient != nil {
		rec.PatientName = f.patient.Name
		rec.PatientPhone = f.patient.Phone
		rec.Department = f.patient.Department
		rec.VisitDate = f.patient.VisitDate
	}
	for i, a := range f.answers {
		if a != nil {
			rec.Answers[i] = storage.IntPtr(*a)
		}
	}
	return rec
}

func (f *Flow) stateError() error {
	switch f.machine.Current() {
	case StateAwaitingIdentity:
		return ErrNotStarted
	case StateInvalidAccess:
		return ErrInvalidAccess
	case StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrNotInProgress
	}
}

func (f *Flow) fire(ctx context.Context, event string, args ...interface{}) error {
	err := f.machine.Event(ctx, event, args...)
	if err != nil && !isNoTransitionError(err) {
		log.Printf("[fire] Error triggering event '%s' from '%s': %v", event, f.machine.Current(), err)
		return fmt.Errorf("survey: event %s: %w", event, err)
	}
	return nil
}

func progress(step int) float64 {
	return float64(step+1) / float64(config.QuestionCount)
}
