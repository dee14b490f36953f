package survey

import (
	"context"
	"log"
	"time"

	"github.com/looplab/fsm"

	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/storage"
)

// newFlowFSM builds the submission lifecycle machine. Step navigation is not
// modelled as events; it is a guarded field update inside in_progress.
func newFlowFSM(initialState string) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_" + StateInvalidAccess:    enterInvalidAccess,
		"enter_" + StateInProgress:       enterInProgress,
		"enter_" + StateSubmitted:        enterSubmitted,
		"enter_" + StateSubmissionFailed: enterSubmissionFailed,
		"enter_state":                    logTransition,
	}

	events := fsm.Events{
		{Name: EventIdentityRejected, Src: []string{StateAwaitingIdentity}, Dst: StateInvalidAccess},
		{Name: EventIdentityAccepted, Src: []string{StateAwaitingIdentity}, Dst: StateInProgress},
		{Name: EventSubmit, Src: []string{StateInProgress, StateSubmissionFailed}, Dst: StateSubmitting},
		{Name: EventSubmitSucceeded, Src: []string{StateSubmitting}, Dst: StateSubmitted},
		{Name: EventSubmitFailed, Src: []string{StateSubmitting}, Dst: StateSubmissionFailed},
	}

	return fsm.NewFSM(initialState, events, callbacks)
}

func flowArg(e *fsm.Event, callback string) (*Flow, bool) {
	if len(e.Args) < 1 {
		log.Printf("[%s] FATAL: Not enough arguments for event %s", callback, e.Event)
		return nil, false
	}
	f, ok := e.Args[0].(*Flow)
	if !ok || f == nil {
		log.Printf("[%s] FATAL: Failed to cast or nil Flow arg", callback)
		return nil, false
	}
	return f, true
}

func enterInvalidAccess(_ context.Context, e *fsm.Event) {
	f, ok := flowArg(e, "enterInvalidAccess")
	if !ok {
		return
	}
	if len(e.Args) > 1 {
		f.rejections, _ = e.Args[1].(identity.ValidationErrors)
	}
}

func enterInProgress(_ context.Context, e *fsm.Event) {
	f, ok := flowArg(e, "enterInProgress")
	if !ok {
		return
	}
	if len(e.Args) > 1 {
		if patient, ok := e.Args[1].(*identity.PatientInfo); ok && patient != nil {
			p := *patient
			f.patient = &p
		}
	}
	f.step = 0
}

func enterSubmitted(_ context.Context, e *fsm.Event) {
	f, ok := flowArg(e, "enterSubmitted")
	if !ok {
		return
	}
	if len(e.Args) < 3 {
		log.Printf("[enterSubmitted] FATAL: Not enough arguments (got %d, expected 3)", len(e.Args))
		return
	}
	resp, okR := e.Args[1].(storage.SurveyResponse)
	at, okT := e.Args[2].(time.Time)
	if !okR || !okT {
		log.Printf("[enterSubmitted] FATAL: Invalid argument types")
		return
	}
	f.response = &resp
	f.submittedAt = at
	f.failure = nil
}

func enterSubmissionFailed(_ context.Context, e *fsm.Event) {
	f, ok := flowArg(e, "enterSubmissionFailed")
	if !ok {
		return
	}
	if len(e.Args) > 1 {
		f.failure, _ = e.Args[1].(*SubmissionError)
	}
}

func logTransition(_ context.Context, e *fsm.Event) {
	log.Printf("[flow] %s: %s -> %s", e.Event, e.Src, e.Dst)
}
