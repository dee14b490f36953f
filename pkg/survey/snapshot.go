package survey

import (
	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
)

// QuestionView is the question shown at the current step.
type QuestionView struct {
	ID      string                `json:"id"`
	Number  int                   `json:"number"`
	Prompt  string                `json:"prompt"`
	Options []config.LikertOption `json:"options"`
	Answer  *int                  `json:"answer,omitempty"`
}

// Snapshot is an immutable view of a flow.
type Snapshot struct {
	State          string                    `json:"state"`
	Step           int                       `json:"step"`
	TotalQuestions int                       `json:"totalQuestions"`
	Progress       float64                   `json:"progress"`
	Question       *QuestionView             `json:"question,omitempty"`
	Answers        map[string]int            `json:"answers"`
	Patient        *identity.PatientInfo     `json:"patient,omitempty"`
	Errors         identity.ValidationErrors `json:"errors,omitempty"`
	CanGoNext      bool                      `json:"canGoNext"`
	CanGoPrevious  bool                      `json:"canGoPrevious"`
	CanSubmit      bool                      `json:"canSubmit"`
	ResponseID     string                    `json:"responseId,omitempty"`
	SubmittedAt    string                    `json:"submittedAt,omitempty"`
	FailureReason  Reason                    `json:"failureReason,omitempty"`
	Message        string                    `json:"message,omitempty"`
}

// Snapshot returns the current view of the flow.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.machine.Current()
	snap := Snapshot{
		State:          state,
		Step:           f.step,
		TotalQuestions: config.QuestionCount,
		Progress:       progress(f.step),
		Answers:        make(map[string]int),
	}

	for i, a := range f.answers {
		if a != nil {
			snap.Answers[config.QuestionID(i)] = *a
		}
	}

	if f.patient != nil {
		p := *f.patient
		snap.Patient = &p
	}

	switch state {
	case StateAwaitingIdentity:
		snap.Progress = 0
		return snap
	case StateInvalidAccess:
		snap.Progress = 0
		snap.Errors = append(identity.ValidationErrors(nil), f.rejections...)
		snap.Message = InvalidAccessMessage
		return snap
	}

	if f.step < len(f.def.Questions) {
		q := f.def.Questions[f.step]
		view := &QuestionView{
			ID:      q.ID,
			Number:  f.step + 1,
			Prompt:  q.Prompt,
			Options: append([]config.LikertOption(nil), f.def.Options...),
		}
		if a := f.answers[f.step]; a != nil {
			v := *a
			view.Answer = &v
		}
		snap.Question = view
	}

	answered := f.answers[f.step] != nil
	switch state {
	case StateInProgress:
		snap.CanGoNext = f.step < LastStep && answered
		snap.CanGoPrevious = f.step > 0
		snap.CanSubmit = f.step == LastStep && answered
	case StateSubmissionFailed:
		snap.CanSubmit = f.step == LastStep && answered
		if f.failure != nil {
			snap.FailureReason = f.failure.Reason
			snap.Message = f.failure.Message()
		}
	case StateSubmitted:
		if f.response != nil {
			snap.ResponseID = f.response.ID
		}
		snap.SubmittedAt = FormatKST(f.submittedAt)
	}
	return snap
}
