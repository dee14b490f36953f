// Package storage defines the persistence port for survey responses.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patientsurvey/pkg/config"
)

// MaxListLimit caps how many responses a single listing returns.
const MaxListLimit = 500

var ErrInvalidRecord = errors.New("invalid submission record")

// SubmissionRecord is the payload handed to the store on submit.
// Unanswered questions are nil.
type SubmissionRecord struct {
	PatientName  string
	PatientPhone string
	Department   string
	VisitDate    string
	Answers      [config.QuestionCount]*int
}

// SurveyResponse is a stored submission.
type SurveyResponse struct {
	ID string
	SubmissionRecord
	CreatedAt time.Time
}

// ListFilter narrows an admin listing.
type ListFilter struct {
	// Search is matched as a substring against name, phone and department.
	Search string
	Limit  int
}

// Store persists and lists survey responses.
type Store interface {
	Insert(ctx context.Context, rec SubmissionRecord) (SurveyResponse, error)
	// List returns responses newest first.
	List(ctx context.Context, filter ListFilter) ([]SurveyResponse, error)
}

// Validate checks the fields every backend requires.
func (r SubmissionRecord) Validate() error {
	switch {
	case strings.TrimSpace(r.PatientName) == "":
		return fmt.Errorf("%w: patient_name is empty", ErrInvalidRecord)
	case strings.TrimSpace(r.PatientPhone) == "":
		return fmt.Errorf("%w: patient_phone is empty", ErrInvalidRecord)
	case strings.TrimSpace(r.Department) == "":
		return fmt.Errorf("%w: department is empty", ErrInvalidRecord)
	case strings.TrimSpace(r.VisitDate) == "":
		return fmt.Errorf("%w: visit_date is empty", ErrInvalidRecord)
	}
	for i, a := range r.Answers {
		if a != nil && (*a < config.LikertMin || *a > config.LikertMax) {
			return fmt.Errorf("%w: %s=%d outside %d..%d", ErrInvalidRecord, config.QuestionID(i), *a, config.LikertMin, config.LikertMax)
		}
	}
	return nil
}

// Answered reports how many questions carry a value.
func (r SubmissionRecord) Answered() int {
	n := 0
	for _, a := range r.Answers {
		if a != nil {
			n++
		}
	}
	return n
}

// Normalized returns the filter with a trimmed search and a limit within 1..MaxListLimit.
func (f ListFilter) Normalized() ListFilter {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Matches reports whether resp satisfies the search term. Matching is case-sensitive.
func (f ListFilter) Matches(resp SurveyResponse) bool {
	q := strings.TrimSpace(f.Search)
	if q == "" {
		return true
	}
	return strings.Contains(resp.PatientName, q) ||
		strings.Contains(resp.PatientPhone, q) ||
		strings.Contains(resp.Department, q)
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}
