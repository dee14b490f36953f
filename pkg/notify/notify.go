// Package notify forwards stored survey responses to a staff chat.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"text/template"
	"time"

	"patientsurvey/pkg/config"
	"patientsurvey/pkg/ports/notifyport"
	"patientsurvey/pkg/storage"
	"patientsurvey/pkg/survey"
)

const noAnswerPlaceholder = "-"

// DefaultMaxRetryWait is the longest rate-limit pause honoured before giving up.
const DefaultMaxRetryWait = 10 * time.Second

type answerLine struct {
	Label string
	Value string
	Text  string
}

type messagePayload struct {
	PatientName  string
	PatientPhone string
	Department   string
	VisitDate    string
	SubmittedAt  string
	Answered     int
	Total        int
	Answers      []answerLine
}

var messageTpl = template.Must(template.New("submission").Parse(`새 설문 응답이 접수되었습니다
환자명: {{.PatientName}}
전화번호: {{.PatientPhone}}
진료과: {{.Department}}
진료일자: {{.VisitDate}}
제출시각: {{.SubmittedAt}}
응답 {{.Answered}}/{{.Total}}
{{range .Answers}}- {{.Label}}: {{.Value}} ({{.Text}})
{{end}}`))

// Notifier renders responses and sends them to one chat.
type Notifier struct {
	sender       notifyport.Sender
	chatID       int64
	def          *config.SurveyDefinition
	maxRetryWait time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

var _ survey.Notifier = (*Notifier)(nil)

// New creates a Notifier sending to chatID through sender.
func New(sender notifyport.Sender, chatID int64, def *config.SurveyDefinition) (*Notifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("notify: sender is nil")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("notify: chat id is not configured")
	}
	if def == nil {
		return nil, fmt.Errorf("notify: survey definition is nil")
	}
	return &Notifier{
		sender:       sender,
		chatID:       chatID,
		def:          def,
		maxRetryWait: DefaultMaxRetryWait,
		sleep:        sleepContext,
	}, nil
}

// NotifySubmission sends resp to the staff chat. A rate-limited send is
// retried once when the advertised wait is short enough.
func (n *Notifier) NotifySubmission(ctx context.Context, resp storage.SurveyResponse) error {
	text, err := Render(n.def, resp)
	if err != nil {
		return fmt.Errorf("failed to render notification for %s: %w", resp.ID, err)
	}

	_, err = n.sender.SendMessage(ctx, n.chatID, text)
	if err != nil && notifyport.IsCode(err, notifyport.CodeRateLimited) {
		wait := notifyport.RetryAfter(err)
		if wait > n.maxRetryWait {
			return fmt.Errorf("failed to notify chat %d: %w", n.chatID, err)
		}
		log.Printf("[NotifySubmission] Rate limited, retrying in %v", wait)
		if sleepErr := n.sleep(ctx, wait); sleepErr != nil {
			return fmt.Errorf("failed to notify chat %d: %w", n.chatID, sleepErr)
		}
		_, err = n.sender.SendMessage(ctx, n.chatID, text)
	}
	if err != nil {
		return fmt.Errorf("failed to notify chat %d: %w", n.chatID, err)
	}
	log.Printf("[NotifySubmission] Response %s forwarded to chat %d", resp.ID, n.chatID)
	return nil
}

// Render formats resp as a plain-text staff message.
func Render(def *config.SurveyDefinition, resp storage.SurveyResponse) (string, error) {
	var buf bytes.Buffer
	if err := messageTpl.Execute(&buf, buildPayload(def, resp)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildPayload(def *config.SurveyDefinition, resp storage.SurveyResponse) messagePayload {
	created := resp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	payload := messagePayload{
		PatientName:  resp.PatientName,
		PatientPhone: resp.PatientPhone,
		Department:   resp.Department,
		VisitDate:    resp.VisitDate,
		SubmittedAt:  survey.FormatKST(created),
		Answered:     resp.Answered(),
		Total:        config.QuestionCount,
		Answers:      make([]answerLine, 0, config.QuestionCount),
	}
	for i, a := range resp.Answers {
		line := answerLine{
			Label: config.QuestionID(i),
			Value: noAnswerPlaceholder,
			Text:  noAnswerPlaceholder,
		}
		if i < len(def.Questions) {
			line.Label = def.Questions[i].Label
		}
		if a != nil {
			line.Value = strconv.Itoa(*a)
			line.Text = def.OptionLabel(*a)
		}
		payload.Answers = append(payload.Answers, line)
	}
	return payload
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
