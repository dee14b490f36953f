package config

import (
	"fmt"
	"strings"
)

// QuestionCount is the fixed number of questions in a survey.
const QuestionCount = 9

// Likert bounds.
const (
	LikertMin = 1
	LikertMax = 5
)

type SurveyDefinition struct {
	Title     string           `yaml:"title" json:"title"`
	Questions []QuestionConfig `yaml:"questions" json:"questions"`
	Options   []LikertOption   `yaml:"options" json:"options"`
}

type QuestionConfig struct {
	ID     string `yaml:"id" json:"id"`
	Prompt string `yaml:"prompt" json:"prompt"`
	// Label is the short column caption used by the admin listing.
	Label string `yaml:"label" json:"label"`
}

type LikertOption struct {
	Value int    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// QuestionID returns the canonical id of the question at position idx (0-based).
func QuestionID(idx int) string {
	return fmt.Sprintf("q%d", idx+1)
}

func (sd *SurveyDefinition) Validate() error {
	if sd == nil {
		return fmt.Errorf("survey definition is nil")
	}
	if strings.TrimSpace(sd.Title) == "" {
		return fmt.Errorf("survey validation failed: title is empty")
	}
	if len(sd.Questions) != QuestionCount {
		return fmt.Errorf("survey validation failed: expected %d questions, got %d", QuestionCount, len(sd.Questions))
	}

	for i, question := range sd.Questions {
		want := QuestionID(i)
		if question.ID != want {
			return fmt.Errorf("survey validation failed: question #%d has id '%s', expected '%s'", i+1, question.ID, want)
		}
		if strings.TrimSpace(question.Prompt) == "" {
			return fmt.Errorf("survey validation failed: question '%s' has no prompt", question.ID)
		}
		if strings.TrimSpace(question.Label) == "" {
			return fmt.Errorf("survey validation failed: question '%s' has no label", question.ID)
		}
	}

	if len(sd.Options) != LikertMax-LikertMin+1 {
		return fmt.Errorf("survey validation failed: expected %d likert options, got %d", LikertMax-LikertMin+1, len(sd.Options))
	}
	seen := make(map[int]bool)
	for j, option := range sd.Options {
		if option.Value < LikertMin || option.Value > LikertMax {
			return fmt.Errorf("survey validation failed: option #%d has value %d outside %d..%d", j+1, option.Value, LikertMin, LikertMax)
		}
		if seen[option.Value] {
			return fmt.Errorf("survey validation failed: duplicate option value %d", option.Value)
		}
		seen[option.Value] = true
		if strings.TrimSpace(option.Label) == "" {
			return fmt.Errorf("survey validation failed: option #%d has no label", j+1)
		}
	}
	return nil
}

// Question returns the question with the given id.
func (sd *SurveyDefinition) Question(id string) (QuestionConfig, bool) {
	for _, q := range sd.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return QuestionConfig{}, false
}

// OptionLabel returns the label for a Likert value, or "-" when the value is unknown.
func (sd *SurveyDefinition) OptionLabel(value int) string {
	for _, opt := range sd.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return "-"
}

// DefaultSurvey returns the built-in hospital satisfaction survey.
func DefaultSurvey() *SurveyDefinition {
	return &SurveyDefinition{
		Title: "의료 고객만족도 조사",
		Questions: []QuestionConfig{
			{ID: "q1", Label: "Q1 시간 적정", Prompt: "1. 유공자님은 해당병원을 이용하고 계시는데 해당 병원의 진료 시간(대기시간, 치료 받는 시간 등)은 적정하다고 생각하십니까?"},
			{ID: "q2", Label: "Q2 설명 이해", Prompt: "2. 해당병원 의료진은 환우의 상태/치료방법에 대해 이해하기 쉽게 설명해줍니까?"},
			{ID: "q3", Label: "Q3 부작용 안내", Prompt: "3. 해당병원 의료진은 환우의 투약이나 검사, 처치 후에 생길 수 있는 부작용에 대해 이해하기 쉽게 친절하게 설명해주었습니까?"},
			{ID: "q4", Label: "Q4 친절 응대", Prompt: "4. 해당병원 직원(의료진 포함)의 응대 태도가 친절하다고 생각하십니까?"},
			{ID: "q5", Label: "Q5 안내 적절", Prompt: "5. 병원 이용을 위한 진료시간, 예약방법, 진료절차 등에 대해 안내가 잘 되어 있다고 생각하시나요?"},
			{ID: "q6", Label: "Q6 복장 적정", Prompt: "6. 해당병원 직원(의료진 포함)은 복장이 적정하다고 생각하십니까?"},
			{ID: "q7", Label: "Q7 신뢰도", Prompt: "7. 해당병원 의료진 및 직원을 신뢰할 수 있다고 생각하십니까?"},
			{ID: "q8", Label: "Q8 공공 기여", Prompt: "8. 해당병원은 국가유공자의 의료 및 재활에 기여한다고 생각하십니까?"},
			{ID: "q9", Label: "Q9 종합 만족", Prompt: "9. 유공자님께서는 앞서 평가해 주신 의료서비스 내용 및 질, 직원의 응대, 이용절차, 공공적 측면 등을 모두 고려할 때, 해당병원 의료서비스에 대해 종합적으로 얼마나 만족하셨습니까?"},
		},
		Options: []LikertOption{
			{Value: 5, Label: "매우 그렇다"},
			{Value: 4, Label: "그렇다"},
			{Value: 3, Label: "보통이다"},
			{Value: 2, Label: "그렇지 않다"},
			{Value: 1, Label: "매우 그렇지 않다"},
		},
	}
}
