// Package gormstore persists survey responses to PostgreSQL through GORM.
package gormstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"patientsurvey/pkg/config"
	"patientsurvey/pkg/storage"
)

const dateLayout = "2006-01-02"

// ResponseModel is the survey_responses row.
type ResponseModel struct {
	ID           string    `gorm:"primaryKey;type:uuid"`
	PatientName  string    `gorm:"size:100;not null"`
	PatientPhone string    `gorm:"size:20;not null"`
	Department   string    `gorm:"size:50;not null"`
	VisitDate    time.Time `gorm:"type:date;not null"`
	Q1           *int      `gorm:"check:q1 BETWEEN 1 AND 5"`
	Q2           *int      `gorm:"check:q2 BETWEEN 1 AND 5"`
	Q3           *int      `gorm:"check:q3 BETWEEN 1 AND 5"`
	Q4           *int      `gorm:"check:q4 BETWEEN 1 AND 5"`
	Q5           *int      `gorm:"check:q5 BETWEEN 1 AND 5"`
	Q6           *int      `gorm:"check:q6 BETWEEN 1 AND 5"`
	Q7           *int      `gorm:"check:q7 BETWEEN 1 AND 5"`
	Q8           *int      `gorm:"check:q8 BETWEEN 1 AND 5"`
	Q9           *int      `gorm:"check:q9 BETWEEN 1 AND 5"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (ResponseModel) TableName() string {
	return "survey_responses"
}

// BeforeCreate assigns a UUID when the id is empty.
func (m *ResponseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// Store implements storage.Store on a *gorm.DB.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to PostgreSQL using dsn.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("gormstore: dsn cannot be empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the survey_responses table.
func (s *Store) Migrate() error {
	log.Printf("[gormstore.Migrate] Migrating survey_responses...")
	if err := s.db.AutoMigrate(&ResponseModel{}); err != nil {
		return fmt.Errorf("failed to migrate survey_responses: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert writes rec as a new row.
func (s *Store) Insert(ctx context.Context, rec storage.SubmissionRecord) (storage.SurveyResponse, error) {
	if err := rec.Validate(); err != nil {
		return storage.SurveyResponse{}, err
	}
	m, err := toModel(rec)
	if err != nil {
		return storage.SurveyResponse{}, err
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return storage.SurveyResponse{}, fmt.Errorf("failed to insert survey response: %w", err)
	}
	log.Printf("[gormstore.Insert] Stored survey response %s", m.ID)
	return fromModel(m), nil
}

// List returns rows matching filter ordered by created_at descending.
func (s *Store) List(ctx context.Context, filter storage.ListFilter) ([]storage.SurveyResponse, error) {
	var rows []ResponseModel
	if err := s.listQuery(ctx, filter).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list survey responses: %w", err)
	}
	out := make([]storage.SurveyResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func (s *Store) listQuery(ctx context.Context, filter storage.ListFilter) *gorm.DB {
	filter = filter.Normalized()
	q := s.db.WithContext(ctx).Model(&ResponseModel{})
	if filter.Search != "" {
		like := "%" + escapeLike(filter.Search) + "%"
		q = q.Where("patient_name LIKE ? OR patient_phone LIKE ? OR department LIKE ?", like, like, like)
	}
	return q.Order("created_at DESC").Limit(filter.Limit)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toModel(rec storage.SubmissionRecord) (ResponseModel, error) {
	visit, err := time.Parse(dateLayout, rec.VisitDate)
	if err != nil {
		return ResponseModel{}, fmt.Errorf("%w: visit_date %q", storage.ErrInvalidRecord, rec.VisitDate)
	}
	m := ResponseModel{
		PatientName:  rec.PatientName,
		PatientPhone: rec.PatientPhone,
		Department:   rec.Department,
		VisitDate:    visit,
	}
	for i, slot := range answerSlots(&m) {
		if rec.Answers[i] != nil {
			*slot = storage.IntPtr(*rec.Answers[i])
		}
	}
	return m, nil
}

func fromModel(m ResponseModel) storage.SurveyResponse {
	resp := storage.SurveyResponse{
		ID: m.ID,
		SubmissionRecord: storage.SubmissionRecord{
			PatientName:  m.PatientName,
			PatientPhone: m.PatientPhone,
			Department:   m.Department,
			VisitDate:    m.VisitDate.Format(dateLayout),
		},
		CreatedAt: m.CreatedAt.UTC(),
	}
	for i, slot := range answerSlots(&m) {
		resp.Answers[i] = *slot
	}
	return resp
}

func answerSlots(m *ResponseModel) [config.QuestionCount]**int {
	return [config.QuestionCount]**int{&m.Q1, &m.Q2, &m.Q3, &m.Q4, &m.Q5, &m.Q6, &m.Q7, &m.Q8, &m.Q9}
}
