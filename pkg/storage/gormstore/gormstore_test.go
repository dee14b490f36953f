package gormstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"patientsurvey/pkg/storage"
)

func dryRunStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=survey dbname=survey sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return New(db)
}

func sampleRecord() storage.SubmissionRecord {
	rec := storage.SubmissionRecord{
		PatientName:  "홍길동",
		PatientPhone: "010-1234-5678",
		Department:   "내과",
		VisitDate:    "2024-01-15",
	}
	for i := range rec.Answers {
		rec.Answers[i] = storage.IntPtr(i%5 + 1)
	}
	rec.Answers[8] = nil
	return rec
}

func TestModelRoundTrip(t *testing.T) {
	rec := sampleRecord()
	m, err := toModel(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Q1 == nil || *m.Q1 != 1 || m.Q5 == nil || *m.Q5 != 5 || m.Q9 != nil {
		t.Fatalf("unexpected answer columns: q1=%v q5=%v q9=%v", m.Q1, m.Q5, m.Q9)
	}

	m.ID = "abc"
	m.CreatedAt = time.Date(2024, 1, 15, 1, 2, 3, 0, time.UTC)
	resp := fromModel(m)
	if resp.VisitDate != "2024-01-15" || resp.PatientName != "홍길동" || resp.ID != "abc" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	for i := 0; i < 8; i++ {
		if resp.Answers[i] == nil || *resp.Answers[i] != *rec.Answers[i] {
			t.Fatalf("answer %d mismatch", i)
		}
	}
	if resp.Answers[8] != nil {
		t.Fatalf("expected q9 to stay null")
	}
}

func TestToModelRejectsBadDate(t *testing.T) {
	rec := sampleRecord()
	rec.VisitDate = "2024-13-40"
	if _, err := toModel(rec); !errors.Is(err, storage.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestBeforeCreateAssignsUUID(t *testing.T) {
	m := &ResponseModel{}
	if err := m.BeforeCreate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", m.ID)
	}
	kept := &ResponseModel{ID: "preset"}
	_ = kept.BeforeCreate(nil)
	if kept.ID != "preset" {
		t.Fatalf("expected preset id kept, got %q", kept.ID)
	}
}

func TestListQueryOrdersAndSearches(t *testing.T) {
	s := dryRunStore(t)
	var rows []ResponseModel
	stmt := s.listQuery(context.Background(), storage.ListFilter{Search: "50%_off"}).Find(&rows).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "survey_responses") {
		t.Fatalf("expected survey_responses table, got %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY created_at DESC") {
		t.Fatalf("expected created_at DESC ordering, got %s", sql)
	}
	if !strings.Contains(sql, "patient_name LIKE") || !strings.Contains(sql, "department LIKE") {
		t.Fatalf("expected search predicates, got %s", sql)
	}
	if !strings.Contains(sql, "LIMIT") {
		t.Fatalf("expected limit clause, got %s", sql)
	}
	found := false
	for _, v := range stmt.Vars {
		if v == `%50\%\_off%` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected escaped LIKE pattern in vars, got %v", stmt.Vars)
	}
}

func TestListQueryWithoutSearch(t *testing.T) {
	s := dryRunStore(t)
	var rows []ResponseModel
	sql := s.listQuery(context.Background(), storage.ListFilter{}).Find(&rows).Statement.SQL.String()
	if strings.Contains(sql, "LIKE") {
		t.Fatalf("expected no search predicate, got %s", sql)
	}
}

func TestInsertRejectsInvalidRecord(t *testing.T) {
	s := dryRunStore(t)
	rec := sampleRecord()
	rec.Department = ""
	if _, err := s.Insert(context.Background(), rec); !errors.Is(err, storage.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
