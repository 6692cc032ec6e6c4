package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/BariCheck/internal/questionnaire"
	"github.com/soaringjerry/BariCheck/internal/scoring"
	"github.com/soaringjerry/BariCheck/internal/services"
)

func openTestStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baricheck.db")
	conn, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := RunMigrations(conn, ""); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, err := NewSQLiteStore(conn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st, conn
}

func sampleSubmission(id string, color questionnaire.Color, created time.Time) *services.Submission {
	return &services.Submission{
		ID:         id,
		CreatedAt:  created,
		Patient:    services.Patient{LastName: "Durand", FirstName: "Luc", VisitDate: "2025-03-01"},
		PatientKey: "abc123",
		Answers: map[string]any{
			"reoperation":         true,
			"poids_actuel":        82.5,
			"date_intervention":   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			"reoperation_details": "cholécystectomie",
		},
		Report: scoring.Report{
			Rows: []scoring.QuestionResult{
				{QuestionID: "reoperation", Weight: 2, Value: true, Color: questionnaire.Red, Points: 4},
				{QuestionID: "date_intervention", Weight: 1, Value: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), Color: questionnaire.White},
			},
			Summary: scoring.Summary{
				TotalPoints: 4,
				MaxPoints:   6,
				Percentage:  66.666,
				GlobalColor: color,
				Escalated:   color == questionnaire.Red,
				EscalatedBy: []string{"reoperation"},
			},
		},
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	if err := st.AddSubmission(sampleSubmission("S1", questionnaire.Red, created)); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := st.GetSubmission("S1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected submission, got nil")
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %v", got.CreatedAt)
	}
	if got.Patient.LastName != "Durand" || got.PatientKey != "abc123" {
		t.Fatalf("patient mismatch: %+v", got)
	}
	if got.Answers["reoperation"] != true || got.Answers["poids_actuel"] != 82.5 {
		t.Fatalf("answers mismatch: %v", got.Answers)
	}
	if got.Answers["date_intervention"] != "2024-06-10" {
		t.Fatalf("expected ISO date, got %v", got.Answers["date_intervention"])
	}
	sum := got.Report.Summary
	if sum.GlobalColor != questionnaire.Red || !sum.Escalated || len(sum.EscalatedBy) != 1 {
		t.Fatalf("summary mismatch: %+v", sum)
	}
	if len(got.Report.Rows) != 2 || got.Report.Rows[1].Value != "2024-06-10" {
		t.Fatalf("rows mismatch: %+v", got.Report.Rows)
	}
}

func TestSQLiteStoreMissingAndDuplicate(t *testing.T) {
	st, _ := openTestStore(t)
	got, err := st.GetSubmission("nope")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %v, %v", got, err)
	}
	sub := sampleSubmission("S1", questionnaire.White, time.Now().UTC())
	if err := st.AddSubmission(sub); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := st.AddSubmission(sub); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestSQLiteStoreListOrderAndCounts(t *testing.T) {
	st, _ := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"z", "a", "m"}
	colors := []questionnaire.Color{questionnaire.Red, questionnaire.White, questionnaire.Red}
	for i, id := range ids {
		if err := st.AddSubmission(sampleSubmission(id, colors[i], base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	list, err := st.ListSubmissions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(list))
	}
	for i, id := range ids {
		if list[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
	counts, err := st.CountByColor()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["red"] != 2 || counts["white"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, conn := openTestStore(t)
	if err := RunMigrations(conn, ""); err != nil {
		t.Fatalf("second run: %v", err)
	}
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", n)
	}
}
