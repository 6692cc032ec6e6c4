package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/soaringjerry/BariCheck/internal/api"
	"github.com/soaringjerry/BariCheck/internal/services"
)

// SQLiteStore persists submissions in the submissions table. Answers and the
// report are kept as JSON; the summary is duplicated into columns for querying.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func contextBg() context.Context { return context.Background() }

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

const insertSubmission = `INSERT INTO submissions (
	id, created_at, last_name, first_name, visit_date, patient_key,
	total_points, max_points, percentage, global_color, escalated,
	answers_json, report_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSubmission = `SELECT id, created_at, last_name, first_name, visit_date, patient_key,
	answers_json, report_json FROM submissions`

func (s *SQLiteStore) AddSubmission(sub *services.Submission) error {
	if sub == nil || sub.ID == "" {
		return errors.New("submission id required")
	}
	answers, err := json.Marshal(services.PortableAnswers(sub.Answers))
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	report, err := json.Marshal(services.PortableReport(sub.Report))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	sum := sub.Report.Summary
	_, err = s.db.ExecContext(contextBg(), insertSubmission,
		sub.ID,
		sub.CreatedAt.UTC().Format(time.RFC3339Nano),
		toNullString(sub.Patient.LastName),
		toNullString(sub.Patient.FirstName),
		toNullString(sub.Patient.VisitDate),
		toNullString(sub.PatientKey),
		sum.TotalPoints,
		sum.MaxPoints,
		sum.Percentage,
		string(sum.GlobalColor),
		boolToInt64(sum.Escalated),
		string(answers),
		string(report),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSubmission(id string) (*services.Submission, error) {
	row := s.db.QueryRowContext(contextBg(), selectSubmission+" WHERE id = ?", id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SQLiteStore) ListSubmissions() ([]*services.Submission, error) {
	rows, err := s.db.QueryContext(contextBg(), selectSubmission+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer func() { s.logErr("close rows", rows.Close()) }()
	out := []*services.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// CountByColor returns how many stored submissions carry each global color.
func (s *SQLiteStore) CountByColor() (map[string]int, error) {
	rows, err := s.db.QueryContext(contextBg(), "SELECT global_color, COUNT(*) FROM submissions GROUP BY global_color")
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	defer func() { s.logErr("close rows", rows.Close()) }()
	out := map[string]int{}
	for rows.Next() {
		var color string
		var n int
		if err := rows.Scan(&color, &n); err != nil {
			return nil, err
		}
		out[color] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (*services.Submission, error) {
	var (
		sub                     services.Submission
		createdAt               string
		last, first, visit, key sql.NullString
		answersJSON, reportJSON string
	)
	if err := sc.Scan(&sub.ID, &createdAt, &last, &first, &visit, &key, &answersJSON, &reportJSON); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	sub.CreatedAt = ts
	sub.Patient = services.Patient{LastName: last.String, FirstName: first.String, VisitDate: visit.String}
	sub.PatientKey = key.String
	if err := json.Unmarshal([]byte(answersJSON), &sub.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &sub.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if sub.Answers == nil {
		sub.Answers = map[string]any{}
	}
	return &sub, nil
}

var _ api.Store = (*SQLiteStore)(nil)
