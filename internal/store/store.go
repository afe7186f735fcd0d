// Package store keeps a history of answered questions in SQLite. The history
// is for review only; nothing in it is fed back into generation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/medassist/internal"
)

var ErrNotFound = errors.New("consultation not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS consultations (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		focus_area TEXT NOT NULL,
		detected_lang TEXT NOT NULL,
		response_lang TEXT NOT NULL,
		answer TEXT NOT NULL,
		disclaimer TEXT NOT NULL,
		degraded BOOLEAN DEFAULT FALSE,
		backend TEXT,
		latency_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_consultations_created ON consultations(created_at);
	CREATE INDEX IF NOT EXISTS idx_consultations_lang ON consultations(detected_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record stores c. An empty ID is replaced with a fresh UUID and a zero
// Timestamp with the current time; the stored ID is returned.
func (s *Store) Record(ctx context.Context, c internal.Consultation) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO consultations (id, question, focus_area, detected_lang, response_lang, answer, disclaimer, degraded, backend, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, normalizeText(c.Question), c.FocusArea, c.DetectedLang, c.ResponseLang,
		c.Answer, c.Disclaimer, c.Degraded, c.Backend, c.Latency.Milliseconds(), c.Timestamp.UTC())
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

const selectColumns = `SELECT id, question, focus_area, detected_lang, response_lang, answer, disclaimer, degraded, backend, latency_ms, created_at FROM consultations`

type scanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row scanner) (internal.Consultation, error) {
	var (
		c         internal.Consultation
		backend   sql.NullString
		latencyMs sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Question, &c.FocusArea, &c.DetectedLang, &c.ResponseLang,
		&c.Answer, &c.Disclaimer, &c.Degraded, &backend, &latencyMs, &c.Timestamp)
	c.Backend = backend.String
	c.Latency = time.Duration(latencyMs.Int64) * time.Millisecond
	return c, err
}

func (s *Store) Get(ctx context.Context, id string) (*internal.Consultation, error) {
	c, err := scanConsultation(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	Language string
	Limit    int
}

// List returns consultations, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]internal.Consultation, error) {
	query := selectColumns
	var args []any

	if f.Language != "" {
		query += ` WHERE detected_lang = ?`
		args = append(args, strings.ToLower(f.Language))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []internal.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}

	return results, rows.Err()
}

// Delete removes one consultation by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM consultations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Clear removes all consultations.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM consultations`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats summarises the history.
type Stats struct {
	Total        int
	Degraded     int
	Languages    int
	AvgLatency   time.Duration
	TopLanguages []LanguageCount
}

type LanguageCount struct {
	Language string
	Count    int
}

// Stats returns summary statistics and the five most frequent languages.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var avgMs float64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN degraded THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT detected_lang),
			COALESCE(AVG(latency_ms), 0)
		FROM consultations`).Scan(
		&stats.Total,
		&stats.Degraded,
		&stats.Languages,
		&avgMs,
	)
	if err != nil {
		return nil, err
	}
	stats.AvgLatency = time.Duration(avgMs * float64(time.Millisecond))

	rows, err := s.db.QueryContext(ctx, `
		SELECT detected_lang, COUNT(*) AS n FROM consultations
		GROUP BY detected_lang ORDER BY n DESC, detected_lang LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		stats.TopLanguages = append(stats.TopLanguages, lc)
	}
	return stats, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization so the
// same question typed on different keyboards is stored identically.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
