package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/storage/migrations"
)

// SQLiteStore keeps runs in a SQLite database. The full run document is
// stored alongside queryable summary columns and one row per sample.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at path and migrates it.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history database ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *benchmark.Run) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}
	models, err := json.Marshal(run.Request.Models)
	if err != nil {
		return err
	}
	prompts, err := json.Marshal(run.Request.Prompts)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, status, models, prompts, runs, samples, failures, started_at, completed_at, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			samples = excluded.samples,
			failures = excluded.failures,
			completed_at = excluded.completed_at,
			document = excluded.document`,
		run.ID, string(run.Status), string(models), string(prompts), run.Request.Runs,
		len(run.Samples), len(run.Failures),
		formatTime(run.StartedAt), formatTime(run.CompletedAt), string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, seq, model, prompt_id, run_number, tokens_per_second, ttft_s, total_duration_s, compute_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, smp := range run.Samples {
		if _, err := stmt.ExecContext(ctx, run.ID, i, smp.Model, smp.PromptID, smp.Run,
			smp.TokensPerSecond, smp.TimeToFirstTokenS, smp.TotalDurationS, string(smp.ComputeMode)); err != nil {
			return fmt.Errorf("failed to insert sample %d of run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Debug("saved run", "id", run.ID, "samples", len(run.Samples))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*benchmark.Run, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var run benchmark.Run
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, status, models, prompts, runs, samples, failures, started_at, completed_at
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			status             string
			models, prompts    string
			started, completed string
		)
		if err := rows.Scan(&e.ID, &status, &models, &prompts, &e.Runs, &e.Samples, &e.Failures, &started, &completed); err != nil {
			return nil, err
		}
		e.Status = benchmark.RunStatus(status)
		if err := json.Unmarshal([]byte(models), &e.Models); err != nil {
			return nil, fmt.Errorf("run %s: bad models column: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(prompts), &e.Prompts); err != nil {
			return nil, fmt.Errorf("run %s: bad prompts column: %w", e.ID, err)
		}
		if e.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if e.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// ModelTrend is the mean throughput of one model across stored runs.
type ModelTrend struct {
	Model           string  `json:"model"`
	Samples         int     `json:"samples"`
	TokensPerSecond float64 `json:"avg_tokens_per_second"`
	TTFT            float64 `json:"avg_ttft_s"`
}

// Trends averages every stored sample per model.
func (s *SQLiteStore) Trends(ctx context.Context) ([]ModelTrend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COUNT(*), AVG(tokens_per_second), AVG(ttft_s)
		FROM samples GROUP BY model ORDER BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModelTrend
	for rows.Next() {
		var t ModelTrend
		if err := rows.Scan(&t.Model, &t.Samples, &t.TokensPerSecond, &t.TTFT); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}
