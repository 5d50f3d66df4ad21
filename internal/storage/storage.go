// Package storage keeps the history of finished benchmark runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/config"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store persists runs. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, run *benchmark.Run) error
	Get(ctx context.Context, id string) (*benchmark.Run, error)
	// List returns entries newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Entry is the summary of a stored run.
type Entry struct {
	ID          string              `json:"id"`
	Status      benchmark.RunStatus `json:"status"`
	Models      []string            `json:"models"`
	Prompts     []string            `json:"prompts"`
	Runs        int                 `json:"runs"`
	Samples     int                 `json:"samples"`
	Failures    int                 `json:"failures"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
}

func entryFor(run *benchmark.Run) Entry {
	return Entry{
		ID:          run.ID,
		Status:      run.Status,
		Models:      append([]string(nil), run.Request.Models...),
		Prompts:     append([]string(nil), run.Request.Prompts...),
		Runs:        run.Request.Runs,
		Samples:     len(run.Samples),
		Failures:    len(run.Failures),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
}

const sqliteFileName = "benchfox.db"

// Open returns the store selected by cfg.Backend.
func Open(cfg config.PersistenceConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		fs := NewFileStore(cfg.DataDir, time.Duration(cfg.FlushIntervalSec)*time.Second, logger)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		fs.Start(context.Background())
		return fs, nil
	case "sqlite":
		return OpenSQLite(filepath.Join(cfg.DataDir, sqliteFileName), logger)
	default:
		return nil, fmt.Errorf("unknown persistence backend: %s", cfg.Backend)
	}
}
