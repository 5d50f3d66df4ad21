package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRun(started time.Time, status benchmark.RunStatus, samples int) *benchmark.Run {
	run := &benchmark.Run{
		ID:     uuid.NewString(),
		Status: status,
		Request: benchmark.Request{
			Models:  []string{"llama3.2:1b"},
			Prompts: []string{"quick_qa"},
			Runs:    samples,
		},
		TotalSteps:  samples,
		StartedAt:   started.UTC(),
		CompletedAt: started.Add(time.Minute).UTC(),
	}
	for i := 1; i <= samples; i++ {
		run.Samples = append(run.Samples, benchmark.Sample{
			Model:           "llama3.2:1b",
			PromptID:        "quick_qa",
			Run:             i,
			Timestamp:       started.UTC(),
			EvalCount:       100,
			EvalDuration:    time.Second,
			TokensPerSecond: 100,
			ComputeMode:     benchmark.ComputeGPU,
		})
	}
	return run
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s := NewFileStore(t.TempDir(), time.Hour, testLogger())
		if err := s.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), testLogger())
		if err != nil {
			t.Fatalf("OpenSQLite failed: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestStore_SaveGet(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := testRun(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), benchmark.RunCompleted, 3)

		if err := s.Save(ctx, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := s.Get(ctx, run.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if got.ID != run.ID {
			t.Errorf("expected id %s, got %s", run.ID, got.ID)
		}
		if len(got.Samples) != 3 {
			t.Errorf("expected 3 samples, got %d", len(got.Samples))
		}
		if got.Samples[2].Run != 3 {
			t.Errorf("expected run number 3, got %d", got.Samples[2].Run)
		}
		if !got.StartedAt.Equal(run.StartedAt) {
			t.Errorf("expected started_at %v, got %v", run.StartedAt, got.StartedAt)
		}
	})
}

func TestStore_GetUnknown(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for _, id := range []string{uuid.NewString(), "../../etc/passwd", ""} {
			_, err := s.Get(context.Background(), id)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound for %q, got %v", id, err)
			}
		}
	})
}

func TestStore_ListNewestFirst(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

		var ids []string
		for i := 0; i < 3; i++ {
			run := testRun(base.Add(time.Duration(i)*time.Hour), benchmark.RunCompleted, 1)
			ids = append(ids, run.ID)
			if err := s.Save(ctx, run); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}

		entries, err := s.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		if entries[0].ID != ids[2] || entries[2].ID != ids[0] {
			t.Errorf("expected newest first, got %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
		}
		if entries[0].Samples != 1 || entries[0].Models[0] != "llama3.2:1b" {
			t.Errorf("unexpected entry: %+v", entries[0])
		}

		limited, err := s.List(ctx, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 entries, got %d", len(limited))
		}
	})
}

func TestStore_SaveOverwrites(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		run := testRun(time.Now(), benchmark.RunCancelled, 1)
		if err := s.Save(ctx, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		run.Status = benchmark.RunCompleted
		run.Samples = append(run.Samples, run.Samples[0])
		if err := s.Save(ctx, run); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		entries, _ := s.List(ctx, 0)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Status != benchmark.RunCompleted || entries[0].Samples != 2 {
			t.Errorf("expected updated entry, got %+v", entries[0])
		}
	})
}

func TestFileStore_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(dir, time.Hour, testLogger())
	run := testRun(time.Now(), benchmark.RunCompleted, 2)
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, indexFileName)); err != nil {
		t.Fatalf("expected index file: %v", err)
	}

	s2 := NewFileStore(dir, time.Hour, testLogger())
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got, err := s2.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(got.Samples))
	}
}

func TestFileStore_RecoversUnindexedRuns(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// saved but never flushed
	s := NewFileStore(dir, time.Hour, testLogger())
	run := testRun(time.Now(), benchmark.RunCompleted, 1)
	if err := s.Save(ctx, run); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2 := NewFileStore(dir, time.Hour, testLogger())
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entries, _ := s2.List(ctx, 0)
	if len(entries) != 1 || entries[0].ID != run.ID {
		t.Errorf("expected recovered run %s, got %+v", run.ID, entries)
	}
}

func TestFileStore_CorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(dir, time.Hour, testLogger())
	if err := s.Load(); err != nil {
		t.Fatalf("Load should not fail on corrupt index: %v", err)
	}

	entries, _ := s.List(context.Background(), 0)
	if len(entries) != 0 {
		t.Errorf("expected empty history, got %d", len(entries))
	}
}

func TestFileStore_RejectsBadID(t *testing.T) {
	s := NewFileStore(t.TempDir(), time.Hour, testLogger())
	run := testRun(time.Now(), benchmark.RunCompleted, 1)
	run.ID = "../escape"

	if err := s.Save(context.Background(), run); err == nil {
		t.Error("expected error for non-uuid id")
	}
}

func TestSQLiteStore_Trends(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), testLogger())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.Save(ctx, testRun(time.Now(), benchmark.RunCompleted, 2)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	trends, err := s.Trends(ctx)
	if err != nil {
		t.Fatalf("Trends failed: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("expected 1 model, got %d", len(trends))
	}
	if trends[0].Samples != 4 {
		t.Errorf("expected 4 samples, got %d", trends[0].Samples)
	}
	if trends[0].TokensPerSecond != 100 {
		t.Errorf("expected 100 tok/s, got %f", trends[0].TokensPerSecond)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"file", false},
		{"sqlite", false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(config.PersistenceConfig{
				Backend:          tt.backend,
				DataDir:          t.TempDir(),
				FlushIntervalSec: 60,
			}, testLogger())

			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		})
	}
}
