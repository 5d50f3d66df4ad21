package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haskel/benchfox/internal/benchmark"
)

// index is the persisted list of stored runs.
type index struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Runs      map[string]*Entry `json:"runs"`
}

const (
	currentVersion = 1
	indexFileName  = "history.json"
	runsDirName    = "runs"
)

// FileStore writes each run as its own JSON document and keeps an index
// that is flushed to disk periodically.
type FileStore struct {
	dataDir       string
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.RWMutex
	index  *index
	dirty  bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFileStore(dataDir string, flushInterval time.Duration, logger *slog.Logger) *FileStore {
	if flushInterval <= 0 {
		flushInterval = time.Minute
	}
	return &FileStore{
		dataDir:       dataDir,
		flushInterval: flushInterval,
		logger:        logger,
		index:         newIndex(),
		done:          make(chan struct{}),
	}
}

func newIndex() *index {
	return &index{
		Version:   currentVersion,
		UpdatedAt: time.Now(),
		Runs:      make(map[string]*Entry),
	}
}

// Load reads the index from disk and adds any run documents it misses.
// A missing or unreadable index starts fresh.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = s.readIndex()

	entries, err := os.ReadDir(s.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	recovered := 0
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() {
			continue
		}
		if _, indexed := s.index.Runs[id]; indexed {
			continue
		}

		run, err := s.readRun(id)
		if err != nil {
			s.logger.Warn("skipping unreadable run document", "id", id, "error", err)
			continue
		}
		entry := entryFor(run)
		s.index.Runs[id] = &entry
		recovered++
	}

	if recovered > 0 {
		s.dirty = true
		s.logger.Info("recovered runs missing from index", "count", recovered)
	}

	return nil
}

func (s *FileStore) readIndex() *index {
	filePath := filepath.Join(s.dataDir, indexFileName)

	file, err := os.Open(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to open history index, starting fresh", "error", err)
		} else {
			s.logger.Info("no existing history index, starting fresh", "path", filePath)
		}
		return newIndex()
	}
	defer file.Close()

	var idx index
	if err := json.NewDecoder(file).Decode(&idx); err != nil {
		s.logger.Warn("failed to decode history index, starting fresh", "error", err)
		return newIndex()
	}

	if idx.Version > currentVersion {
		s.logger.Warn("history index version is newer than supported, starting fresh",
			"file_version", idx.Version,
			"supported_version", currentVersion,
		)
		return newIndex()
	}

	if idx.Runs == nil {
		idx.Runs = make(map[string]*Entry)
	}

	s.logger.Info("loaded history index", "path", filePath, "runs", len(idx.Runs))
	return &idx
}

// Save writes the run document immediately; the index follows on the next
// flush.
func (s *FileStore) Save(ctx context.Context, run *benchmark.Run) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	if err := writeJSON(s.runsDir(), run.ID+".json", run); err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}

	entry := entryFor(run)

	s.mu.Lock()
	s.index.Runs[run.ID] = &entry
	s.dirty = true
	s.mu.Unlock()

	s.logger.Debug("saved run", "id", run.ID, "samples", entry.Samples)
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*benchmark.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	_, ok := s.index.Runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	return s.readRun(id)
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.index.Runs))
	for _, e := range s.index.Runs {
		out = append(out, *e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Flush writes the index if it changed.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	s.index.UpdatedAt = time.Now()
	if err := writeJSON(s.dataDir, indexFileName, s.index); err != nil {
		return err
	}

	s.dirty = false
	s.logger.Debug("saved history index", "runs", len(s.index.Runs))
	return nil
}

// Start starts the periodic index flush.
func (s *FileStore) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.flushLoop(ctx)
}

// Close stops the flush loop and writes the final index.
func (s *FileStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}

	return s.Flush()
}

func (s *FileStore) flushLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				s.logger.Error("failed to save history index", "error", err)
			}
		}
	}
}

func (s *FileStore) runsDir() string {
	return filepath.Join(s.dataDir, runsDirName)
}

func (s *FileStore) readRun(id string) (*benchmark.Run, error) {
	file, err := os.Open(filepath.Join(s.runsDir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer file.Close()

	var run benchmark.Run
	if err := json.NewDecoder(file).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}

// writeJSON writes v to dir/name through a temp file and rename.
func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	filePath := filepath.Join(dir, name)
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return err
	}

	return nil
}
