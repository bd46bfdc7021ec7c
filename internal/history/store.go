package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store abstracts durable persistence of the History structure.
type Store interface {
	Load(ctx context.Context) (History, error)
	Save(ctx context.Context, h History) error
}

// FileStore persists the history as a single JSON file keyed by model and date.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore wires a JSON file path into a FileStore.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "history_store").Logger(),
	}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted history. A missing file yields an empty history.
// A corrupt file is logged as a data-integrity warning and also yields an
// empty history: the error log is advisory, losing it must not stop the run.
func (s *FileStore) Load(ctx context.Context) (History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.path).Msg("no history file yet, starting empty")
			return History{}, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("history file corrupt, resetting to empty")
		return History{}, nil
	}
	if h == nil {
		h = History{}
	}
	return h, nil
}

// Save writes the full history atomically: temp file in the target directory,
// then rename, so a crash mid-write never leaves a partial file behind.
func (s *FileStore) Save(ctx context.Context, h History) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".error_history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp history file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
