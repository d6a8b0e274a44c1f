package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound indicates no conversation record exists for the given ID.
var ErrNotFound = errors.New("conversation not found")

// Store is a file-backed keyed record store for conversation contexts.
// One JSON file per conversation under the store directory. Records are
// never deleted automatically; only an explicit reset removes them.
type Store struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created on
// first write, not here.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-conversation mutex and returns its release func.
// Every start/advance/jump request for a conversation runs to completion
// under this lock before the next is admitted.
func (s *Store) Lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get retrieves a conversation record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing conversation %s: %w", id, err)
	}
	return &c, nil
}

// Put writes a conversation record. The write is all-or-nothing: content
// lands in a temp file first and is renamed into place.
func (s *Store) Put(ctx context.Context, c *Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.ID == "" {
		return errors.New("conversation id is required")
	}

	c.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling conversation %s: %w", c.ID, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, c.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing conversation %s: %w", c.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(c.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing conversation %s: %w", c.ID, err)
	}

	s.logger.Debug("conversation persisted",
		zap.String("conversation_id", c.ID),
		zap.String("phase", c.CurrentPhase),
	)
	return nil
}

// Delete removes a conversation record. Deleting an absent record is
// success, so resets are idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
