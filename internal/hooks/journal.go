package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Journal records lifecycle events to an append-only JSONL file, one line
// per event. It demonstrates the intended hook usage: side effects beside
// the core, no reach into the engine.
type Journal struct {
	path   string
	logger *zap.Logger
}

// JournalEntry is one recorded lifecycle event.
type JournalEntry struct {
	ID             string    `json:"id"`
	Event          string    `json:"event"`
	ConversationID string    `json:"conversation_id"`
	WorkflowName   string    `json:"workflow_name"`
	Phase          string    `json:"phase"`
	TargetPhase    string    `json:"target_phase,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// NewJournal creates a journal hook writing to the given file.
func NewJournal(path string, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{path: path, logger: logger}
}

func (j *Journal) Name() string  { return "journal" }
func (j *Journal) Priority() int { return 100 }

func (j *Journal) AfterStart(ctx context.Context, hctx *Context) error {
	return j.record("start", hctx, "")
}

func (j *Journal) BeforePhaseTransition(ctx context.Context, hctx *Context, targetPhase string) error {
	// Journaling failures must not abort a transition; they are logged
	// and swallowed.
	if err := j.record("transition", hctx, targetPhase); err != nil {
		j.logger.Warn("journal write failed", zap.Error(err))
	}
	return nil
}

func (j *Journal) record(event string, hctx *Context, target string) error {
	entry := JournalEntry{
		ID:             uuid.New().String(),
		Event:          event,
		ConversationID: hctx.ConversationID,
		WorkflowName:   hctx.WorkflowName,
		Phase:          hctx.CurrentPhase,
		TargetPhase:    target,
		RecordedAt:     time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling journal entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending journal entry: %w", err)
	}
	return nil
}

var (
	_ AfterStarter    = (*Journal)(nil)
	_ TransitionGuard = (*Journal)(nil)
)
