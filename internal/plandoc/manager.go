// Package plandoc owns the plan document: the single persistent,
// human-and-agent-readable record of a work unit's progress.
//
// The document has one section per workflow phase, in declaration order,
// each tagged with a machine-readable phase marker. Two interchangeable
// strategies exist: inline (tasks as a checklist in the document) and
// delegated (tasks live in an external tracker, the document carries only
// task-id markers and narrative memory). Writes are wholesale and atomic.
package plandoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/workflow"
	"go.uber.org/zap"
)

// Manager is the plan-document capability, identical across strategies.
type Manager interface {
	// Strategy identifies the concrete implementation.
	Strategy() conversation.PlanStrategy

	// InitialContent renders the document for a work unit that has no
	// plan yet: one section per phase in declared order.
	InitialContent(projectPath, branch string) string

	// EnsureExists creates the document with initial content when absent.
	// Missing parent directories are created transparently.
	EnsureExists(ctx context.Context, path, projectPath, branch string) (created bool, err error)

	// Read returns the document content and whether it exists.
	Read(ctx context.Context, path string) (content string, exists bool, err error)

	// Write replaces the document wholesale. The write is atomic at the
	// file level; a failed write never leaves a partial document.
	Write(ctx context.Context, path, content string) error

	// Guidance returns strategy-specific instructions for maintaining
	// the document while working in the given phase.
	Guidance(phase workflow.PhaseID) string

	// Delete removes the document. Deleting an absent document is
	// success; the bool reports whether a file was actually removed.
	Delete(ctx context.Context, path string) (bool, error)

	// ConfirmDeleted reports that no document exists at the path.
	ConfirmDeleted(path string) bool
}

// New selects the strategy implementation for a conversation. The choice
// is made once at context creation and stored with the conversation, not
// re-derived per call.
func New(strategy conversation.PlanStrategy, def *workflow.Definition, logger *zap.Logger) (Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := docManager{def: def, logger: logger}

	switch strategy {
	case conversation.StrategyInline, "":
		return &inlineManager{docManager: base}, nil
	case conversation.StrategyDelegated:
		return &delegatedManager{docManager: base}, nil
	default:
		return nil, fmt.Errorf("unknown plan strategy %q", strategy)
	}
}

// docManager carries the behavior shared by both strategies.
type docManager struct {
	def    *workflow.Definition
	logger *zap.Logger
}

func (m *docManager) Read(ctx context.Context, path string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading plan document %s: %w", path, err)
	}
	return string(data), true, nil
}

func (m *docManager) Write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating plan directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".plan.*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp plan file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing plan document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp plan file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing plan document %s: %w", path, err)
	}

	m.logger.Debug("plan document written", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}

func (m *docManager) Delete(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("deleting plan document %s: %w", path, err)
}

func (m *docManager) ConfirmDeleted(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

func (m *docManager) ensureExists(ctx context.Context, path, initial string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking plan document %s: %w", path, err)
	}
	if err := m.Write(ctx, path, initial); err != nil {
		return false, err
	}
	return true, nil
}
