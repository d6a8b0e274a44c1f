// Package hooks provides the ordered lifecycle hook pipeline for phased.
//
// Hooks observe orchestration operations and may produce side effects or
// transform specific payloads, without coupling into the core logic. They
// receive only a read-only context projection, never the engine, store, or
// plan manager instances, so they cannot bypass the transition gates.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Context is the read-only projection handed to every hook. It combines
// the conversation's public fields with the workflow definition's public
// fields.
type Context struct {
	ConversationID      string
	ProjectPath         string
	Branch              string
	WorkflowName        string
	WorkflowDescription string
	CurrentPhase        string
	PlanFilePath        string
	AgentRole           string
	RequireReviews      bool
}

// Hook is the base subscriber record. Concrete hooks additionally
// implement any subset of the lifecycle interfaces below; the registry
// calls whichever hook points a subscriber exposes.
type Hook interface {
	// Name identifies the hook in logs and errors.
	Name() string

	// Priority orders execution: lower runs first, ties keep
	// registration order.
	Priority() int
}

// BeforeStarter runs before a conversation is created.
type BeforeStarter interface {
	Hook
	BeforeStart(ctx context.Context, hctx *Context) error
}

// AfterStarter runs after a conversation has been created and its
// initial instructions generated.
type AfterStarter interface {
	Hook
	AfterStart(ctx context.Context, hctx *Context) error
}

// PlanDocumentTransformer runs after initial plan-document content is
// rendered and may transform it. The returned content is threaded to the
// next hook and finally written to disk.
type PlanDocumentTransformer interface {
	Hook
	AfterPlanDocumentCreated(ctx context.Context, hctx *Context, content string) (string, error)
}

// TransitionGuard runs before a phase transition is committed. Returning
// an error aborts the transition; the error becomes the transition's
// failure reason.
type TransitionGuard interface {
	Hook
	BeforePhaseTransition(ctx context.Context, hctx *Context, targetPhase string) error
}

// InstructionsTransformer runs after instructions are synthesized and may
// transform them. The returned text is threaded to the next hook and
// finally to the caller.
type InstructionsTransformer interface {
	Hook
	AfterInstructionsGenerated(ctx context.Context, hctx *Context, instructions string) (string, error)
}

// Registry holds registered hooks in execution order. It is explicitly
// constructed and owned by the orchestration core; there is no global
// mutable registry.
type Registry struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a hook. Hooks run in ascending priority order; equal
// priorities keep registration order.
func (r *Registry) Register(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
	sort.SliceStable(r.hooks, func(i, j int) bool {
		return r.hooks[i].Priority() < r.hooks[j].Priority()
	})
}

// snapshot returns the hooks in execution order.
func (r *Registry) snapshot() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, len(r.hooks))
	copy(out, r.hooks)
	return out
}

// RunBeforeStart invokes every BeforeStarter in order.
func (r *Registry) RunBeforeStart(ctx context.Context, hctx *Context) error {
	for _, h := range r.snapshot() {
		hook, ok := h.(BeforeStarter)
		if !ok {
			continue
		}
		if err := hook.BeforeStart(ctx, hctx); err != nil {
			return fmt.Errorf("hook %s: before start: %w", h.Name(), err)
		}
	}
	return nil
}

// RunAfterStart invokes every AfterStarter in order.
func (r *Registry) RunAfterStart(ctx context.Context, hctx *Context) error {
	for _, h := range r.snapshot() {
		hook, ok := h.(AfterStarter)
		if !ok {
			continue
		}
		if err := hook.AfterStart(ctx, hctx); err != nil {
			return fmt.Errorf("hook %s: after start: %w", h.Name(), err)
		}
	}
	return nil
}

// RunPlanDocumentCreated threads initial plan content through every
// PlanDocumentTransformer in order and returns the final content.
func (r *Registry) RunPlanDocumentCreated(ctx context.Context, hctx *Context, content string) (string, error) {
	for _, h := range r.snapshot() {
		hook, ok := h.(PlanDocumentTransformer)
		if !ok {
			continue
		}
		transformed, err := hook.AfterPlanDocumentCreated(ctx, hctx, content)
		if err != nil {
			return "", fmt.Errorf("hook %s: plan document created: %w", h.Name(), err)
		}
		content = transformed
	}
	return content, nil
}

// RunBeforePhaseTransition invokes every TransitionGuard in order. The
// first error aborts the transition.
func (r *Registry) RunBeforePhaseTransition(ctx context.Context, hctx *Context, targetPhase string) error {
	for _, h := range r.snapshot() {
		hook, ok := h.(TransitionGuard)
		if !ok {
			continue
		}
		if err := hook.BeforePhaseTransition(ctx, hctx, targetPhase); err != nil {
			return fmt.Errorf("hook %s: transition aborted: %w", h.Name(), err)
		}
	}
	return nil
}

// RunInstructionsGenerated threads synthesized instructions through every
// InstructionsTransformer in order and returns the final text.
func (r *Registry) RunInstructionsGenerated(ctx context.Context, hctx *Context, instructions string) (string, error) {
	for _, h := range r.snapshot() {
		hook, ok := h.(InstructionsTransformer)
		if !ok {
			continue
		}
		transformed, err := hook.AfterInstructionsGenerated(ctx, hctx, instructions)
		if err != nil {
			return "", fmt.Errorf("hook %s: instructions generated: %w", h.Name(), err)
		}
		instructions = transformed
	}
	return instructions, nil
}
