// Package engine advances conversations through their workflow graphs.
//
// The engine is the only component that mutates conversation phase state.
// Every operation loads the workflow definition, judges legality through
// the gate pipeline, persists the new phase, keeps the plan document
// current, and synthesizes the guidance returned to the caller. Lifecycle
// hooks run around each step.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/hooks"
	"github.com/fyrsmithlabs/phased/internal/instructions"
	"github.com/fyrsmithlabs/phased/internal/plandoc"
	"github.com/fyrsmithlabs/phased/internal/taskbackend"
	"github.com/fyrsmithlabs/phased/internal/vcs"
	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// PlanFileName is the conventional plan document location relative to the
// project root.
var PlanFileName = filepath.Join(".phased", "development-plan.md")

// Config holds the engine's operating parameters.
type Config struct {
	// WorkflowSearchPaths are consulted before built-in workflows.
	WorkflowSearchPaths []string

	// Backend configures task backend resolution per invocation.
	Backend taskbackend.Config

	// AgentRole identifies this agent in collaborative workflows.
	AgentRole string

	// RequireReviewsByDefault turns review gating on for new conversations
	// that do not request it explicitly.
	RequireReviewsByDefault bool
}

// Service orchestrates starts, transitions, and resets.
type Service struct {
	cfg      Config
	registry *workflow.Registry
	store    *conversation.Store
	hooks    *hooks.Registry
	logger   *zap.Logger

	// resolveBackend is swappable in tests.
	resolveBackend func(ctx context.Context) taskbackend.Backend
}

// NewService creates the orchestration service.
func NewService(cfg Config, registry *workflow.Registry, store *conversation.Store, hookReg *hooks.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hookReg == nil {
		hookReg = hooks.NewRegistry()
	}
	s := &Service{
		cfg:      cfg,
		registry: registry,
		store:    store,
		hooks:    hookReg,
		logger:   logger,
	}
	s.resolveBackend = func(ctx context.Context) taskbackend.Backend {
		backend, err := taskbackend.Resolve(ctx, cfg.Backend, logger)
		if err != nil {
			logger.Warn("task backend resolution failed, using inline", zap.Error(err))
			return taskbackend.NewInline()
		}
		return backend
	}
	return s
}

// SetBackendResolver overrides backend resolution. Intended for tests and
// embedding callers that manage their own backend lifecycle.
func (s *Service) SetBackendResolver(fn func(ctx context.Context) taskbackend.Backend) {
	s.resolveBackend = fn
}

// StartRequest begins (or resumes) tracking a work unit.
type StartRequest struct {
	Workflow       string
	ProjectPath    string
	RequireReviews bool
}

// StartResult reports the conversation's state after a start call.
type StartResult struct {
	ConversationID string
	Phase          string
	Instructions   string
	PlanFilePath   string
	IsNew          bool
}

// TransitionOption describes one legal outgoing edge, surfaced so callers
// can discover what advancement is possible.
type TransitionOption struct {
	Trigger          string `json:"trigger"`
	TargetPhase      string `json:"target_phase"`
	TransitionReason string `json:"transition_reason,omitempty"`
}

// StatusResult reports where a conversation currently stands.
type StatusResult struct {
	ConversationID string
	WorkflowName   string
	Phase          string
	Instructions   string
	Transitions    []TransitionOption
}

// TransitionRequest advances a conversation, either by trigger (modeled)
// or by naming the target phase directly (explicit jump).
type TransitionRequest struct {
	ProjectPath string
	Trigger     string
	TargetPhase string
	Reason      string
	ReviewState ReviewState
}

// TransitionResult reports a committed transition.
type TransitionResult struct {
	ConversationID   string
	NewPhase         string
	TransitionReason string
	Instructions     string
	IsModeled        bool
}

// Start creates the conversation for (project, branch) if absent and
// returns the current phase with synthesized instructions. Starting an
// already-tracked work unit is a resume, not an error.
func (s *Service) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	projectPath, err := normalizeProjectPath(req.ProjectPath)
	if err != nil {
		return nil, err
	}
	workflowName := req.Workflow
	if workflowName == "" {
		workflowName = "minor"
	}

	def, err := s.registry.Load(workflowName, s.cfg.WorkflowSearchPaths)
	if err != nil {
		return nil, err
	}

	branch := vcs.BranchOrDefault(projectPath)
	id := conversation.ContextID(projectPath, branch)
	release := s.store.Lock(id)
	defer release()

	backend := s.resolveBackend(ctx)

	conv, err := s.store.Get(ctx, id)
	isNew := false
	switch {
	case err == nil:
		if conv.WorkflowName != workflowName {
			s.logger.Warn("start requested a different workflow for an existing conversation; keeping the original",
				zap.String("conversation_id", id),
				zap.String("existing", conv.WorkflowName),
				zap.String("requested", workflowName),
			)
			if def, err = s.registry.Load(conv.WorkflowName, s.cfg.WorkflowSearchPaths); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, conversation.ErrNotFound):
		isNew = true
		conv = &conversation.Context{
			ID:             id,
			ProjectPath:    projectPath,
			Branch:         branch,
			WorkflowName:   workflowName,
			CurrentPhase:   string(def.InitialPhase),
			PlanFilePath:   filepath.Join(projectPath, PlanFileName),
			PlanStrategy:   strategyFor(ctx, backend),
			RequireReviews: req.RequireReviews || s.cfg.RequireReviewsByDefault,
			AgentRole:      s.cfg.AgentRole,
		}
		hctx := s.hookContext(conv, def)
		if err := s.hooks.RunBeforeStart(ctx, hctx); err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, conv); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	mgr, err := plandoc.New(conv.PlanStrategy, def, s.logger)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePlanDocument(ctx, conv, def, mgr); err != nil {
		return nil, err
	}
	s.resolvePhaseTask(ctx, conv, mgr, backend)

	text, err := s.buildInstructions(ctx, conv, def, mgr, backend, phaseInstructions(def, conv.CurrentPhase))
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterStart(ctx, s.hookContext(conv, def)); err != nil {
		return nil, err
	}

	s.logger.Info("conversation started",
		zap.String("conversation_id", conv.ID),
		zap.String("workflow", conv.WorkflowName),
		zap.String("phase", conv.CurrentPhase),
		zap.Bool("new", isNew),
	)

	return &StartResult{
		ConversationID: conv.ID,
		Phase:          conv.CurrentPhase,
		Instructions:   text,
		PlanFilePath:   conv.PlanFilePath,
		IsNew:          isNew,
	}, nil
}

// Status reports the conversation's current phase, instructions, and the
// outgoing transitions available from it.
func (s *Service) Status(ctx context.Context, projectPath string) (*StatusResult, error) {
	conv, def, release, err := s.lookup(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	defer release()

	mgr, err := plandoc.New(conv.PlanStrategy, def, s.logger)
	if err != nil {
		return nil, err
	}
	// The plan document is advisory; regenerate it when missing.
	if err := s.ensurePlanDocument(ctx, conv, def, mgr); err != nil {
		return nil, err
	}

	backend := s.resolveBackend(ctx)
	text, err := s.buildInstructions(ctx, conv, def, mgr, backend, phaseInstructions(def, conv.CurrentPhase))
	if err != nil {
		return nil, err
	}

	var options []TransitionOption
	if phase, ok := def.Phase(workflow.PhaseID(conv.CurrentPhase)); ok {
		for i := range phase.Transitions {
			tr := &phase.Transitions[i]
			options = append(options, TransitionOption{
				Trigger:          tr.Trigger,
				TargetPhase:      string(tr.To),
				TransitionReason: tr.TransitionReason,
			})
		}
	}

	return &StatusResult{
		ConversationID: conv.ID,
		WorkflowName:   conv.WorkflowName,
		Phase:          conv.CurrentPhase,
		Instructions:   text,
		Transitions:    options,
	}, nil
}

// Advance moves the conversation along one edge. A non-empty Trigger
// selects modeled advancement; otherwise TargetPhase selects an explicit
// jump. Gate rejections leave the current phase untouched.
func (s *Service) Advance(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	conv, def, release, err := s.lookup(ctx, req.ProjectPath)
	if err != nil {
		return nil, err
	}
	defer release()

	phase, ok := def.Phase(workflow.PhaseID(conv.CurrentPhase))
	if !ok {
		return nil, fmt.Errorf("conversation %s is in phase %q which workflow %q does not declare",
			conv.ID, conv.CurrentPhase, conv.WorkflowName)
	}

	modeled := req.Trigger != ""
	var edge *workflow.Transition
	if modeled {
		edge, ok = phase.TransitionByTrigger(req.Trigger)
		if !ok {
			return nil, &TransitionError{
				Code:         CodeUnknownTrigger,
				CurrentPhase: conv.CurrentPhase,
				Trigger:      req.Trigger,
				Message: fmt.Sprintf("phase %q has no transition with trigger %q; available: %s",
					conv.CurrentPhase, req.Trigger, strings.Join(triggerNames(phase), ", ")),
			}
		}
	} else {
		edge, err = s.selectJumpEdge(conv, def, phase, workflow.PhaseID(req.TargetPhase))
		if err != nil {
			return nil, err
		}
	}

	backend := s.resolveBackend(ctx)
	mgr, err := plandoc.New(conv.PlanStrategy, def, s.logger)
	if err != nil {
		return nil, err
	}

	attempt := &Attempt{
		Conversation: conv,
		Definition:   def,
		Edge:         edge,
		ReviewState:  req.ReviewState,
		PhaseTaskID:  s.currentPhaseTaskID(ctx, conv, mgr),
	}
	for _, gate := range gatePipeline(backend, s.logger) {
		if err := gate.Check(ctx, attempt); err != nil {
			s.logger.Debug("transition rejected",
				zap.String("conversation_id", conv.ID),
				zap.String("gate", gate.Name()),
				zap.String("from", conv.CurrentPhase),
				zap.String("to", string(edge.To)),
			)
			return nil, err
		}
	}

	if err := s.hooks.RunBeforePhaseTransition(ctx, s.hookContext(conv, def), string(edge.To)); err != nil {
		return nil, err
	}

	previous := conv.CurrentPhase
	conv.CurrentPhase = string(edge.To)
	if err := s.store.Put(ctx, conv); err != nil {
		conv.CurrentPhase = previous
		return nil, err
	}

	if err := s.ensurePlanDocument(ctx, conv, def, mgr); err != nil {
		// Phase state is authoritative; a failed plan write is surfaced
		// but the committed transition stands.
		return nil, err
	}
	s.resolvePhaseTask(ctx, conv, mgr, backend)

	reason := edge.TransitionReason
	if reason == "" {
		reason = req.Reason
	}

	base := edge.Instructions
	if base == "" {
		base = phaseInstructions(def, conv.CurrentPhase)
	}
	if edge.AdditionalInstructions != "" {
		base = base + "\n\n" + edge.AdditionalInstructions
	}

	text, err := s.buildInstructions(ctx, conv, def, mgr, backend, base)
	if err != nil {
		return nil, err
	}

	s.logger.Info("phase transition committed",
		zap.String("conversation_id", conv.ID),
		zap.String("from", previous),
		zap.String("to", conv.CurrentPhase),
		zap.Bool("modeled", modeled),
	)

	return &TransitionResult{
		ConversationID:   conv.ID,
		NewPhase:         conv.CurrentPhase,
		TransitionReason: reason,
		Instructions:     text,
		IsModeled:        modeled,
	}, nil
}

// Reset deletes the conversation and its plan document. Resetting an
// untracked project is success.
func (s *Service) Reset(ctx context.Context, projectPath string) error {
	projectPath, err := normalizeProjectPath(projectPath)
	if err != nil {
		return err
	}
	branch := vcs.BranchOrDefault(projectPath)
	id := conversation.ContextID(projectPath, branch)
	release := s.store.Lock(id)
	defer release()

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			return nil
		}
		return err
	}

	def, err := s.registry.Load(conv.WorkflowName, s.cfg.WorkflowSearchPaths)
	if err == nil {
		if mgr, mgrErr := plandoc.New(conv.PlanStrategy, def, s.logger); mgrErr == nil {
			if _, delErr := mgr.Delete(ctx, conv.PlanFilePath); delErr != nil {
				return delErr
			}
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("conversation reset", zap.String("conversation_id", id))
	return nil
}

// ListWorkflows enumerates available workflow definitions.
func (s *Service) ListWorkflows() []workflow.Info {
	return s.registry.List(s.cfg.WorkflowSearchPaths)
}

// lookup loads the conversation and workflow for a project and acquires
// the per-conversation lock. The caller must invoke release.
func (s *Service) lookup(ctx context.Context, projectPath string) (*conversation.Context, *workflow.Definition, func(), error) {
	projectPath, err := normalizeProjectPath(projectPath)
	if err != nil {
		return nil, nil, nil, err
	}
	branch := vcs.BranchOrDefault(projectPath)
	id := conversation.ContextID(projectPath, branch)
	release := s.store.Lock(id)

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		release()
		return nil, nil, nil, err
	}

	def, err := s.registry.Load(conv.WorkflowName, s.cfg.WorkflowSearchPaths)
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return conv, def, release, nil
}

// selectJumpEdge finds the edge for an explicit jump: any edge from the
// current phase to the target, role-compatible when role gating applies.
func (s *Service) selectJumpEdge(conv *conversation.Context, def *workflow.Definition, phase *workflow.Phase, target workflow.PhaseID) (*workflow.Transition, error) {
	edges := phase.TransitionsTo(target)
	if len(edges) == 0 {
		return nil, &TransitionError{
			Code:         CodeNoSuchEdge,
			CurrentPhase: conv.CurrentPhase,
			TargetPhase:  string(target),
			Message: fmt.Sprintf("phase %q has no transition to %q; reachable: %s",
				conv.CurrentPhase, target, strings.Join(targetNames(phase), ", ")),
		}
	}

	if !def.HasCollaboration() || conv.AgentRole == "" {
		return edges[0], nil
	}
	for _, edge := range edges {
		if edge.Role == "" || edge.Role == conv.AgentRole {
			return edge, nil
		}
	}
	return nil, &TransitionError{
		Code:         CodeRoleNotPermitted,
		CurrentPhase: conv.CurrentPhase,
		TargetPhase:  string(target),
		Message: fmt.Sprintf("role %q may not move from %q to %q: every edge to that phase is reserved for other roles",
			conv.AgentRole, conv.CurrentPhase, target),
	}
}

// ensurePlanDocument creates the plan document when absent, threading the
// initial content through the plan-document hooks.
func (s *Service) ensurePlanDocument(ctx context.Context, conv *conversation.Context, def *workflow.Definition, mgr plandoc.Manager) error {
	_, exists, err := mgr.Read(ctx, conv.PlanFilePath)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	content := mgr.InitialContent(conv.ProjectPath, conv.Branch)
	content, err = s.hooks.RunPlanDocumentCreated(ctx, s.hookContext(conv, def), content)
	if err != nil {
		return err
	}
	if err := mgr.Write(ctx, conv.PlanFilePath, content); err != nil {
		return err
	}

	s.logger.Info("plan document created",
		zap.String("conversation_id", conv.ID),
		zap.String("path", conv.PlanFilePath),
		zap.String("strategy", string(conv.PlanStrategy)),
	)
	return nil
}

// resolvePhaseTask creates the backend task for the phase just entered
// when the delegated document still carries the pending marker. Failures
// are soft: the marker stays pending and resolution is retried on the
// next transition into the phase.
func (s *Service) resolvePhaseTask(ctx context.Context, conv *conversation.Context, mgr plandoc.Manager, backend taskbackend.Backend) {
	if conv.PlanStrategy != conversation.StrategyDelegated || !backend.IsAvailable(ctx) {
		return
	}

	content, exists, err := mgr.Read(ctx, conv.PlanFilePath)
	if err != nil || !exists {
		return
	}
	phaseID := workflow.PhaseID(conv.CurrentPhase)
	if plandoc.PhaseTaskID(content, phaseID) != "" {
		return
	}

	taskID, err := backend.CreateTask(ctx, fmt.Sprintf("Phase: %s", conv.CurrentPhase), "", "")
	if err != nil {
		s.logger.Warn("phase task creation failed, marker stays pending",
			zap.String("phase", conv.CurrentPhase),
			zap.Error(err),
		)
		return
	}

	updated, ok := plandoc.SetPhaseTaskID(content, phaseID, taskID)
	if !ok {
		return
	}
	if err := mgr.Write(ctx, conv.PlanFilePath, updated); err != nil {
		s.logger.Warn("recording phase task id failed", zap.Error(err))
	}
}

// currentPhaseTaskID pulls the current phase's backend task ID out of the
// plan document. Read failures resolve to "" so detection problems never
// block a transition.
func (s *Service) currentPhaseTaskID(ctx context.Context, conv *conversation.Context, mgr plandoc.Manager) string {
	if conv.PlanStrategy != conversation.StrategyDelegated {
		return ""
	}
	content, exists, err := mgr.Read(ctx, conv.PlanFilePath)
	if err != nil || !exists {
		return ""
	}
	return plandoc.PhaseTaskID(content, workflow.PhaseID(conv.CurrentPhase))
}

// buildInstructions synthesizes guidance and threads it through the
// instruction hooks.
func (s *Service) buildInstructions(ctx context.Context, conv *conversation.Context, def *workflow.Definition, mgr plandoc.Manager, backend taskbackend.Backend, base string) (string, error) {
	hint := ""
	if backend.IsAvailable(ctx) {
		hint = backend.Hint()
	}

	generated := instructions.Synthesize(base, instructions.Context{
		ProjectPath:   conv.ProjectPath,
		Branch:        conv.Branch,
		Phase:         conv.CurrentPhase,
		Role:          conv.AgentRole,
		Collaboration: def.HasCollaboration(),
		Drives:        roleDrives(def, conv),
		PlanGuidance:  mgr.Guidance(workflow.PhaseID(conv.CurrentPhase)),
		BackendHint:   hint,
	})

	return s.hooks.RunInstructionsGenerated(ctx, s.hookContext(conv, def), generated.Text)
}

func (s *Service) hookContext(conv *conversation.Context, def *workflow.Definition) *hooks.Context {
	return &hooks.Context{
		ConversationID:      conv.ID,
		ProjectPath:         conv.ProjectPath,
		Branch:              conv.Branch,
		WorkflowName:        conv.WorkflowName,
		WorkflowDescription: def.Description,
		CurrentPhase:        conv.CurrentPhase,
		PlanFilePath:        conv.PlanFilePath,
		AgentRole:           conv.AgentRole,
		RequireReviews:      conv.RequireReviews,
	}
}

// roleDrives reports whether the conversation's role may take at least
// one outgoing edge of the current phase.
func roleDrives(def *workflow.Definition, conv *conversation.Context) bool {
	if conv.AgentRole == "" {
		return false
	}
	phase, ok := def.Phase(workflow.PhaseID(conv.CurrentPhase))
	if !ok {
		return false
	}
	for i := range phase.Transitions {
		role := phase.Transitions[i].Role
		if role == "" || role == conv.AgentRole {
			return true
		}
	}
	return false
}

// strategyFor picks the plan strategy at conversation creation: delegated
// when a real task backend is active, inline otherwise.
func strategyFor(ctx context.Context, backend taskbackend.Backend) conversation.PlanStrategy {
	if backend.IsAvailable(ctx) {
		return conversation.StrategyDelegated
	}
	return conversation.StrategyInline
}

func phaseInstructions(def *workflow.Definition, phaseID string) string {
	if phase, ok := def.Phase(workflow.PhaseID(phaseID)); ok {
		return phase.DefaultInstructions
	}
	return ""
}

func triggerNames(phase *workflow.Phase) []string {
	names := make([]string, len(phase.Transitions))
	for i := range phase.Transitions {
		names[i] = phase.Transitions[i].Trigger
	}
	return names
}

func targetNames(phase *workflow.Phase) []string {
	seen := make(map[string]bool)
	var names []string
	for i := range phase.Transitions {
		target := string(phase.Transitions[i].To)
		if !seen[target] {
			seen[target] = true
			names = append(names, target)
		}
	}
	sort.Strings(names)
	return names
}

func normalizeProjectPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("project path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving project path %q: %w", path, err)
	}
	return abs, nil
}
