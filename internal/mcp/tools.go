package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/engine"
)

type startDevelopmentInput struct {
	ProjectPath    string `json:"project_path" jsonschema:"required,Absolute path to the project being worked on"`
	Workflow       string `json:"workflow,omitempty" jsonschema:"Workflow name (default: minor). Use list_workflows to discover options"`
	RequireReviews bool   `json:"require_reviews,omitempty" jsonschema:"Enforce review gates on transitions that declare review perspectives (default: false)"`
}

type startDevelopmentOutput struct {
	ConversationID string `json:"conversation_id" jsonschema:"Stable identifier for this work unit"`
	Phase          string `json:"phase" jsonschema:"Current workflow phase"`
	Instructions   string `json:"instructions" jsonschema:"Guidance for working in the current phase"`
	PlanFilePath   string `json:"plan_file_path" jsonschema:"Path to the plan document"`
	IsNew          bool   `json:"is_new" jsonschema:"True when a new work unit was created, false when resuming"`
}

type whatsNextInput struct {
	ProjectPath string `json:"project_path" jsonschema:"required,Absolute path to the project being worked on"`
}

type transitionInfo struct {
	Trigger          string `json:"trigger" jsonschema:"Trigger name to pass to proceed_to_phase"`
	TargetPhase      string `json:"target_phase" jsonschema:"Phase this transition leads to"`
	TransitionReason string `json:"transition_reason,omitempty" jsonschema:"When this transition applies"`
}

type whatsNextOutput struct {
	ConversationID string           `json:"conversation_id" jsonschema:"Stable identifier for this work unit"`
	Workflow       string           `json:"workflow" jsonschema:"Active workflow name"`
	Phase          string           `json:"phase" jsonschema:"Current workflow phase"`
	Instructions   string           `json:"instructions" jsonschema:"Guidance for working in the current phase"`
	Transitions    []transitionInfo `json:"transitions" jsonschema:"Transitions available from the current phase"`
}

type proceedToPhaseInput struct {
	ProjectPath string `json:"project_path" jsonschema:"required,Absolute path to the project being worked on"`
	Trigger     string `json:"trigger,omitempty" jsonschema:"Transition trigger name. Provide either trigger or target_phase"`
	TargetPhase string `json:"target_phase,omitempty" jsonschema:"Phase to jump to directly when no trigger fits"`
	Reason      string `json:"reason,omitempty" jsonschema:"Why the transition is happening now"`
	ReviewState string `json:"review_state,omitempty" jsonschema:"Review status for gated transitions: performed or pending"`
}

type proceedToPhaseOutput struct {
	Accepted         bool     `json:"accepted" jsonschema:"True when the transition was committed"`
	Phase            string   `json:"phase" jsonschema:"Phase after the call (unchanged on rejection)"`
	TransitionReason string   `json:"transition_reason,omitempty" jsonschema:"Reason recorded for the committed transition"`
	Instructions     string   `json:"instructions,omitempty" jsonschema:"Guidance for the new phase"`
	IsModeled        bool     `json:"is_modeled" jsonschema:"True when the transition followed a declared trigger"`
	ErrorCode        string   `json:"error_code,omitempty" jsonschema:"Rejection code: unknown_trigger no_such_edge role_not_permitted review_required open_tasks_remain"`
	Message          string   `json:"message,omitempty" jsonschema:"What blocked the transition and how to unblock it"`
	OpenTaskIDs      []string `json:"open_task_ids,omitempty" jsonschema:"Unresolved task IDs when the error code is open_tasks_remain"`
}

type resetDevelopmentInput struct {
	ProjectPath string `json:"project_path" jsonschema:"required,Absolute path to the project being worked on"`
}

type resetDevelopmentOutput struct {
	Reset bool `json:"reset" jsonschema:"Always true; resetting an untracked project is success"`
}

type listWorkflowsInput struct{}

type workflowInfo struct {
	Name        string `json:"name" jsonschema:"Workflow name to pass to start_development"`
	Description string `json:"description,omitempty" jsonschema:"What the workflow is for"`
}

type listWorkflowsOutput struct {
	Workflows []workflowInfo `json:"workflows" jsonschema:"Available workflow definitions"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "start_development",
		Description: "Begin or resume a phased work unit for a project. Creates the conversation and " +
			"plan document on first call; subsequent calls resume where work left off.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args startDevelopmentInput) (*mcp.CallToolResult, startDevelopmentOutput, error) {
		res, err := s.svc.Start(ctx, engine.StartRequest{
			Workflow:       args.Workflow,
			ProjectPath:    args.ProjectPath,
			RequireReviews: args.RequireReviews,
		})
		if err != nil {
			return nil, startDevelopmentOutput{}, fmt.Errorf("start failed: %w", err)
		}
		return nil, startDevelopmentOutput{
			ConversationID: res.ConversationID,
			Phase:          res.Phase,
			Instructions:   res.Instructions,
			PlanFilePath:   res.PlanFilePath,
			IsNew:          res.IsNew,
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "whats_next",
		Description: "Report the current phase, its instructions, and the transitions available " +
			"from it. Call this when unsure what to do.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args whatsNextInput) (*mcp.CallToolResult, whatsNextOutput, error) {
		res, err := s.svc.Status(ctx, args.ProjectPath)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				return nil, whatsNextOutput{}, fmt.Errorf("no active work unit for this project: call start_development first")
			}
			return nil, whatsNextOutput{}, fmt.Errorf("status failed: %w", err)
		}

		out := whatsNextOutput{
			ConversationID: res.ConversationID,
			Workflow:       res.WorkflowName,
			Phase:          res.Phase,
			Instructions:   res.Instructions,
		}
		for _, tr := range res.Transitions {
			out.Transitions = append(out.Transitions, transitionInfo{
				Trigger:          tr.Trigger,
				TargetPhase:      tr.TargetPhase,
				TransitionReason: tr.TransitionReason,
			})
		}
		return nil, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "proceed_to_phase",
		Description: "Advance the work unit along a transition. Gate rejections come back as " +
			"structured output with an error code and a message describing how to unblock; " +
			"the phase never moves on rejection.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args proceedToPhaseInput) (*mcp.CallToolResult, proceedToPhaseOutput, error) {
		if args.Trigger == "" && args.TargetPhase == "" {
			return nil, proceedToPhaseOutput{}, fmt.Errorf("provide either trigger or target_phase")
		}

		res, err := s.svc.Advance(ctx, engine.TransitionRequest{
			ProjectPath: args.ProjectPath,
			Trigger:     args.Trigger,
			TargetPhase: args.TargetPhase,
			Reason:      args.Reason,
			ReviewState: engine.ReviewState(args.ReviewState),
		})
		if err != nil {
			var te *engine.TransitionError
			if errors.As(err, &te) {
				s.logger.Debug("transition rejected",
					zap.String("code", string(te.Code)),
					zap.String("project_path", args.ProjectPath),
				)
				return nil, proceedToPhaseOutput{
					Accepted:    false,
					Phase:       te.CurrentPhase,
					ErrorCode:   string(te.Code),
					Message:     te.Message,
					OpenTaskIDs: te.OpenTaskIDs,
				}, nil
			}
			if errors.Is(err, conversation.ErrNotFound) {
				return nil, proceedToPhaseOutput{}, fmt.Errorf("no active work unit for this project: call start_development first")
			}
			return nil, proceedToPhaseOutput{}, fmt.Errorf("transition failed: %w", err)
		}

		return nil, proceedToPhaseOutput{
			Accepted:         true,
			Phase:            res.NewPhase,
			TransitionReason: res.TransitionReason,
			Instructions:     res.Instructions,
			IsModeled:        res.IsModeled,
		}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "reset_development",
		Description: "Abandon the work unit for a project: deletes the conversation and its plan " +
			"document. Safe to call on an untracked project.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args resetDevelopmentInput) (*mcp.CallToolResult, resetDevelopmentOutput, error) {
		if err := s.svc.Reset(ctx, args.ProjectPath); err != nil {
			return nil, resetDevelopmentOutput{}, fmt.Errorf("reset failed: %w", err)
		}
		return nil, resetDevelopmentOutput{Reset: true}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_workflows",
		Description: "List the workflow definitions available to start_development, built-in and user-provided.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listWorkflowsInput) (*mcp.CallToolResult, listWorkflowsOutput, error) {
		var out listWorkflowsOutput
		for _, info := range s.svc.ListWorkflows() {
			out.Workflows = append(out.Workflows, workflowInfo{
				Name:        info.Name,
				Description: info.Description,
			})
		}
		return nil, out, nil
	})
}
