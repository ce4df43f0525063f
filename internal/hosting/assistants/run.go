package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/petasbytes/expense-agent/internal/hosting"
	"github.com/petasbytes/expense-agent/internal/telemetry"
)

// Step starts a run and polls it to a terminal status. requires_action is
// answered with the agent's local functions and polling resumes.
func (s *Service) Step(ctx context.Context, conversationID, agentID string) (hosting.StepResult, error) {
	start := time.Now()
	turnID, _ := telemetry.TurnIDFromContext(ctx)

	run, err := s.client.Beta.Threads.Runs.New(ctx, conversationID, openai.BetaThreadRunNewParams{
		AssistantID: agentID,
	})
	if err != nil {
		return hosting.StepResult{}, fmt.Errorf("create run: %w", err)
	}

	toolCalls := 0
	defer func() {
		s.rec.Emit("step_completed", map[string]any{
			"turn_id":     turnID,
			"backend":     "assistants",
			"status":      string(run.Status),
			"tool_calls":  toolCalls,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.log.Debug().Str("run_id", run.ID).Str("status", string(run.Status)).Msg("run polled")

		switch run.Status {
		case openai.RunStatusCompleted:
			text, err := s.replyOf(ctx, conversationID, run.ID)
			if err != nil {
				return hosting.StepResult{}, err
			}
			return hosting.StepResult{Status: hosting.StepCompleted, Text: text}, nil

		case openai.RunStatusRequiresAction:
			n, next, err := s.answer(ctx, conversationID, agentID, run)
			toolCalls += n
			if err != nil {
				return hosting.StepResult{}, err
			}
			run = next
			continue

		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, openai.RunStatusIncomplete:
			return hosting.StepResult{Status: hosting.StepFailed, Reason: failureReason(run)}, nil
		}

		select {
		case <-ctx.Done():
			return hosting.StepResult{}, ctx.Err()
		case <-ticker.C:
		}

		next, err := s.client.Beta.Threads.Runs.Get(ctx, conversationID, run.ID)
		if err != nil {
			return hosting.StepResult{}, fmt.Errorf("poll run %s: %w", run.ID, err)
		}
		run = next
	}
}

// answer executes every pending function call of run and submits the
// outputs in one request. Failed calls are submitted as error outputs.
func (s *Service) answer(ctx context.Context, conversationID, agentID string, run *openai.Run) (int, *openai.Run, error) {
	disp, ok := s.dispatchers[agentID]
	if !ok {
		return 0, nil, fmt.Errorf("no local functions registered for agent %s", agentID)
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, 0, len(calls))
	for _, call := range calls {
		res := disp.Exec(ctx, call.ID, call.Function.Name, json.RawMessage(call.Function.Arguments))
		if res.IsError {
			s.log.Warn().Str("tool", res.Name).Str("call_id", res.CallID).Msg("tool call failed")
		}
		outputs = append(outputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(res.CallID),
			Output:     openai.String(res.Output),
		})
	}

	next, err := s.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, conversationID, run.ID, openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: outputs,
	})
	if err != nil {
		return len(calls), nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return len(calls), next, nil
}

// replyOf returns the newest agent text produced by runID, or "" when the
// run added none.
func (s *Service) replyOf(ctx context.Context, conversationID, runID string) (string, error) {
	page, err := s.client.Beta.Threads.Messages.List(ctx, conversationID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		RunID: openai.String(runID),
	})
	if err != nil {
		return "", fmt.Errorf("list run messages: %w", err)
	}
	for _, msg := range page.Data {
		if msg.Role != openai.MessageRoleAssistant {
			continue
		}
		if text, ok := lastText(msg); ok {
			return text, nil
		}
	}
	return "", nil
}

func failureReason(run *openai.Run) string {
	if msg := run.LastError.Message; msg != "" {
		if code := string(run.LastError.Code); code != "" {
			return code + ": " + msg
		}
		return msg
	}
	return "run " + string(run.Status)
}
