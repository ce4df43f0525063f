// Package messages implements hosting.Service on the Anthropic Messages API.
// The API is stateless, so agents and conversations are kept in memory and
// local tool calls are run client-side until the model answers with text.
// There is no hosted code interpreter or file store.
package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/petasbytes/expense-agent/internal/hosting"
	"github.com/petasbytes/expense-agent/internal/runner"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/memory"
)

const (
	DefaultMaxTokens     = 1024
	DefaultMaxToolRounds = 10
	DefaultTokenBudget   = 100000
)

// ErrNotFound is returned for unknown agent or conversation IDs.
var ErrNotFound = errors.New("messages: not found")

// Options configures a Service. Zero values take the defaults above.
type Options struct {
	MaxTokens     int64
	MaxToolRounds int
	TokenBudget   int
	Logger        zerolog.Logger
	Recorder      *telemetry.Recorder
}

type agent struct {
	hosting.Agent
	instructions string
	tools        []anthropic.ToolUnionParam
	disp         *runner.Dispatcher
}

type conversation struct {
	msgs []anthropic.MessageParam
	log  *memory.Log
}

// Service emulates agents and conversations over Messages.New.
type Service struct {
	client *anthropic.Client
	opts   Options
	log    zerolog.Logger
	rec    *telemetry.Recorder

	agents map[string]*agent
	convs  map[string]*conversation
}

var _ hosting.Service = (*Service)(nil)

// New returns a Service using client.
func New(client *anthropic.Client, opts Options) *Service {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = DefaultTokenBudget
	}
	return &Service{
		client: client,
		opts:   opts,
		log:    opts.Logger,
		rec:    opts.Recorder,
		agents: make(map[string]*agent),
		convs:  make(map[string]*conversation),
	}
}

func (s *Service) Capabilities() hosting.Capabilities {
	return hosting.Capabilities{}
}

func (s *Service) UploadFile(context.Context, string) (hosting.FileRef, error) {
	return hosting.FileRef{}, hosting.ErrUnsupported
}

func (s *Service) DeleteFile(context.Context, string) error {
	return hosting.ErrUnsupported
}

func (s *Service) CreateAgent(_ context.Context, spec hosting.AgentSpec) (hosting.Agent, error) {
	if len(spec.CodeInterpreterFileIDs) > 0 {
		return hosting.Agent{}, fmt.Errorf("code interpreter: %w", hosting.ErrUnsupported)
	}
	disp, err := runner.NewDispatcher(spec.Tools, s.rec)
	if err != nil {
		return hosting.Agent{}, err
	}
	defs := disp.Definitions()
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		params := def.Parameters()
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: params["properties"],
				Required:   requiredFields(params),
			},
		}})
	}
	a := &agent{
		Agent:        hosting.Agent{ID: newID("agent_"), Name: spec.Name, Model: spec.Model},
		instructions: spec.Instructions,
		tools:        tools,
		disp:         disp,
	}
	s.agents[a.ID] = a
	return a.Agent, nil
}

func (s *Service) DeleteAgent(_ context.Context, id string) error {
	if _, ok := s.agents[id]; !ok {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	delete(s.agents, id)
	return nil
}

func (s *Service) CreateConversation(context.Context) (hosting.Conversation, error) {
	id := newID("conv_")
	s.convs[id] = &conversation{log: memory.NewLog()}
	return hosting.Conversation{ID: id}, nil
}

func (s *Service) DeleteConversation(_ context.Context, id string) error {
	if _, ok := s.convs[id]; !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	delete(s.convs, id)
	return nil
}

func (s *Service) Post(_ context.Context, conversationID, text string) error {
	c, ok := s.convs[conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	c.msgs = append(c.msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	c.log.Append(memory.RoleUser, text)
	return nil
}

func (s *Service) History(_ context.Context, conversationID string) ([]memory.Turn, error) {
	c, ok := s.convs[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	return c.log.Turns(), nil
}

// Step sends the windowed conversation and executes tool_use blocks until
// the model stops calling tools. On any failure the conversation is rolled
// back to the posted user turn so the next step starts clean.
func (s *Service) Step(ctx context.Context, conversationID, agentID string) (hosting.StepResult, error) {
	c, ok := s.convs[conversationID]
	if !ok {
		return hosting.StepResult{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	a, ok := s.agents[agentID]
	if !ok {
		return hosting.StepResult{}, fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
	}

	start := time.Now()
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	mark := len(c.msgs)
	toolCalls := 0
	status := hosting.StepFailed
	defer func() {
		if status != hosting.StepCompleted {
			c.msgs = c.msgs[:mark]
		}
		s.rec.Emit("step_completed", map[string]any{
			"turn_id":     turnID,
			"backend":     "messages",
			"status":      string(status),
			"tool_calls":  toolCalls,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	for round := 0; ; round++ {
		if round > s.opts.MaxToolRounds {
			return hosting.StepResult{
				Status: hosting.StepFailed,
				Reason: fmt.Sprintf("exceeded %d tool rounds without a final answer", s.opts.MaxToolRounds),
			}, nil
		}

		window, stats := prepareWindow(c.msgs, s.opts.TokenBudget)
		s.rec.Emit("window_prepared", map[string]any{
			"turn_id":            turnID,
			"model":              a.Model,
			"budget":             stats.Budget,
			"total_estimated":    stats.Total,
			"included_groups":    stats.IncludedGroups,
			"skipped_groups":     stats.SkippedGroups,
			"over_budget_newest": stats.OverBudgetNewest,
		})
		if stats.OverBudgetNewest {
			return hosting.StepResult{
				Status: hosting.StepFailed,
				Reason: "newest message exceeds the token budget",
			}, nil
		}

		msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.Model),
			MaxTokens: s.opts.MaxTokens,
			Messages:  window,
			System:    []anthropic.TextBlockParam{{Text: a.instructions}},
			Tools:     a.tools,
		})
		if err != nil {
			return hosting.StepResult{}, fmt.Errorf("messages: %w", err)
		}
		c.msgs = append(c.msgs, msg.ToParam())

		var (
			texts   []string
			results []anthropic.ContentBlockParamUnion
		)
		for _, block := range msg.Content {
			switch v := block.AsAny().(type) {
			case anthropic.TextBlock:
				texts = append(texts, v.Text)
			case anthropic.ToolUseBlock:
				res := a.disp.Exec(ctx, v.ID, v.Name, json.RawMessage(v.JSON.Input.Raw()))
				if res.IsError {
					s.log.Warn().Str("tool", res.Name).Str("call_id", res.CallID).Msg("tool call failed")
				}
				results = append(results, anthropic.NewToolResultBlock(res.CallID, res.Output, res.IsError))
			}
		}
		toolCalls += len(results)

		if len(results) == 0 {
			text := strings.Join(texts, "\n")
			status = hosting.StepCompleted
			if text != "" {
				c.log.Append(memory.RoleAgent, text)
			}
			s.log.Debug().Int("rounds", round).Int("tool_calls", toolCalls).Msg("step completed")
			return hosting.StepResult{Status: hosting.StepCompleted, Text: text}, nil
		}
		c.msgs = append(c.msgs, anthropic.NewUserMessage(results...))
	}
}

func newID(prefix string) string {
	id, err := gonanoid.New()
	if err != nil {
		return prefix + fmt.Sprint(time.Now().UnixNano())
	}
	return prefix + id
}

// requiredFields reads the schema's required list as strings.
func requiredFields(params map[string]any) []string {
	raw, _ := params["required"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			out = append(out, name)
		}
	}
	return out
}
