// Package assistants implements hosting.Service on the OpenAI-compatible
// Assistants API: uploaded files, hosted code interpreter, threads and runs.
// Local function calls surface as requires_action runs and are answered
// through runner.Dispatcher.
package assistants

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog"

	"github.com/petasbytes/expense-agent/internal/hosting"
	"github.com/petasbytes/expense-agent/internal/runner"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/memory"
)

// DefaultPollInterval is used when Options.PollInterval is zero.
const DefaultPollInterval = 500 * time.Millisecond

// Options configures a Service.
type Options struct {
	PollInterval time.Duration
	Logger       zerolog.Logger
	Recorder     *telemetry.Recorder
}

// Service talks to the hosted Assistants API.
type Service struct {
	client   *openai.Client
	interval time.Duration
	log      zerolog.Logger
	rec      *telemetry.Recorder

	// dispatchers answers tool calls per agent ID.
	dispatchers map[string]*runner.Dispatcher
}

var _ hosting.Service = (*Service)(nil)

// New returns a Service using client.
func New(client *openai.Client, opts Options) *Service {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Service{
		client:      client,
		interval:    interval,
		log:         opts.Logger,
		rec:         opts.Recorder,
		dispatchers: make(map[string]*runner.Dispatcher),
	}
}

func (s *Service) Capabilities() hosting.Capabilities {
	return hosting.Capabilities{FileUpload: true}
}

func (s *Service) UploadFile(ctx context.Context, path string) (hosting.FileRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return hosting.FileRef{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	obj, err := s.client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return hosting.FileRef{}, fmt.Errorf("upload %s: %w", path, err)
	}
	name := obj.Filename
	if name == "" {
		name = filepath.Base(path)
	}
	s.log.Debug().Str("file_id", obj.ID).Str("name", name).Msg("file uploaded")
	return hosting.FileRef{ID: obj.ID, Name: name}, nil
}

func (s *Service) DeleteFile(ctx context.Context, id string) error {
	if _, err := s.client.Files.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}

func (s *Service) CreateAgent(ctx context.Context, spec hosting.AgentSpec) (hosting.Agent, error) {
	disp, err := runner.NewDispatcher(spec.Tools, s.rec)
	if err != nil {
		return hosting.Agent{}, err
	}

	params := openai.BetaAssistantNewParams{
		Model:        openai.ChatModel(spec.Model),
		Name:         openai.String(spec.Name),
		Instructions: openai.String(spec.Instructions),
		Tools:        assistantTools(spec),
	}
	if len(spec.CodeInterpreterFileIDs) > 0 {
		params.ToolResources = openai.BetaAssistantNewParamsToolResources{
			CodeInterpreter: openai.BetaAssistantNewParamsToolResourcesCodeInterpreter{
				FileIDs: spec.CodeInterpreterFileIDs,
			},
		}
	}

	a, err := s.client.Beta.Assistants.New(ctx, params)
	if err != nil {
		return hosting.Agent{}, fmt.Errorf("create assistant: %w", err)
	}
	s.dispatchers[a.ID] = disp
	name := a.Name
	if name == "" {
		name = spec.Name
	}
	return hosting.Agent{ID: a.ID, Name: name, Model: spec.Model}, nil
}

// assistantTools maps an AgentSpec to the API's tool list: the hosted code
// interpreter first when files are bound, then every local function.
func assistantTools(spec hosting.AgentSpec) []openai.AssistantToolUnionParam {
	out := make([]openai.AssistantToolUnionParam, 0, len(spec.Tools)+1)
	if len(spec.CodeInterpreterFileIDs) > 0 {
		out = append(out, openai.AssistantToolUnionParam{
			OfCodeInterpreter: &openai.CodeInterpreterToolParam{},
		})
	}
	for _, def := range spec.Tools {
		out = append(out, openai.AssistantToolUnionParam{
			OfFunction: &openai.FunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        def.Name,
					Description: openai.String(def.Description),
					Parameters:  openai.FunctionParameters(def.Parameters()),
				},
			},
		})
	}
	return out
}

func (s *Service) DeleteAgent(ctx context.Context, id string) error {
	if _, err := s.client.Beta.Assistants.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete assistant %s: %w", id, err)
	}
	delete(s.dispatchers, id)
	return nil
}

func (s *Service) CreateConversation(ctx context.Context) (hosting.Conversation, error) {
	th, err := s.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return hosting.Conversation{}, fmt.Errorf("create thread: %w", err)
	}
	return hosting.Conversation{ID: th.ID}, nil
}

func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.client.Beta.Threads.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	return nil
}

func (s *Service) Post(ctx context.Context, conversationID, text string) error {
	_, err := s.client.Beta.Threads.Messages.New(ctx, conversationID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (s *Service) History(ctx context.Context, conversationID string) ([]memory.Turn, error) {
	iter := s.client.Beta.Threads.Messages.ListAutoPaging(ctx, conversationID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderAsc,
	})
	var turns []memory.Turn
	for iter.Next() {
		msg := iter.Current()
		text, ok := lastText(msg)
		if !ok {
			continue
		}
		turns = append(turns, memory.Turn{
			Role: roleOf(msg.Role),
			Text: text,
			At:   time.Unix(msg.CreatedAt, 0),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return turns, nil
}

// lastText returns the last text part of msg; messages carrying only images
// or files have none.
func lastText(msg openai.Message) (string, bool) {
	for i := len(msg.Content) - 1; i >= 0; i-- {
		if c := msg.Content[i]; c.Type == "text" {
			return c.Text.Value, true
		}
	}
	return "", false
}

func roleOf(r openai.MessageRole) memory.Role {
	if r == openai.MessageRoleUser {
		return memory.RoleUser
	}
	return memory.RoleAgent
}
