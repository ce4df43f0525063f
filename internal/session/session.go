// Package session drives one interactive session against a hosting.Service:
// provision an agent and a conversation, relay user turns, print the
// transcript and release everything that was created.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/petasbytes/expense-agent/internal/hosting"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/memory"
	"github.com/petasbytes/expense-agent/tools"
)

// QuitCommand ends the chat loop, compared case-insensitively after trimming.
const QuitCommand = "quit"

const banner = "============================================================"

// FailedError is a turn whose step reported a failed status.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string { return "run failed: " + e.Reason }

// Options configures a Session.
type Options struct {
	Model     string
	Resources Resources
	Tools     []tools.ToolDefinition
	Out       io.Writer
	Logger    zerolog.Logger
	Recorder  *telemetry.Recorder
}

// Session owns the agent, conversation and uploaded files it creates.
type Session struct {
	svc  hosting.Service
	opts Options
	out  io.Writer
	log  zerolog.Logger
	rec  *telemetry.Recorder

	files []hosting.FileRef
	agent *hosting.Agent
	conv  *hosting.Conversation
}

// New returns a Session over svc. Output defaults to io.Discard.
func New(svc hosting.Service, opts Options) *Session {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Session{svc: svc, opts: opts, out: out, log: opts.Logger, rec: opts.Recorder}
}

// Provision creates the agent and opens the conversation. Backends that
// store files get both resources uploaded and bound to the code
// interpreter; others get the text embedded in the instructions.
func (s *Session) Provision(ctx context.Context) error {
	spec := hosting.AgentSpec{Model: s.opts.Model, Tools: s.opts.Tools}

	if s.svc.Capabilities().FileUpload {
		for _, f := range []struct{ label, path string }{
			{"data file for Code Interpreter", s.opts.Resources.DataPath},
			{"expense policy file", s.opts.Resources.PolicyPath},
		} {
			fmt.Fprintf(s.out, "Uploading %s...\n", f.label)
			ref, err := s.svc.UploadFile(ctx, f.path)
			if err != nil {
				return fmt.Errorf("upload file: %w", err)
			}
			s.files = append(s.files, ref)
			spec.CodeInterpreterFileIDs = append(spec.CodeInterpreterFileIDs, ref.ID)
			fmt.Fprintf(s.out, "  Uploaded: %s (ID: %s)\n", ref.Name, ref.ID)
		}
		spec.Name = FileAgentName
		spec.Instructions = FileInstructions()
	} else {
		instr, err := EmbeddedInstructions(s.opts.Resources)
		if err != nil {
			return fmt.Errorf("render instructions: %w", err)
		}
		spec.Name = EmbeddedAgentName
		spec.Instructions = instr
	}

	fmt.Fprintf(s.out, "\nCreating agent: %s...\n", spec.Name)
	agent, err := s.svc.CreateAgent(ctx, spec)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	s.agent = &agent
	fmt.Fprintf(s.out, "  Agent created: %s (ID: %s)\n", agent.Name, agent.ID)
	s.log.Debug().Str("agent_id", agent.ID).Int("files", len(s.files)).Msg("agent provisioned")

	fmt.Fprintln(s.out, "Creating conversation thread...")
	conv, err := s.svc.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	s.conv = &conv
	fmt.Fprintf(s.out, "  Thread created (ID: %s)\n", conv.ID)
	return nil
}

// Turn posts input and runs one step. A failed step returns *FailedError.
func (s *Session) Turn(ctx context.Context, input string) (string, error) {
	if s.agent == nil || s.conv == nil {
		return "", errors.New("session not provisioned")
	}
	ctx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())
	s.rec.LocalFeatures(ctx, input)

	if err := s.svc.Post(ctx, s.conv.ID, input); err != nil {
		return "", err
	}
	res, err := s.svc.Step(ctx, s.conv.ID, s.agent.ID)
	if err != nil {
		return "", err
	}
	if res.Status != hosting.StepCompleted {
		return "", &FailedError{Reason: res.Reason}
	}
	return res.Text, nil
}

// Run reads lines from in until the quit command, EOF or ctx is done.
// Blank lines re-prompt. Failed turns are reported and the loop goes on.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "\n"+banner)
	fmt.Fprintln(s.out, "Chat with the RFP Expense Analyzer Agent")
	fmt.Fprintln(s.out, strings.Repeat("-", len(banner)))
	fmt.Fprintln(s.out, "Try these prompts:")
	for _, p := range []string{
		"What is the highest cost category?",
		"Create a bar chart of costs by consultant",
		"Which consultants exceed their policy rate caps?",
		"Submit an expense report",
		"Flag a budget overrun for travel",
	} {
		fmt.Fprintf(s.out, "  '%s'\n", p)
	}
	fmt.Fprintln(s.out, "Type 'quit' to exit.")
	fmt.Fprintf(s.out, "%s\n\n", banner)

	readCtx, stop := context.WithCancel(ctx)
	defer stop()
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-readCtx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(s.out, "You: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(s.out)
			select {
			case err := <-scanErr:
				return err
			default:
				return nil
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, QuitCommand) {
			fmt.Fprint(s.out, "\nEnding conversation...\n\n")
			return nil
		}

		text, err := s.Turn(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var failed *FailedError
			if errors.As(err, &failed) {
				fmt.Fprintf(s.out, "\n  Run failed: %s\n\n", failed.Reason)
			} else {
				fmt.Fprintf(s.out, "\n  Run failed: %v\n\n", err)
			}
			s.log.Warn().Err(err).Msg("turn failed")
			continue
		}
		if text != "" {
			fmt.Fprintf(s.out, "\nAgent: %s\n\n", text)
		}
	}
}

// Drain prints the conversation history as a role-tagged transcript.
func (s *Session) Drain(ctx context.Context) error {
	if s.conv == nil {
		return nil
	}
	turns, err := s.svc.History(ctx, s.conv.ID)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	fmt.Fprintln(s.out, banner)
	fmt.Fprintln(s.out, "CONVERSATION LOG")
	fmt.Fprintf(s.out, "%s\n\n", banner)
	return memory.WriteTranscript(s.out, turns)
}

// Teardown deletes the conversation, the agent and uploaded files. Every
// deletion is attempted; failures are combined.
func (s *Session) Teardown(ctx context.Context) error {
	fmt.Fprintln(s.out, banner)
	fmt.Fprintln(s.out, "CLEANUP")
	fmt.Fprintln(s.out, banner)

	var errs error
	if s.conv != nil {
		switch err := s.svc.DeleteConversation(ctx, s.conv.ID); {
		case err == nil:
			fmt.Fprintln(s.out, "  Thread deleted")
			s.conv = nil
		case errors.Is(err, hosting.ErrUnsupported):
			s.conv = nil
		default:
			errs = multierr.Append(errs, fmt.Errorf("delete conversation: %w", err))
		}
	}
	if s.agent != nil {
		if err := s.svc.DeleteAgent(ctx, s.agent.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete agent: %w", err))
		} else {
			fmt.Fprintln(s.out, "  Agent deleted")
			s.agent = nil
		}
	}
	var kept []hosting.FileRef
	for _, f := range s.files {
		if err := s.svc.DeleteFile(ctx, f.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete file %s: %w", f.Name, err))
			kept = append(kept, f)
			continue
		}
		fmt.Fprintf(s.out, "  File deleted: %s\n", f.Name)
	}
	s.files = kept

	if errs != nil {
		for _, err := range multierr.Errors(errs) {
			fmt.Fprintf(s.out, "  Cleanup error: %v\n", err)
		}
		return errs
	}
	fmt.Fprintln(s.out, "\n  All resources cleaned up successfully.")
	return nil
}
