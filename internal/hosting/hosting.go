// Package hosting defines the one conversation abstraction the session
// drives. Backends (assistants, messages) are transports behind it.
package hosting

import (
	"context"
	"errors"

	"github.com/petasbytes/expense-agent/memory"
	"github.com/petasbytes/expense-agent/tools"
)

// ErrUnsupported is returned by operations a backend cannot perform.
var ErrUnsupported = errors.New("hosting: operation not supported by backend")

// FileRef identifies an uploaded file.
type FileRef struct {
	ID   string
	Name string
}

// AgentSpec is everything needed to create an agent.
type AgentSpec struct {
	Name         string
	Model        string
	Instructions string
	Tools        []tools.ToolDefinition
	// CodeInterpreterFileIDs enables the hosted code interpreter bound to
	// these files. Empty means no code interpreter.
	CodeInterpreterFileIDs []string
}

// Agent is a created agent. Immutable.
type Agent struct {
	ID    string
	Name  string
	Model string
}

// Conversation is an opened conversation channel.
type Conversation struct {
	ID string
}

// StepStatus is the terminal status of one reasoning step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult is the outcome of one step. Text is the agent's reply when
// Status is StepCompleted; Reason explains a StepFailed.
type StepResult struct {
	Status StepStatus
	Text   string
	Reason string
}

// Capabilities advertises optional backend features.
type Capabilities struct {
	FileUpload bool
}

// Service is the hosted agent service as seen by the session.
type Service interface {
	Capabilities() Capabilities

	UploadFile(ctx context.Context, path string) (FileRef, error)
	DeleteFile(ctx context.Context, id string) error

	CreateAgent(ctx context.Context, spec AgentSpec) (Agent, error)
	DeleteAgent(ctx context.Context, id string) error

	CreateConversation(ctx context.Context) (Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Post appends a user turn to the conversation.
	Post(ctx context.Context, conversationID, text string) error
	// Step runs one reasoning step of agentID over the conversation. Any
	// local tool calls are executed before Step returns. A failed step is a
	// StepResult with StepFailed, not an error; errors are transport faults.
	Step(ctx context.Context, conversationID, agentID string) (StepResult, error)
	// History returns every text turn in ascending order.
	History(ctx context.Context, conversationID string) ([]memory.Turn, error)
}
