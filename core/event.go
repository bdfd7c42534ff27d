package core

import (
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the payload carried by an Event. Each kind maps to
// exactly one input or output channel of the queue set.
type EventKind string

const (
	// KindUserMessage is an end-user message addressed to the agent.
	KindUserMessage EventKind = "user_message"
	// KindAgentMessage is a message from another agent in the same process.
	KindAgentMessage EventKind = "agent_message"
	// KindToolRequest asks the agent to run a named tool.
	KindToolRequest EventKind = "tool_invocation_request"
	// KindToolResult carries the outcome of a previously requested tool run.
	KindToolResult EventKind = "tool_result"
	// KindToolApproval grants or denies a pending tool invocation.
	KindToolApproval EventKind = "tool_approval"
	// KindSystem is an opaque internal control event (bootstrap, wakeups).
	KindSystem EventKind = "internal_system"

	// KindOutputChunk is a streamed fragment of an assistant response.
	KindOutputChunk EventKind = "assistant_output_chunk"
	// KindOutputFinal is a complete assistant response.
	KindOutputFinal EventKind = "assistant_output_final"
	// KindToolLog is a human-readable tool interaction log line.
	KindToolLog EventKind = "tool_interaction_log"
)

// SystemTypeBootstrap marks the system event the runtime submits once the
// worker scheduler is live, before any other event is processed.
const SystemTypeBootstrap = "bootstrap"

// Attachment references auxiliary content accompanying a user message.
type Attachment struct {
	Name string `json:"name"`
	MIME string `json:"mime,omitempty"`
	URI  string `json:"uri,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// UserMessage is a message authored by the end user.
type UserMessage struct {
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// AgentMessage is a message authored by a peer agent.
type AgentMessage struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

// ToolInvocationRequest asks for execution of a named tool. InvocationID
// correlates the request with its approval and result.
type ToolInvocationRequest struct {
	InvocationID string         `json:"invocation_id"`
	ToolName     string         `json:"tool_name"`
	Arguments    map[string]any `json:"arguments,omitempty"`
}

// ToolResult records the completion (or failure) of a tool invocation.
// Error is empty on success.
type ToolResult struct {
	InvocationID string `json:"invocation_id"`
	Result       any    `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ToolApproval resolves a pending tool invocation awaiting user consent.
type ToolApproval struct {
	InvocationID string `json:"invocation_id"`
	Approved     bool   `json:"approved"`
	Reason       string `json:"reason,omitempty"`
}

// SystemPayload is the opaque payload of an internal control event.
type SystemPayload struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Text is a plain-text assistant output payload, used by the three output
// channels (chunk, final, tool log).
type Text struct {
	Content string `json:"content"`
}

// Event is the single unit of communication flowing through the runtime.
// After construction it must be treated as immutable: it is consumed exactly
// once and never mutated. Exactly one payload pointer matching Kind is
// non-nil; the remaining pointers stay nil so absence is distinguishable.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	UserMessage  *UserMessage           `json:"user_message,omitempty"`
	AgentMessage *AgentMessage          `json:"agent_message,omitempty"`
	ToolRequest  *ToolInvocationRequest `json:"tool_request,omitempty"`
	ToolResult   *ToolResult            `json:"tool_result,omitempty"`
	ToolApproval *ToolApproval          `json:"tool_approval,omitempty"`
	System       *SystemPayload         `json:"system,omitempty"`
	Text         *Text                  `json:"text,omitempty"`
}

// NewID generates a new unique identifier for events.
func NewID() string { return uuid.NewString() }

// newEvent creates the common envelope for a payload-specific constructor.
func newEvent(kind EventKind) *Event {
	return &Event{ID: NewID(), Kind: kind, Timestamp: time.Now().UTC()}
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(content string, attachments ...Attachment) *Event {
	e := newEvent(KindUserMessage)
	e.UserMessage = &UserMessage{Content: content, Attachments: attachments}
	return e
}

// NewAgentMessageEvent creates an inter-agent message event from a peer agent.
func NewAgentMessageEvent(from, content string) *Event {
	e := newEvent(KindAgentMessage)
	e.AgentMessage = &AgentMessage{From: from, Content: content}
	return e
}

// NewToolRequestEvent creates a tool invocation request event.
func NewToolRequestEvent(invocationID, toolName string, args map[string]any) *Event {
	e := newEvent(KindToolRequest)
	e.ToolRequest = &ToolInvocationRequest{InvocationID: invocationID, ToolName: toolName, Arguments: args}
	return e
}

// NewToolResultEvent records the completion result (or error) of a tool
// invocation. If err is non-nil its message is copied into the payload.
func NewToolResultEvent(invocationID string, result any, err error) *Event {
	e := newEvent(KindToolResult)
	tr := &ToolResult{InvocationID: invocationID, Result: result}
	if err != nil {
		tr.Error = err.Error()
	}
	e.ToolResult = tr
	return e
}

// NewToolApprovalEvent creates an approval decision for a pending invocation.
func NewToolApprovalEvent(invocationID string, approved bool, reason string) *Event {
	e := newEvent(KindToolApproval)
	e.ToolApproval = &ToolApproval{InvocationID: invocationID, Approved: approved, Reason: reason}
	return e
}

// NewSystemEvent creates an internal control event with an opaque payload.
func NewSystemEvent(systemType string, data any) *Event {
	e := newEvent(KindSystem)
	e.System = &SystemPayload{Type: systemType, Data: data}
	return e
}

// NewBootstrapEvent creates the system event submitted once at startup.
func NewBootstrapEvent() *Event { return NewSystemEvent(SystemTypeBootstrap, nil) }

// NewOutputChunkEvent creates a streamed assistant response fragment.
func NewOutputChunkEvent(content string) *Event {
	e := newEvent(KindOutputChunk)
	e.Text = &Text{Content: content}
	return e
}

// NewOutputFinalEvent creates a complete assistant response.
func NewOutputFinalEvent(content string) *Event {
	e := newEvent(KindOutputFinal)
	e.Text = &Text{Content: content}
	return e
}

// NewToolLogEvent creates a tool interaction log line.
func NewToolLogEvent(line string) *Event {
	e := newEvent(KindToolLog)
	e.Text = &Text{Content: line}
	return e
}

// IsBootstrap reports whether the event is the startup bootstrap signal.
func (e *Event) IsBootstrap() bool {
	return e != nil && e.Kind == KindSystem && e.System != nil && e.System.Type == SystemTypeBootstrap
}

// Valid reports whether the event carries the payload its Kind promises.
// Items failing this check are logged and discarded by the queue set.
func (e *Event) Valid() bool {
	if e == nil || IsStreamEnd(e) {
		return false
	}
	switch e.Kind {
	case KindUserMessage:
		return e.UserMessage != nil
	case KindAgentMessage:
		return e.AgentMessage != nil
	case KindToolRequest:
		return e.ToolRequest != nil
	case KindToolResult:
		return e.ToolResult != nil
	case KindToolApproval:
		return e.ToolApproval != nil
	case KindSystem:
		return e.System != nil
	case KindOutputChunk, KindOutputFinal, KindToolLog:
		return e.Text != nil
	default:
		return false
	}
}

// StreamEnd is the sentinel terminating an output stream. It is never a
// valid Event: consumers compare by identity via IsStreamEnd and must stop
// reading the stream on receipt. Nothing written after it belongs to the
// same stream.
var StreamEnd = &Event{ID: "stream-end"}

// IsStreamEnd reports whether ev is the stream-end sentinel.
func IsStreamEnd(ev *Event) bool { return ev == StreamEnd }
