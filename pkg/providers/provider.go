// Package providers defines the completion-service contract the agent speaks
// and ships an OpenAI implementation of it. The agent only ever sees the
// CompletionClient interface, so tests substitute fakes and the model vendor
// stays swappable.
package providers

import "context"

// Message is the provider-agnostic prompt message representation.
type Message struct {
	Role       string     // system, user, assistant, tool
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that requested tools
	ToolCallID string     // set on tool messages, correlates to a ToolCall.ID
}

// ToolCall is one tool invocation requested by the model. Arguments is the
// raw JSON payload exactly as the model produced it; parsing (and tolerating
// malformed JSON) is the dispatcher's job.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDefinition declares a callable tool in the function-calling convention.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Options are per-request completion parameters. Zero values mean
// "provider default".
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Response is a completed (non-streaming) model turn: either plain text or a
// batch of tool-call requests, possibly both.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// CompletionClient is the completion-service contract.
type CompletionClient interface {
	// Chat runs one completion over the ordered message list. When tools is
	// non-empty the model may answer with tool calls instead of text.
	Chat(ctx context.Context, model string, messages []Message, tools []ToolDefinition, opts Options) (*Response, error)

	// ChatJSON runs one completion in structured-output mode: the response is
	// constrained to a single valid JSON object and returned raw.
	ChatJSON(ctx context.Context, model string, messages []Message, opts Options) (string, error)
}
