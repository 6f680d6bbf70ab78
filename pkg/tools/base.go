// Package tools implements the assistant's action surface: a closed registry
// of named tools the completion model can call, each returning a structured
// result that is serialized back to the model verbatim.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is one callable capability. Parameters returns a JSON Schema object
// describing the accepted arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) *Result
}

// Result is the structured outcome of a tool call. Exactly one of Error or
// the success payload is meaningful; both states serialize for the model.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Ok builds a success result with a data payload.
func Ok(data map[string]any) *Result {
	return &Result{Success: true, Data: data}
}

// OkMessage builds a success result carrying only a human-ready sentence.
func OkMessage(message string) *Result {
	return &Result{Success: true, Message: message}
}

// Fail builds a failure result with a model-readable error string.
func Fail(errMsg string) *Result {
	return &Result{Success: false, Error: errMsg}
}

// ForLLM renders the result as the JSON the completion model sees.
func (r *Result) ForLLM() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"result serialization failed"}`
	}
	return string(raw)
}

// stringArg reads a string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// floatArg reads a numeric argument. JSON numbers decode as float64.
func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
