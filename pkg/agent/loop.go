package agent

import (
	"context"
	"encoding/json"

	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/memory"
	"github.com/hearthkit/hearth/pkg/providers"
)

// runToolLoop executes every tool call from one completion response in call
// order, then asks the model once, with no tools offered, to phrase the
// results. Tool faults become failure payloads the model can talk about;
// they never abort the turn.
func (a *Agent) runToolLoop(ctx context.Context, msgs []providers.Message, resp *providers.Response) string {
	outgoing := append(msgs, providers.Message{
		Role:      "assistant",
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	records := make([]memory.ToolCallRecord, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		records[i] = memory.ToolCallRecord{ID: call.ID, Name: call.Name, Arguments: call.Arguments}
	}
	if err := a.shortTerm.AddAssistantToolCalls(ctx, resp.Content, records); err != nil {
		logger.WarnCF(agentComponent, "failed to record tool-call request",
			map[string]any{"error": err.Error()})
	}

	for _, call := range resp.ToolCalls {
		args := parseToolArgs(call)
		result := a.registry.Execute(ctx, call.Name, args)
		payload := result.ForLLM()

		outgoing = append(outgoing, providers.Message{
			Role:       "tool",
			Content:    payload,
			ToolCallID: call.ID,
		})
		if err := a.shortTerm.AddToolMessage(ctx, call.Name, call.ID, payload); err != nil {
			logger.WarnCF(agentComponent, "failed to record tool message",
				map[string]any{"tool": call.Name, "error": err.Error()})
		}
	}

	followUp, err := a.client.Chat(ctx, a.cfg.OpenAI.Model, outgoing, nil, a.chatOptions())
	if err != nil {
		logger.ErrorCF(agentComponent, "follow-up completion failed",
			map[string]any{"user_id": a.user.ID, "error": err.Error()})
		return followUpReply
	}
	return followUp.Content
}

// parseToolArgs decodes a call's JSON arguments. Malformed arguments become
// an empty set; it is then the tool's job to report what is missing.
func parseToolArgs(call providers.ToolCall) map[string]any {
	if call.Arguments == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		logger.WarnCF(agentComponent, "malformed tool arguments",
			map[string]any{"tool": call.Name, "error": err.Error()})
		return map[string]any{}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args
}
