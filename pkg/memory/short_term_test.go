package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestShortTermMemory_BoundedLogWithOverflowPersistence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stm := NewShortTermMemory(store, 4)
	conv, err := stm.Begin(ctx, "u1", "sess-1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	for i := 0; i < 6; i++ {
		if err := stm.AddMessage(ctx, MessageRoleUser, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
		if err := stm.AddMessage(ctx, MessageRoleAssistant, fmt.Sprintf("answer %d", i)); err != nil {
			t.Fatalf("AddMessage: %v", err)
		}
	}

	if stm.MessageCount() != 4 {
		t.Fatalf("live log must hold at most 4 messages, got %d", stm.MessageCount())
	}
	window := stm.MessagesForLLM()
	if len(window) != 4 {
		t.Fatalf("expected window of 4, got %d", len(window))
	}
	if window[0].Content != "question 4" || window[3].Content != "answer 5" {
		t.Fatalf("expected most recent messages, got %q .. %q", window[0].Content, window[3].Content)
	}

	// Overflowed messages were persisted before being dropped.
	if _, err := stm.End(ctx, "long chat"); err != nil {
		t.Fatalf("End: %v", err)
	}
	stored, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(stored.Messages) != 12 {
		t.Fatalf("durable store should hold all 12 messages, got %d", len(stored.Messages))
	}
	if stored.Messages[0].Content != "question 0" || stored.Messages[11].Content != "answer 5" {
		t.Fatalf("persisted history out of order: %q .. %q",
			stored.Messages[0].Content, stored.Messages[11].Content)
	}
}

func TestShortTermMemory_ReplaysToolExchange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stm := NewShortTermMemory(store, 20)
	if _, err := stm.Begin(ctx, "u1", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := stm.AddMessage(ctx, MessageRoleUser, "weather in Pune"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	calls := []ToolCallRecord{{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Pune"}`}}
	if err := stm.AddAssistantToolCalls(ctx, "", calls); err != nil {
		t.Fatalf("AddAssistantToolCalls: %v", err)
	}
	if err := stm.AddToolMessage(ctx, "get_weather", "call-1", `{"success":true}`); err != nil {
		t.Fatalf("AddToolMessage: %v", err)
	}
	if err := stm.AddMessage(ctx, MessageRoleAssistant, "It is 28 degrees."); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	window := stm.MessagesForLLM()
	if len(window) != 4 {
		t.Fatalf("expected the full exchange in replay, got %d messages", len(window))
	}
	if window[1].Role != MessageRoleAssistant || len(window[1].ToolCalls) != 1 || window[1].ToolCalls[0].ID != "call-1" {
		t.Fatalf("expected assistant tool-call message in replay, got %+v", window[1])
	}
	if window[2].Role != MessageRoleTool || window[2].ToolCallID != "call-1" {
		t.Fatalf("expected tool result in replay, got %+v", window[2])
	}

	text := stm.ConversationText()
	if strings.Contains(text, "call-1") {
		t.Fatalf("tool payloads must not leak into the dialogue text: %q", text)
	}
	if !strings.Contains(text, "User: weather in Pune") || !strings.Contains(text, "Assistant: It is 28 degrees.") {
		t.Fatalf("unexpected dialogue text: %q", text)
	}
}

func TestShortTermMemory_DropsOrphanedToolResults(t *testing.T) {
	ctx := context.Background()
	stm := NewShortTermMemory(NewMemoryStore(), 2)
	if _, err := stm.Begin(ctx, "u1", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := stm.AddMessage(ctx, MessageRoleUser, "what time is it?"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := stm.AddAssistantToolCalls(ctx, "", []ToolCallRecord{{ID: "c1", Name: "get_time"}}); err != nil {
		t.Fatalf("AddAssistantToolCalls: %v", err)
	}
	if err := stm.AddToolMessage(ctx, "get_time", "c1", `{"success":true}`); err != nil {
		t.Fatalf("AddToolMessage: %v", err)
	}
	// Overflow pushes the assistant tool-call anchor out of the log.
	if err := stm.AddMessage(ctx, MessageRoleAssistant, "It is noon."); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	window := stm.MessagesForLLM()
	for _, msg := range window {
		if msg.Role == MessageRoleTool {
			t.Fatalf("orphaned tool result must not be replayed: %+v", window)
		}
	}
}

func TestShortTermMemory_ConversationTextSkipsEmptyMessages(t *testing.T) {
	ctx := context.Background()
	stm := NewShortTermMemory(NewMemoryStore(), 10)
	if _, err := stm.Begin(ctx, "u1", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := stm.AddAssistantToolCalls(ctx, "", []ToolCallRecord{{ID: "c1", Name: "get_time"}}); err != nil {
		t.Fatalf("AddAssistantToolCalls: %v", err)
	}
	if err := stm.AddMessage(ctx, MessageRoleUser, "hi"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	if text := stm.ConversationText(); text != "User: hi" {
		t.Fatalf("empty messages must not leave dangling prefixes, got %q", text)
	}
}

func TestShortTermMemory_AddMessageRejectsBadRole(t *testing.T) {
	stm := NewShortTermMemory(NewMemoryStore(), 10)
	if _, err := stm.Begin(context.Background(), "u1", ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := stm.AddMessage(context.Background(), "operator", "hello"); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestShortTermMemory_EndPersistsAndClears(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	stm := NewShortTermMemory(store, 10)
	conv, err := stm.Begin(ctx, "u1", "")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := stm.AddMessage(ctx, MessageRoleUser, "hi"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	closed, err := stm.End(ctx, "small talk")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if closed == nil || closed.EndedAt.IsZero() {
		t.Fatalf("expected a closed conversation with end time")
	}
	if stm.Conversation() != nil {
		t.Fatalf("buffer should be cleared after End")
	}

	stored, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if stored.Summary != "small talk" || len(stored.Messages) != 1 {
		t.Fatalf("persisted conversation mismatch: %+v", stored)
	}
}

func TestShortTermMemory_EndWithoutConversationIsNoop(t *testing.T) {
	stm := NewShortTermMemory(NewMemoryStore(), 10)
	closed, err := stm.End(context.Background(), "")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if closed != nil {
		t.Fatalf("expected nil conversation")
	}
}
