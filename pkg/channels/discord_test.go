package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hearthkit/hearth/pkg/agent"
	"github.com/hearthkit/hearth/pkg/config"
	"github.com/hearthkit/hearth/pkg/memory"
	"github.com/hearthkit/hearth/pkg/providers"
)

type cannedClient struct{}

func (cannedClient) Chat(ctx context.Context, model string, messages []providers.Message, tools []providers.ToolDefinition, opts providers.Options) (*providers.Response, error) {
	return &providers.Response{Content: "ok"}, nil
}

func (cannedClient) ChatJSON(ctx context.Context, model string, messages []providers.Message, opts providers.Options) (string, error) {
	return `{"facts":[],"preferences":[],"summary":""}`, nil
}

func newTestChannel(t *testing.T) *DiscordChannel {
	t.Helper()
	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o", CheapModel: "gpt-4o-mini"},
		Store:  config.StoreConfig{Path: "unused"},
		Agent: config.AgentConfig{
			MaxConversationMessages: 20,
			MaxResponseChars:        300,
			MaxTokens:               500,
			Temperature:             0.7,
			DefaultUserID:           "default-family-user",
		},
		Discord: config.DiscordConfig{IdleTimeout: time.Minute},
	}
	a, err := agent.New(cfg, cannedClient{}, memory.NewMemoryStore())
	if err != nil {
		t.Fatalf("agent.New: %v", err)
	}
	return &DiscordChannel{agent: a, cfg: cfg.Discord}
}

func TestEndIdleSession_LeavesChannelUsable(t *testing.T) {
	c := newTestChannel(t)
	ctx := context.Background()

	if _, err := c.converse(ctx, "discord:42", "m1", "hello"); err != nil {
		t.Fatalf("converse: %v", err)
	}

	// Still active: a fresh message keeps the session alive.
	c.endIdleSession(ctx)
	if c.agent.CurrentUser() == nil {
		t.Fatalf("session must survive while within the idle window")
	}

	c.mu.Lock()
	c.lastActivity = time.Now().Add(-2 * time.Minute)
	c.mu.Unlock()
	c.endIdleSession(ctx)

	if c.agent.CurrentUser() != nil {
		t.Fatalf("idle session should be ended")
	}
	c.mu.Lock()
	active := c.activeUser
	c.mu.Unlock()
	if active != "" {
		t.Fatalf("channel must forget the ended session, still tracking %q", active)
	}

	// The next message starts a clean session instead of hitting a dead one.
	if _, err := c.converse(ctx, "discord:42", "m2", "back again"); err != nil {
		t.Fatalf("converse after idle end: %v", err)
	}
	if c.agent.CurrentUser() == nil {
		t.Fatalf("expected a fresh session for the returning user")
	}
}

func TestAllowlist(t *testing.T) {
	open := newAllowlist(nil)
	if !open.allows("anyone") {
		t.Fatalf("empty allowlist must allow everyone")
	}

	strict := newAllowlist([]string{"123", "456", ""})
	if !strict.allows("123") || !strict.allows("456") {
		t.Fatalf("listed ids must be allowed")
	}
	if strict.allows("789") || strict.allows("") {
		t.Fatalf("unlisted ids must be rejected")
	}
}

func TestSplitMessage_ShortPassesThrough(t *testing.T) {
	chunks := splitMessage("hello", 1500)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestSplitMessage_BreaksAtNewline(t *testing.T) {
	content := strings.Repeat("a", 1400) + "\n" + strings.Repeat("b", 400)
	chunks := splitMessage(content, 1500)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "a") || strings.Contains(chunks[0], "b") {
		t.Fatalf("first chunk should end at the newline")
	}
}

func TestSplitMessage_BreaksAtSpaceWhenNoNewline(t *testing.T) {
	content := strings.Repeat("word ", 400) // 2000 chars, no newlines
	chunks := splitMessage(content, 1500)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	for _, chunk := range chunks {
		if len(chunk) > 1500 {
			t.Fatalf("chunk exceeds limit: %d", len(chunk))
		}
	}
}

func TestSplitMessage_HardCutWithoutBoundaries(t *testing.T) {
	content := strings.Repeat("x", 3200)
	chunks := splitMessage(content, 1500)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1500 || len(chunks[1]) != 1500 || len(chunks[2]) != 200 {
		t.Fatalf("unexpected chunk sizes: %d %d %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}
