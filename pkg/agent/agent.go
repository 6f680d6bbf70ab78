// Package agent wires the completion model, the two memory tiers and the
// tool registry into the conversational core of the assistant.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hearthkit/hearth/pkg/config"
	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/memory"
	"github.com/hearthkit/hearth/pkg/providers"
	"github.com/hearthkit/hearth/pkg/tools"
)

const agentComponent = "agent"

// Fixed fallback replies. The user always gets a sentence back, even when
// the completion service is down.
const (
	apologyReply  = "Sorry, I had trouble thinking about that. Could you try again?"
	followUpReply = "I finished that, but I'm having trouble putting the result into words. Anything else?"
)

// ErrNoSession is returned when Process is called without an active session.
var ErrNoSession = errors.New("agent: no active session")

// Agent runs one conversation at a time: a session is started for a user,
// turns are processed, and ending the session flushes what was learned into
// long-term memory.
type Agent struct {
	mu sync.Mutex

	cfg    *config.Config
	client providers.CompletionClient
	store  memory.Store

	shortTerm *memory.ShortTermMemory
	longTerm  *memory.LongTermMemory
	extractor *memory.Extractor

	// Session state. Nil user means idle.
	user     *memory.UserProfile
	registry *tools.Registry
	toolDefs []providers.ToolDefinition

	limits ContextLimits
	now    func() time.Time
}

// New constructs an agent. Configuration problems surface here and nowhere
// later: a constructed agent never aborts a turn over config.
func New(cfg *config.Config, client providers.CompletionClient, store memory.Store) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("nil completion client")
	}
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}

	longTerm := memory.NewLongTermMemory(store, memory.ScoringConfig{
		WordOverlapWeight: cfg.Memory.WordOverlapWeight,
		CriticalBoost:     cfg.Memory.CriticalBoost,
		HighBoost:         cfg.Memory.HighBoost,
		RecencyBoost:      cfg.Memory.RecencyBoost,
		RecencyWindow:     cfg.Memory.RecencyWindow,
		CandidateLimit:    cfg.Memory.CandidateLimit,
	})

	return &Agent{
		cfg:       cfg,
		client:    client,
		store:     store,
		shortTerm: memory.NewShortTermMemory(store, cfg.Agent.MaxConversationMessages),
		longTerm:  longTerm,
		extractor: memory.NewExtractor(client, longTerm, cfg.OpenAI.CheapModel,
			cfg.Memory.MinExtractionChars, cfg.Memory.MinExtractionMsgs),
		limits: ContextLimits{
			Facts:       cfg.Memory.ContextFacts,
			Preferences: cfg.Memory.ContextPreferences,
			Summaries:   cfg.Memory.ContextSummaries,
		},
		now: time.Now,
	}, nil
}

// StartSession opens a conversation for userID, creating the user profile on
// first contact. An already-active session is ended first.
func (a *Agent) StartSession(ctx context.Context, userID, externalSessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.user != nil {
		a.endSessionLocked(ctx, true)
	}
	if userID == "" {
		userID = a.cfg.Agent.DefaultUserID
	}

	user, err := a.store.GetUser(ctx, userID)
	if errors.Is(err, memory.ErrNotFound) {
		user = &memory.UserProfile{ID: userID, Name: "Friend", Role: memory.RoleAdult}
		if err := a.store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		logger.InfoCF(agentComponent, "created new user profile", map[string]any{"user_id": userID})
	} else if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	registry, err := a.buildRegistry(user)
	if err != nil {
		return err
	}

	if _, err := a.shortTerm.Begin(ctx, user.ID, externalSessionID); err != nil {
		return err
	}

	a.user = user
	a.registry = registry
	a.toolDefs = registry.Definitions()
	logger.InfoCF(agentComponent, "session started",
		map[string]any{"user_id": user.ID, "tools": registry.Count()})
	return nil
}

// buildRegistry assembles the per-user tool set. The registry is sealed: a
// duplicate name is a bug and fails the session start.
func (a *Agent) buildRegistry(user *memory.UserProfile) (*tools.Registry, error) {
	registry, err := tools.NewRegistry(
		tools.NewCalculatorTool(),
		tools.NewTimeTool(nil),
		tools.NewWeatherTool(a.cfg.Tools.OpenWeatherAPIKey),
		tools.NewSetReminderTool(a.store, user.ID),
		tools.NewGetRemindersTool(a.store, user.ID),
		tools.NewAddToGroceryListTool(a.store, user.ID, user.Name),
		tools.NewViewGroceryListTool(a.store, user.ID),
		tools.NewCreateOrderRequestTool(a.store, user.ID, user.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	return registry, nil
}

// Greeting returns the session-opening line for the current user.
func (a *Agent) Greeting() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return "Hello! I'm Hearth, your home assistant."
	}
	if a.user.TotalConversations == 0 {
		return fmt.Sprintf("Hello %s! I'm Hearth, your home assistant. I can help with reminders, groceries, weather and more. What can I do for you?", a.user.Name)
	}

	hour := a.now().Hour()
	part := "evening"
	switch {
	case hour < 12:
		part = "morning"
	case hour < 17:
		part = "afternoon"
	}
	return fmt.Sprintf("Good %s, %s! Good to talk to you again. How can I help?", part, a.user.Name)
}

// Process runs one conversational turn and returns the spoken reply.
// Completion faults never propagate: the turn degrades to a fixed apology
// and the session stays usable.
func (a *Agent) Process(ctx context.Context, input string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.user == nil || a.shortTerm.Conversation() == nil {
		return "", ErrNoSession
	}

	if err := a.shortTerm.AddMessage(ctx, memory.MessageRoleUser, input); err != nil {
		return "", err
	}

	systemPrompt := a.BuildSystemPrompt(ctx, input)
	msgs := append([]providers.Message{{Role: "system", Content: systemPrompt}}, a.shortTerm.MessagesForLLM()...)

	resp, err := a.client.Chat(ctx, a.cfg.OpenAI.Model, msgs, a.toolDefs, a.chatOptions())
	if err != nil {
		logger.ErrorCF(agentComponent, "completion call failed",
			map[string]any{"user_id": a.user.ID, "error": err.Error()})
		return a.finishTurn(ctx, apologyReply)
	}

	reply := resp.Content
	if len(resp.ToolCalls) > 0 {
		reply = a.runToolLoop(ctx, msgs, resp)
	}

	return a.finishTurn(ctx, reply)
}

func (a *Agent) chatOptions() providers.Options {
	return providers.Options{
		MaxTokens:   a.cfg.Agent.MaxTokens,
		Temperature: a.cfg.Agent.Temperature,
	}
}

// finishTurn applies the voice budget and records the assistant message.
func (a *Agent) finishTurn(ctx context.Context, reply string) (string, error) {
	reply = TruncateForVoice(reply, a.cfg.Agent.MaxResponseChars)
	if err := a.shortTerm.AddMessage(ctx, memory.MessageRoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// SaveProgress persists the conversation so far without closing it. Used by
// channels before risky operations and on graceful shutdown.
func (a *Agent) SaveProgress(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.shortTerm.SaveProgress(ctx)
}

// EndSession closes the active conversation: when extractLearnings is set,
// substantial conversations go through extraction; everything is persisted
// and the agent returns to idle. Calling it while idle is a no-op.
func (a *Agent) EndSession(ctx context.Context, extractLearnings bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.endSessionLocked(ctx, extractLearnings)
}

func (a *Agent) endSessionLocked(ctx context.Context, extractLearnings bool) {
	conv := a.shortTerm.Conversation()
	if conv == nil || a.user == nil {
		a.user = nil
		a.registry = nil
		a.toolDefs = nil
		return
	}

	summary := ""
	if extractLearnings {
		dialogue := a.shortTerm.ConversationText()
		if a.extractor.ShouldExtract(a.shortTerm.MessageCount(), dialogue) {
			summary = a.extractor.Extract(ctx, a.user.ID, conv.ID, dialogue)
		}
	}

	if _, err := a.shortTerm.End(ctx, summary); err != nil {
		logger.ErrorCF(agentComponent, "failed to persist conversation",
			map[string]any{"conversation_id": conv.ID, "error": err.Error()})
	}
	a.longTerm.IncrementConversationCount(ctx, a.user.ID)

	logger.InfoCF(agentComponent, "session ended",
		map[string]any{"user_id": a.user.ID, "conversation_id": conv.ID})
	a.user = nil
	a.registry = nil
	a.toolDefs = nil
}

// CurrentUser returns the active session's user profile, or nil when idle.
func (a *Agent) CurrentUser() *memory.UserProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}
