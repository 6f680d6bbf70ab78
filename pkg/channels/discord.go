package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hearthkit/hearth/pkg/agent"
	"github.com/hearthkit/hearth/pkg/config"
	"github.com/hearthkit/hearth/pkg/logger"
)

const (
	discordComponent  = "channels.discord"
	sendTimeout       = 10 * time.Second
	discordChunkLimit = 1500
	idleSweepInterval = time.Minute
)

// DiscordChannel bridges Discord direct messages and mentions to agent
// sessions. The agent holds one conversation at a time, so a message from a
// different user ends the current session and starts theirs.
type DiscordChannel struct {
	agent   *agent.Agent
	session *discordgo.Session
	cfg     config.DiscordConfig
	allowed allowlist

	mu           sync.Mutex
	activeUser   string
	lastActivity time.Time
	stopSweep    context.CancelFunc
}

func NewDiscordChannel(cfg config.DiscordConfig, a *agent.Agent) (*DiscordChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	return &DiscordChannel{
		agent:   a,
		session: session,
		cfg:     cfg,
		allowed: newAllowlist(cfg.AllowFrom),
	}, nil
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC(discordComponent, "starting discord gateway")

	c.session.AddHandler(c.handleMessage)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("resolve bot user: %w", err)
	}
	logger.InfoCF(discordComponent, "discord gateway connected",
		map[string]any{"username": botUser.Username, "user_id": botUser.ID})

	sweepCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.stopSweep = cancel
	c.mu.Unlock()
	go c.sweepIdleSessions(sweepCtx)

	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC(discordComponent, "stopping discord gateway")

	c.mu.Lock()
	if c.stopSweep != nil {
		c.stopSweep()
	}
	active := c.activeUser
	c.activeUser = ""
	c.mu.Unlock()

	if active != "" {
		c.agent.EndSession(ctx, true)
	}
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// sweepIdleSessions ends the active session after the configured idle
// window, so long-quiet conversations get extracted instead of lingering.
func (c *DiscordChannel) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.endIdleSession(ctx)
		}
	}
}

// endIdleSession tears down the active session once it has been quiet past
// the idle window. The lock is held across EndSession so an interleaving
// message cannot start a session this sweep would then destroy.
func (c *DiscordChannel) endIdleSession(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeUser == "" || time.Since(c.lastActivity) < c.cfg.IdleTimeout {
		return
	}
	logger.InfoCF(discordComponent, "ending idle session",
		map[string]any{"user_id": c.activeUser})
	c.agent.EndSession(ctx, true)
	c.activeUser = ""
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !c.allowed.allows(m.Author.ID) {
		logger.DebugCF(discordComponent, "message rejected by allowlist",
			map[string]any{"user_id": m.Author.ID})
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := c.converse(ctx, "discord:"+m.Author.ID, m.ID, content)
	if err != nil {
		logger.ErrorCF(discordComponent, "turn failed",
			map[string]any{"user_id": m.Author.ID, "error": err.Error()})
		return
	}
	if reply == "" {
		return
	}

	_ = s.ChannelTyping(m.ChannelID)
	for _, chunk := range splitMessage(reply, discordChunkLimit) {
		if err := c.sendChunk(ctx, m.ChannelID, chunk); err != nil {
			logger.ErrorCF(discordComponent, "failed to send reply",
				map[string]any{"channel_id": m.ChannelID, "error": err.Error()})
			return
		}
	}
}

// converse routes one message into the agent, switching sessions when the
// sender changes.
func (c *DiscordChannel) converse(ctx context.Context, userID, externalID, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeUser != userID {
		if c.activeUser != "" {
			c.agent.EndSession(ctx, true)
		}
		if err := c.agent.StartSession(ctx, userID, externalID); err != nil {
			c.activeUser = ""
			return "", err
		}
		c.activeUser = userID
	}
	c.lastActivity = time.Now()

	return c.agent.Process(ctx, content)
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

// splitMessage chunks long replies at natural boundaries so Discord's
// message length limit never truncates mid-word.
func splitMessage(content string, limit int) []string {
	var messages []string
	for len(content) > 0 {
		if len(content) <= limit {
			messages = append(messages, content)
			break
		}

		end := findLastBreak(content[:limit], '\n', 200)
		if end <= 0 {
			end = findLastBreak(content[:limit], ' ', 100)
		}
		if end <= 0 {
			end = limit
		}
		messages = append(messages, content[:end])
		content = strings.TrimSpace(content[end:])
	}
	return messages
}

// findLastBreak finds the last occurrence of sep within the final window
// bytes of s, or -1.
func findLastBreak(s string, sep byte, window int) int {
	start := len(s) - window
	if start < 0 {
		start = 0
	}
	for i := len(s) - 1; i >= start; i-- {
		if s[i] == sep {
			return i
		}
	}
	return -1
}
