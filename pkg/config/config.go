// Package config holds runtime configuration for the agent, loaded from
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full agent configuration.
type Config struct {
	OpenAI  OpenAIConfig  `envPrefix:"HEARTH_OPENAI_"`
	Store   StoreConfig   `envPrefix:"HEARTH_STORE_"`
	Agent   AgentConfig   `envPrefix:"HEARTH_AGENT_"`
	Memory  MemoryConfig  `envPrefix:"HEARTH_MEMORY_"`
	Tools   ToolsConfig   `envPrefix:"HEARTH_TOOLS_"`
	Discord DiscordConfig `envPrefix:"HEARTH_DISCORD_"`
	Log     LogConfig     `envPrefix:"HEARTH_LOG_"`
}

type OpenAIConfig struct {
	APIKey     string `env:"API_KEY"`
	APIBase    string `env:"API_BASE"`
	Model      string `env:"MODEL" envDefault:"gpt-4o"`
	CheapModel string `env:"CHEAP_MODEL" envDefault:"gpt-4o-mini"`
}

type StoreConfig struct {
	Path string `env:"PATH" envDefault:"~/.hearth/hearth.db"`
}

type AgentConfig struct {
	MaxConversationMessages int     `env:"MAX_CONVERSATION_MESSAGES" envDefault:"20"`
	MaxResponseChars        int     `env:"MAX_RESPONSE_CHARS" envDefault:"300"`
	MaxTokens               int     `env:"MAX_TOKENS" envDefault:"500"`
	Temperature             float64 `env:"TEMPERATURE" envDefault:"0.7"`
	DefaultUserID           string  `env:"DEFAULT_USER_ID" envDefault:"default-family-user"`
}

// MemoryConfig carries the relevance-scoring knobs. The weights are empirical
// values inherited from field use, kept configurable rather than baked in.
type MemoryConfig struct {
	WordOverlapWeight  int           `env:"WORD_OVERLAP_WEIGHT" envDefault:"2"`
	CriticalBoost      int           `env:"CRITICAL_BOOST" envDefault:"5"`
	HighBoost          int           `env:"HIGH_BOOST" envDefault:"3"`
	RecencyBoost       int           `env:"RECENCY_BOOST" envDefault:"2"`
	RecencyWindow      time.Duration `env:"RECENCY_WINDOW" envDefault:"168h"`
	CandidateLimit     int           `env:"CANDIDATE_LIMIT" envDefault:"100"`
	ContextFacts       int           `env:"CONTEXT_FACTS" envDefault:"10"`
	ContextPreferences int           `env:"CONTEXT_PREFERENCES" envDefault:"10"`
	ContextSummaries   int           `env:"CONTEXT_SUMMARIES" envDefault:"3"`
	MinExtractionChars int           `env:"MIN_EXTRACTION_CHARS" envDefault:"50"`
	MinExtractionMsgs  int           `env:"MIN_EXTRACTION_MSGS" envDefault:"4"`
}

type ToolsConfig struct {
	OpenWeatherAPIKey string `env:"OPENWEATHER_API_KEY"`
}

type DiscordConfig struct {
	Token     string   `env:"TOKEN"`
	AllowFrom []string `env:"ALLOW_FROM"`
	// IdleTimeout ends a user's agent session after this much inactivity.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"10m"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment. It does not validate
// credentials; call Validate before constructing the agent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}
	if strings.HasPrefix(cfg.Store.Path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for store path: %w", err)
		}
		cfg.Store.Path = filepath.Join(home, cfg.Store.Path[2:])
	}
	return cfg, nil
}

// Validate checks the settings the agent cannot run without. Failures here
// are configuration-fatal: construction must abort, unlike per-turn errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return fmt.Errorf("HEARTH_OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("HEARTH_STORE_PATH is required")
	}
	if c.Agent.MaxConversationMessages <= 0 {
		return fmt.Errorf("max conversation messages must be positive, got %d", c.Agent.MaxConversationMessages)
	}
	if c.Agent.MaxResponseChars <= 0 {
		return fmt.Errorf("max response chars must be positive, got %d", c.Agent.MaxResponseChars)
	}
	return nil
}
