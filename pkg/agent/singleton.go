package agent

import (
	"sync"

	"github.com/hearthkit/hearth/pkg/config"
	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/memory"
	"github.com/hearthkit/hearth/pkg/providers"
)

var (
	defaultOnce  sync.Once
	defaultAgent *Agent
	defaultErr   error
)

// Default lazily constructs the process-wide agent from the environment on
// first call. The construction outcome is sticky: a failed first call fails
// every later call with the same error.
func Default() (*Agent, error) {
	defaultOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			defaultErr = err
			return
		}
		logger.Init(cfg.Log.Level, cfg.Log.Format)

		client, err := providers.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase)
		if err != nil {
			defaultErr = err
			return
		}
		store, err := memory.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			defaultErr = err
			return
		}
		defaultAgent, defaultErr = New(cfg, client, store)
	})
	return defaultAgent, defaultErr
}
