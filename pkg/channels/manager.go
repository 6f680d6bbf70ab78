package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/hearthkit/hearth/pkg/logger"
)

const managerComponent = "channels.manager"

// Manager starts and stops a set of channels as a unit.
type Manager struct {
	channels []Channel
}

func NewManager(channels ...Channel) *Manager {
	return &Manager{channels: channels}
}

// Start brings every channel up. On the first failure it stops what already
// started and returns the error.
func (m *Manager) Start(ctx context.Context) error {
	var started []Channel
	for _, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			for _, s := range started {
				if stopErr := s.Stop(ctx); stopErr != nil {
					logger.ErrorCF(managerComponent, "rollback stop failed",
						map[string]any{"channel": s.Name(), "error": stopErr.Error()})
				}
			}
			return fmt.Errorf("start channel %s: %w", ch.Name(), err)
		}
		started = append(started, ch)
		logger.InfoCF(managerComponent, "channel started", map[string]any{"channel": ch.Name()})
	}
	return nil
}

// Stop shuts every channel down, collecting failures.
func (m *Manager) Stop(ctx context.Context) error {
	var errs []string
	for _, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("channel stop failures: %s", strings.Join(errs, "; "))
	}
	return nil
}
