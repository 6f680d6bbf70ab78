// Package channels connects the agent to the outside world. Each channel
// owns its transport and maps its users onto agent sessions.
package channels

import "context"

// Channel is a running transport adapter.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// allowlist is an optional sender filter. Empty means everyone is allowed.
type allowlist map[string]struct{}

func newAllowlist(ids []string) allowlist {
	if len(ids) == 0 {
		return nil
	}
	list := make(allowlist, len(ids))
	for _, id := range ids {
		if id != "" {
			list[id] = struct{}{}
		}
	}
	return list
}

func (a allowlist) allows(id string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[id]
	return ok
}
