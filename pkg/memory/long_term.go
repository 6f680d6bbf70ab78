package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hearthkit/hearth/pkg/logger"
)

const longTermComponent = "memory.longterm"

// ScoringConfig holds the relevance weights. Zero values fall back to the
// shipped defaults via Normalize.
type ScoringConfig struct {
	WordOverlapWeight int
	CriticalBoost     int
	HighBoost         int
	RecencyBoost      int
	RecencyWindow     time.Duration
	CandidateLimit    int
}

// DefaultScoringConfig returns the shipped relevance weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		WordOverlapWeight: 2,
		CriticalBoost:     5,
		HighBoost:         3,
		RecencyBoost:      2,
		RecencyWindow:     7 * 24 * time.Hour,
		CandidateLimit:    100,
	}
}

// Normalize fills zero fields from the defaults.
func (c ScoringConfig) Normalize() ScoringConfig {
	def := DefaultScoringConfig()
	if c.WordOverlapWeight == 0 {
		c.WordOverlapWeight = def.WordOverlapWeight
	}
	if c.CriticalBoost == 0 {
		c.CriticalBoost = def.CriticalBoost
	}
	if c.HighBoost == 0 {
		c.HighBoost = def.HighBoost
	}
	if c.RecencyBoost == 0 {
		c.RecencyBoost = def.RecencyBoost
	}
	if c.RecencyWindow == 0 {
		c.RecencyWindow = def.RecencyWindow
	}
	if c.CandidateLimit == 0 {
		c.CandidateLimit = def.CandidateLimit
	}
	return c
}

// LongTermMemory is the durable knowledge service: facts, preferences and
// summaries keyed by user, with keyword relevance lookup.
type LongTermMemory struct {
	store   Store
	scoring ScoringConfig
	now     func() time.Time
}

// NewLongTermMemory wraps store with the given scoring weights.
func NewLongTermMemory(store Store, scoring ScoringConfig) *LongTermMemory {
	return &LongTermMemory{store: store, scoring: scoring.Normalize(), now: time.Now}
}

// ScoredFact pairs a fact with its relevance score for a query.
type ScoredFact struct {
	Fact  UserFact
	Score int
}

// RelevantFacts scores the user's most recent facts against message and
// returns the top limit matches, highest score first. Returned facts have
// their reference counters bumped best-effort.
func (m *LongTermMemory) RelevantFacts(ctx context.Context, userID, message string, limit int) ([]ScoredFact, error) {
	candidates, err := m.store.Facts(ctx, userID, "", m.scoring.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch fact candidates: %w", err)
	}

	queryWords := tokenSet(message)
	now := m.now().UTC()

	var scored []ScoredFact
	for _, fact := range candidates {
		score := m.scoreFact(fact, queryWords, now)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredFact{Fact: fact, Score: score})
	}

	// Stable: equal scores keep the store's recent-first candidate order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	for _, sf := range scored {
		if err := m.store.TouchFactReference(ctx, sf.Fact.ID); err != nil && !errors.Is(err, ErrNotFound) {
			logger.WarnCF(longTermComponent, "failed to bump fact reference",
				map[string]any{"fact_id": sf.Fact.ID, "error": err.Error()})
		}
	}
	return scored, nil
}

func (m *LongTermMemory) scoreFact(fact UserFact, queryWords map[string]struct{}, now time.Time) int {
	score := 0
	for word := range tokenSet(fact.Fact) {
		if _, ok := queryWords[word]; ok {
			score += m.scoring.WordOverlapWeight
		}
	}
	switch fact.Importance {
	case ImportanceCritical:
		score += m.scoring.CriticalBoost
	case ImportanceHigh:
		score += m.scoring.HighBoost
	}
	if !fact.LastReferenced.IsZero() && now.Sub(fact.LastReferenced) <= m.scoring.RecencyWindow {
		score += m.scoring.RecencyBoost
	}
	return score
}

// tokenSet lowercases and splits on whitespace, deduplicating words.
func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(s)) {
		out[word] = struct{}{}
	}
	return out
}

// RememberFact validates and stores a fact.
func (m *LongTermMemory) RememberFact(ctx context.Context, fact *UserFact) error {
	return m.store.AddFact(ctx, fact)
}

// SetPreference upserts a preference value.
func (m *LongTermMemory) SetPreference(ctx context.Context, pref UserPreference) error {
	return m.store.SetPreference(ctx, pref)
}

// Preferences returns all preferences for a user grouped by category.
func (m *LongTermMemory) Preferences(ctx context.Context, userID string) (map[string]map[string]string, error) {
	return m.store.Preferences(ctx, userID)
}

// Facts returns stored facts, newest first.
func (m *LongTermMemory) Facts(ctx context.Context, userID, category string, limit int) ([]UserFact, error) {
	return m.store.Facts(ctx, userID, category, limit)
}

// Summaries returns recent conversation summaries, newest first.
func (m *LongTermMemory) Summaries(ctx context.Context, userID string, limit int) ([]string, error) {
	return m.store.ConversationSummaries(ctx, userID, limit)
}

// IncrementConversationCount bumps the user's lifetime conversation counter.
// Failures are logged, never fatal: the counter is advisory.
func (m *LongTermMemory) IncrementConversationCount(ctx context.Context, userID string) {
	profile, err := m.store.GetUser(ctx, userID)
	if err != nil {
		logger.WarnCF(longTermComponent, "failed to load user for conversation count",
			map[string]any{"user_id": userID, "error": err.Error()})
		return
	}
	profile.TotalConversations++
	if err := m.store.UpdateUser(ctx, profile); err != nil {
		logger.WarnCF(longTermComponent, "failed to update conversation count",
			map[string]any{"user_id": userID, "error": err.Error()})
	}
}
