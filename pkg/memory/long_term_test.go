package memory

import (
	"context"
	"testing"
	"time"
)

func seedFact(t *testing.T, store Store, userID, text, category string, importance Importance) *UserFact {
	t.Helper()
	fact := &UserFact{UserID: userID, Fact: text, Category: category, Importance: importance}
	if err := store.AddFact(context.Background(), fact); err != nil {
		t.Fatalf("seed fact: %v", err)
	}
	return fact
}

func TestRelevantFacts_ScoringAndOrder(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())

	// Three overlapping words (pasta, for, dinner) at weight 2 plus high boost 3.
	f1 := seedFact(t, store, "u1", "likes pasta for dinner", CategoryFood, ImportanceHigh)
	// One overlapping word (dinner) plus critical boost 5.
	f2 := seedFact(t, store, "u1", "takes insulin before dinner", CategoryHealth, ImportanceCritical)
	// No overlap, no boost: excluded.
	seedFact(t, store, "u1", "works from home on fridays", CategoryWork, ImportanceNormal)

	got, err := ltm.RelevantFacts(context.Background(), "u1", "what should we make for dinner maybe pasta", 10)
	if err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scored facts, got %d", len(got))
	}
	if got[0].Fact.ID != f1.ID || got[0].Score != 9 {
		t.Fatalf("expected pasta fact first with score 9, got %q score %d", got[0].Fact.Fact, got[0].Score)
	}
	if got[1].Fact.ID != f2.ID || got[1].Score != 7 {
		t.Fatalf("expected insulin fact second with score 7, got %q score %d", got[1].Fact.Fact, got[1].Score)
	}
}

func TestRelevantFacts_ImportanceAloneVersusOverlap(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())

	// Critical fact with no word overlap scores 5; a normal fact with three
	// overlapping words scores 6 and must rank first.
	critical := seedFact(t, store, "u1", "carries an epipen", CategoryHealth, ImportanceCritical)
	overlap := seedFact(t, store, "u1", "buys fresh bread every morning", CategoryHabit, ImportanceNormal)

	got, err := ltm.RelevantFacts(context.Background(), "u1", "fresh bread this morning", 10)
	if err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(got))
	}
	if got[0].Fact.ID != overlap.ID || got[0].Score != 6 {
		t.Fatalf("expected overlap fact first with score 6, got %q score %d", got[0].Fact.Fact, got[0].Score)
	}
	if got[1].Fact.ID != critical.ID || got[1].Score != 5 {
		t.Fatalf("expected critical fact second with score 5, got %q score %d", got[1].Fact.Fact, got[1].Score)
	}
}

func TestRelevantFacts_ZeroScoreExcluded(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	seedFact(t, store, "u1", "prefers quiet mornings", CategoryHabit, ImportanceNormal)

	got, err := ltm.RelevantFacts(context.Background(), "u1", "what is the weather today", 10)
	if err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestRelevantFacts_RecencyBoost(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	now := time.Now().UTC()
	ltm.now = func() time.Time { return now }

	recent := seedFact(t, store, "u1", "enjoys green tea", CategoryFood, ImportanceNormal)
	stale := seedFact(t, store, "u1", "enjoys black tea", CategoryFood, ImportanceNormal)
	recent.LastReferenced = now.Add(-24 * time.Hour)
	stale.LastReferenced = now.Add(-30 * 24 * time.Hour)
	for _, f := range []*UserFact{recent, stale} {
		for i := range store.facts["u1"] {
			if store.facts["u1"][i].ID == f.ID {
				store.facts["u1"][i].LastReferenced = f.LastReferenced
			}
		}
	}

	got, err := ltm.RelevantFacts(context.Background(), "u1", "tea", 10)
	if err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(got))
	}
	if got[0].Fact.ID != recent.ID {
		t.Fatalf("expected recently referenced fact first")
	}
	if got[0].Score != 4 || got[1].Score != 2 {
		t.Fatalf("expected scores 4 and 2, got %d and %d", got[0].Score, got[1].Score)
	}
}

func TestRelevantFacts_BumpsReferenceCount(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	fact := seedFact(t, store, "u1", "allergic to peanuts", CategoryHealth, ImportanceCritical)

	if _, err := ltm.RelevantFacts(context.Background(), "u1", "any peanuts in this recipe?", 5); err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}

	facts, err := store.Facts(context.Background(), "u1", "", 10)
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if facts[0].ID != fact.ID || facts[0].ReferenceCount != 1 {
		t.Fatalf("expected reference count 1, got %d", facts[0].ReferenceCount)
	}
	if facts[0].LastReferenced.IsZero() {
		t.Fatalf("expected last referenced to be set")
	}
}

func TestRelevantFacts_Limit(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	seedFact(t, store, "u1", "coffee with milk", CategoryFood, ImportanceNormal)
	seedFact(t, store, "u1", "coffee at nine", CategoryHabit, ImportanceNormal)
	seedFact(t, store, "u1", "coffee only decaf", CategoryFood, ImportanceHigh)

	got, err := ltm.RelevantFacts(context.Background(), "u1", "coffee", 2)
	if err != nil {
		t.Fatalf("RelevantFacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 facts after limit, got %d", len(got))
	}
	if got[0].Fact.Fact != "coffee only decaf" {
		t.Fatalf("expected highest scored fact first, got %q", got[0].Fact.Fact)
	}
}
