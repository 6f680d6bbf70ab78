package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hearthkit/hearth/pkg/memory"
)

type brokenFactsStore struct {
	*memory.MemoryStore
}

func (s *brokenFactsStore) Facts(ctx context.Context, userID, category string, limit int) ([]memory.UserFact, error) {
	return nil, errors.New("disk on fire")
}

func TestBuildSystemPrompt_IncludesUserKnowledge(t *testing.T) {
	client := &scriptedClient{}
	a, store := newTestAgent(t, client)
	ctx := context.Background()

	elderly := &memory.UserProfile{
		ID:   "amma",
		Name: "Amma",
		Role: memory.RoleElderly,
		Age:  74,
		MedicalInfo: &memory.MedicalInfo{
			Medicines: []memory.Medicine{{Name: "metformin", Dosage: "500mg", Timing: "morning"}},
			Allergies: []string{"penicillin"},
		},
	}
	if err := store.CreateUser(ctx, elderly); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.AddFact(ctx, &memory.UserFact{
		UserID: "amma", Fact: "takes a walk after dinner",
		Category: memory.CategoryHabit, Importance: memory.ImportanceCritical,
	}); err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	if err := store.SetPreference(ctx, memory.UserPreference{
		UserID: "amma", Category: "food", Key: "spice", Value: "mild",
	}); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}

	if err := a.StartSession(ctx, "amma", ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	prompt := a.BuildSystemPrompt(ctx, "anything planned after dinner?")
	for _, want := range []string{
		"Name: Amma",
		"Role: elderly",
		"MEDICAL INFO",
		"metformin 500mg",
		"penicillin",
		"[IMPORTANT] takes a walk after dinner",
		"food/spice: mild",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildSystemPrompt_AdultSkipsMedicalBlock(t *testing.T) {
	a, store := newTestAgent(t, &scriptedClient{})
	ctx := context.Background()
	adult := &memory.UserProfile{
		ID: "dad", Name: "Dad", Role: memory.RoleAdult,
		MedicalInfo: &memory.MedicalInfo{Allergies: []string{"dust"}},
	}
	if err := store.CreateUser(ctx, adult); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := a.StartSession(ctx, "dad", ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	prompt := a.BuildSystemPrompt(ctx, "hello")
	if strings.Contains(prompt, "MEDICAL INFO") {
		t.Fatalf("medical block is for elderly users only:\n%s", prompt)
	}
}

func TestBuildSystemPrompt_DegradesToBaseOnStoreFailure(t *testing.T) {
	broken := &brokenFactsStore{memory.NewMemoryStore()}
	a, err := New(testConfig(), &scriptedClient{}, broken)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := a.StartSession(ctx, "u1", ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	prompt := a.BuildSystemPrompt(ctx, "hello")
	if prompt != basePrompt {
		t.Fatalf("expected base prompt fallback, got:\n%s", prompt)
	}
}

func TestBuildSystemPrompt_ChildApprovalNote(t *testing.T) {
	a, store := newTestAgent(t, &scriptedClient{})
	ctx := context.Background()
	child := &memory.UserProfile{
		ID: "kid", Name: "Kiddo", Role: memory.RoleChild,
		RequiresApproval: true, DailyOrderLimit: 500,
	}
	if err := store.CreateUser(ctx, child); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := a.StartSession(ctx, "kid", ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	prompt := a.BuildSystemPrompt(ctx, "buy me a game")
	if !strings.Contains(prompt, "need approval") {
		t.Fatalf("expected approval note:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Daily order limit: 500") {
		t.Fatalf("expected order limit note:\n%s", prompt)
	}
}
