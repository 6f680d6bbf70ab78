package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/hearthkit/hearth/pkg/providers"
)

type fakeCompletionClient struct {
	jsonResponses []string
	jsonErr       error
	calls         int
}

func (f *fakeCompletionClient) Chat(ctx context.Context, model string, messages []providers.Message, tools []providers.ToolDefinition, opts providers.Options) (*providers.Response, error) {
	return &providers.Response{Content: "ok"}, nil
}

func (f *fakeCompletionClient) ChatJSON(ctx context.Context, model string, messages []providers.Message, opts providers.Options) (string, error) {
	f.calls++
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	resp := f.jsonResponses[0]
	if len(f.jsonResponses) > 1 {
		f.jsonResponses = f.jsonResponses[1:]
	}
	return resp, nil
}

func TestExtractor_ShouldExtract(t *testing.T) {
	e := NewExtractor(&fakeCompletionClient{}, nil, "cheap", 50, 4)
	long := "User: hello there how are you doing today my friend\nAssistant: doing well thanks"
	if e.ShouldExtract(3, long) {
		t.Fatalf("too few messages should not extract")
	}
	if e.ShouldExtract(4, "User: hi") {
		t.Fatalf("too little text should not extract")
	}
	if !e.ShouldExtract(4, long) {
		t.Fatalf("expected extraction for substantial conversation")
	}
}

func TestExtractor_SavesFactsAndPreferences(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	client := &fakeCompletionClient{jsonResponses: []string{`{
		"facts": [
			{"fact": "allergic to shellfish", "category": "health", "importance": "critical"},
			{"fact": "", "category": "food", "importance": "low"},
			{"fact": "plays chess on sundays", "category": "made-up-category", "importance": "weird"}
		],
		"preferences": [
			{"category": "food", "key": "spice_level", "value": "mild"},
			{"category": "food", "key": "", "value": "ignored"}
		],
		"summary": "talked about food allergies"
	}`}}
	e := NewExtractor(client, ltm, "cheap", 50, 4)

	summary := e.Extract(context.Background(), "u1", "conv-1", "dialogue")
	if summary != "talked about food allergies" {
		t.Fatalf("unexpected summary %q", summary)
	}

	facts, err := store.Facts(context.Background(), "u1", "", 10)
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts (empty one skipped), got %d", len(facts))
	}
	var chess *UserFact
	for i := range facts {
		if facts[i].Fact == "plays chess on sundays" {
			chess = &facts[i]
		}
	}
	if chess == nil {
		t.Fatalf("expected chess fact saved")
	}
	if chess.Category != CategoryOther || chess.Importance != ImportanceNormal {
		t.Fatalf("unknown category/importance should collapse to defaults, got %s/%s", chess.Category, chess.Importance)
	}

	prefs, err := store.Preferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if prefs["food"]["spice_level"] != "mild" {
		t.Fatalf("expected preference saved, got %+v", prefs)
	}
	if len(prefs["food"]) != 1 {
		t.Fatalf("keyless preference should be skipped, got %+v", prefs["food"])
	}
}

func TestExtractor_FallsBackToSummaryOnly(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	client := &fakeCompletionClient{jsonResponses: []string{
		`not json at all`,
		`{"summary": "short chat"}`,
	}}
	e := NewExtractor(client, ltm, "cheap", 50, 4)

	summary := e.Extract(context.Background(), "u1", "conv-1", "dialogue")
	if summary != "short chat" {
		t.Fatalf("expected fallback summary, got %q", summary)
	}
	if client.calls != 2 {
		t.Fatalf("expected extraction call plus fallback call, got %d", client.calls)
	}
}

func TestExtractor_SummaryFallbackWhenExtractionOmitsSummary(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	client := &fakeCompletionClient{jsonResponses: []string{
		`{"facts": [{"fact": "keeps a sourdough starter", "category": "food", "importance": "normal"}], "preferences": [], "summary": ""}`,
		`{"summary": "talked about baking"}`,
	}}
	e := NewExtractor(client, ltm, "cheap", 50, 4)

	summary := e.Extract(context.Background(), "u1", "conv-1", "dialogue")
	if summary != "talked about baking" {
		t.Fatalf("empty extraction summary must trigger the summary-only request, got %q", summary)
	}
	if client.calls != 2 {
		t.Fatalf("expected extraction call plus summary call, got %d", client.calls)
	}

	facts, err := store.Facts(context.Background(), "u1", "", 10)
	if err != nil {
		t.Fatalf("Facts: %v", err)
	}
	if len(facts) != 1 || facts[0].Fact != "keeps a sourdough starter" {
		t.Fatalf("extracted facts must still be saved, got %+v", facts)
	}
}

func TestExtractor_SwallowsCompletionFailure(t *testing.T) {
	store := NewMemoryStore()
	ltm := NewLongTermMemory(store, DefaultScoringConfig())
	client := &fakeCompletionClient{jsonErr: errors.New("model unavailable")}
	e := NewExtractor(client, ltm, "cheap", 50, 4)

	if summary := e.Extract(context.Background(), "u1", "conv-1", "dialogue"); summary != "" {
		t.Fatalf("expected empty summary on total failure, got %q", summary)
	}
}
