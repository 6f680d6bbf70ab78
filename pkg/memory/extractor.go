package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/providers"
)

const extractorComponent = "memory.extractor"

const extractionSystemPrompt = `You analyze a conversation between a household assistant and a user.
Extract durable knowledge about the user. Respond with a single JSON object:
{
  "facts": [{"fact": "...", "category": "food|health|habit|preference|family|work|other", "importance": "low|normal|high|critical"}],
  "preferences": [{"category": "...", "key": "...", "value": "..."}],
  "summary": "one or two sentences describing what the conversation was about"
}
Only include facts worth remembering across conversations. Use empty arrays when nothing qualifies.`

const summaryOnlySystemPrompt = `Summarize the following conversation between a household assistant and a user in one or two sentences. Respond with a JSON object: {"summary": "..."}`

// ExtractedFact is one candidate fact from the extraction model.
type ExtractedFact struct {
	Fact       string `json:"fact"`
	Category   string `json:"category"`
	Importance string `json:"importance"`
}

// ExtractedPreference is one candidate preference from the extraction model.
type ExtractedPreference struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// ExtractionResult is the parsed output of one extraction call.
type ExtractionResult struct {
	Facts       []ExtractedFact       `json:"facts"`
	Preferences []ExtractedPreference `json:"preferences"`
	Summary     string                `json:"summary"`
}

// Extractor turns finished conversations into long-term knowledge with a
// single JSON-mode completion on the cheap model tier. Every failure here is
// logged and swallowed: extraction must never break session teardown.
type Extractor struct {
	client   providers.CompletionClient
	longTerm *LongTermMemory
	model    string
	minChars int
	minMsgs  int
}

// NewExtractor wires an extractor. model is the cheap completion tier.
func NewExtractor(client providers.CompletionClient, longTerm *LongTermMemory, model string, minChars, minMsgs int) *Extractor {
	if minChars <= 0 {
		minChars = 50
	}
	if minMsgs <= 0 {
		minMsgs = 4
	}
	return &Extractor{client: client, longTerm: longTerm, model: model, minChars: minChars, minMsgs: minMsgs}
}

// ShouldExtract reports whether a conversation is substantial enough to be
// worth an extraction call.
func (e *Extractor) ShouldExtract(messageCount int, dialogue string) bool {
	return messageCount >= e.minMsgs && len(dialogue) >= e.minChars
}

// Extract runs the extraction call for a finished conversation and persists
// each fact and preference independently, so one bad item never discards the
// rest. Returns the conversation summary, which may be empty.
func (e *Extractor) Extract(ctx context.Context, userID, conversationID, dialogue string) string {
	result, err := e.requestExtraction(ctx, dialogue)
	if err != nil {
		logger.WarnCF(extractorComponent, "extraction call failed, falling back to summary only",
			map[string]any{"conversation_id": conversationID, "error": err.Error()})
		return e.GenerateSummary(ctx, dialogue)
	}

	saved := 0
	for _, item := range result.Facts {
		if strings.TrimSpace(item.Fact) == "" {
			continue
		}
		category := item.Category
		if !ValidFactCategory(category) {
			category = CategoryOther
		}
		importance, err := ParseImportance(item.Importance)
		if err != nil {
			importance = ImportanceNormal
		}
		fact := &UserFact{
			UserID:             userID,
			Fact:               item.Fact,
			Category:           category,
			Importance:         importance,
			SourceConversation: conversationID,
		}
		if err := e.longTerm.RememberFact(ctx, fact); err != nil {
			logger.WarnCF(extractorComponent, "failed to save extracted fact",
				map[string]any{"conversation_id": conversationID, "error": err.Error()})
			continue
		}
		saved++
	}

	for _, item := range result.Preferences {
		if item.Key == "" || item.Value == "" {
			continue
		}
		category := item.Category
		if category == "" {
			category = CategoryOther
		}
		pref := UserPreference{
			UserID:             userID,
			Category:           category,
			Key:                item.Key,
			Value:              item.Value,
			SourceConversation: conversationID,
		}
		if err := e.longTerm.SetPreference(ctx, pref); err != nil {
			logger.WarnCF(extractorComponent, "failed to save extracted preference",
				map[string]any{"conversation_id": conversationID, "error": err.Error()})
			continue
		}
		saved++
	}

	logger.InfoCF(extractorComponent, "extraction complete",
		map[string]any{"conversation_id": conversationID, "items_saved": saved})

	summary := result.Summary
	if strings.TrimSpace(summary) == "" {
		summary = e.GenerateSummary(ctx, dialogue)
	}
	return summary
}

func (e *Extractor) requestExtraction(ctx context.Context, dialogue string) (*ExtractionResult, error) {
	messages := []providers.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: dialogue},
	}
	raw, err := e.client.ChatJSON(ctx, e.model, messages, providers.Options{MaxTokens: 800})
	if err != nil {
		return nil, err
	}
	var result ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return &result, nil
}

// GenerateSummary asks only for a summary, used as the fallback when full
// extraction fails or comes back without one. Returns "" on any failure.
func (e *Extractor) GenerateSummary(ctx context.Context, dialogue string) string {
	messages := []providers.Message{
		{Role: "system", Content: summaryOnlySystemPrompt},
		{Role: "user", Content: dialogue},
	}
	raw, err := e.client.ChatJSON(ctx, e.model, messages, providers.Options{MaxTokens: 200})
	if err != nil {
		logger.WarnCF(extractorComponent, "summary fallback failed", map[string]any{"error": err.Error()})
		return ""
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.WarnCF(extractorComponent, "summary fallback returned invalid json", map[string]any{"error": err.Error()})
		return ""
	}
	return out.Summary
}
