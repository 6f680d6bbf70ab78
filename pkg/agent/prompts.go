package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/memory"
)

const basePrompt = `You are Hearth, a warm and practical household assistant speaking through a voice interface.
Keep answers short and conversational: one to three sentences, no markdown, no lists unless asked.
Use the tools you are given instead of guessing about weather, time, math, reminders, groceries or orders.
If you do not know something about the user, ask rather than assume.`

// ContextLimits bounds how much long-term knowledge goes into the prompt.
type ContextLimits struct {
	Facts       int
	Preferences int
	Summaries   int
}

// BuildSystemPrompt assembles the per-turn system prompt: the base persona
// plus, when available, a block describing what is known about the user. Any
// failure loading context degrades to the base prompt alone; a turn must
// never die because the memory layer hiccuped.
func (a *Agent) BuildSystemPrompt(ctx context.Context, userMessage string) string {
	userBlock, err := a.buildUserContext(ctx, userMessage)
	if err != nil {
		logger.WarnCF(agentComponent, "user context unavailable, using base prompt",
			map[string]any{"user_id": a.user.ID, "error": err.Error()})
		return basePrompt
	}
	if userBlock == "" {
		return basePrompt
	}
	return basePrompt + "\n\n" + userBlock
}

func (a *Agent) buildUserContext(ctx context.Context, userMessage string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "ABOUT THE CURRENT USER:\nName: %s\nRole: %s\n", a.user.Name, a.user.Role)
	if a.user.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", a.user.Age)
	}
	if a.user.PreferredLanguage != "" {
		fmt.Fprintf(&b, "Preferred language: %s\n", a.user.PreferredLanguage)
	}
	if a.user.RequiresApproval {
		b.WriteString("Orders from this user need approval from an adult before purchase.\n")
	}
	if a.user.DailyOrderLimit > 0 {
		fmt.Fprintf(&b, "Daily order limit: %.0f\n", a.user.DailyOrderLimit)
	}

	if a.user.Role == memory.RoleElderly && a.user.MedicalInfo != nil {
		writeMedicalBlock(&b, a.user.MedicalInfo)
	}

	prefs, err := a.longTerm.Preferences(ctx, a.user.ID)
	if err != nil {
		return "", fmt.Errorf("load preferences: %w", err)
	}
	writePreferenceBlock(&b, prefs, a.limits.Preferences)

	scored, err := a.longTerm.RelevantFacts(ctx, a.user.ID, userMessage, a.limits.Facts)
	if err != nil {
		return "", fmt.Errorf("load relevant facts: %w", err)
	}
	if len(scored) > 0 {
		b.WriteString("\nTHINGS YOU KNOW ABOUT THIS USER:\n")
		for _, sf := range scored {
			if sf.Fact.Importance == memory.ImportanceCritical || sf.Fact.Importance == memory.ImportanceHigh {
				fmt.Fprintf(&b, "- [IMPORTANT] %s\n", sf.Fact.Fact)
			} else {
				fmt.Fprintf(&b, "- %s\n", sf.Fact.Fact)
			}
		}
	}

	summaries, err := a.longTerm.Summaries(ctx, a.user.ID, a.limits.Summaries)
	if err != nil {
		return "", fmt.Errorf("load summaries: %w", err)
	}
	if len(summaries) > 0 {
		b.WriteString("\nRECENT CONVERSATIONS:\n")
		for _, summary := range summaries {
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func writeMedicalBlock(b *strings.Builder, med *memory.MedicalInfo) {
	b.WriteString("\nMEDICAL INFO (handle with care):\n")
	for _, m := range med.Medicines {
		line := m.Name
		if m.Dosage != "" {
			line += " " + m.Dosage
		}
		if m.Timing != "" {
			line += ", " + m.Timing
		}
		fmt.Fprintf(b, "- Medicine: %s\n", line)
	}
	if len(med.Allergies) > 0 {
		fmt.Fprintf(b, "- Allergies: %s\n", strings.Join(med.Allergies, ", "))
	}
	if len(med.Conditions) > 0 {
		fmt.Fprintf(b, "- Conditions: %s\n", strings.Join(med.Conditions, ", "))
	}
	for _, c := range med.EmergencyContacts {
		fmt.Fprintf(b, "- Emergency contact: %s (%s) %s\n", c.Name, c.Relation, c.Phone)
	}
}

func writePreferenceBlock(b *strings.Builder, prefs map[string]map[string]string, limit int) {
	if len(prefs) == 0 {
		return
	}
	var lines []string
	for category, kv := range prefs {
		for key, value := range kv {
			lines = append(lines, fmt.Sprintf("- %s/%s: %s", category, key, value))
		}
	}
	sort.Strings(lines)
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	b.WriteString("\nUSER PREFERENCES:\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}
