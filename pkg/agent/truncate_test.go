package agent

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateForVoice_ShortInputUnchanged(t *testing.T) {
	in := "Short answer."
	if got := TruncateForVoice(in, 300); got != in {
		t.Fatalf("short input must pass through, got %q", got)
	}
	// Idempotent on already-truncated output.
	once := TruncateForVoice(strings.Repeat("a", 400), 300)
	if TruncateForVoice(once, 300) != once {
		t.Fatalf("truncation must be idempotent")
	}
}

func TestTruncateForVoice_CutsAtSentenceBoundary(t *testing.T) {
	in := "First sentence is here. Second sentence is quite a bit longer and just keeps going."
	got := TruncateForVoice(in, 40)
	if got != "First sentence is here." {
		t.Fatalf("expected cut at sentence boundary, got %q", got)
	}
}

func TestTruncateForVoice_EarlyBoundaryIgnored(t *testing.T) {
	// The only boundary sits before half the budget, so we hard-cut.
	in := "Hi. " + strings.Repeat("x", 100)
	got := TruncateForVoice(in, 40)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis hard cut, got %q", got)
	}
	if len(got) != 43 {
		t.Fatalf("expected budget+3 length, got %d", len(got))
	}
}

func TestTruncateForVoice_NeverExceedsBudgetPlusEllipsis(t *testing.T) {
	in := strings.Repeat("word ", 200)
	for _, budget := range []int{10, 50, 123, 300} {
		got := TruncateForVoice(in, budget)
		if len(got) > budget+3 {
			t.Fatalf("budget %d: output length %d exceeds budget+3", budget, len(got))
		}
	}
}

func TestTruncateForVoice_KeepsMultiByteTextValid(t *testing.T) {
	in := strings.Repeat("à bientôt señora ", 30)
	for _, budget := range []int{20, 33, 50, 101} {
		got := TruncateForVoice(in, budget)
		if !utf8.ValidString(got) {
			t.Fatalf("budget %d: truncation split a rune: %q", budget, got)
		}
		if len(got) > budget+3 {
			t.Fatalf("budget %d: output length %d exceeds budget+3", budget, len(got))
		}
	}
}

func TestTruncateForVoice_QuestionAndExclamationBoundaries(t *testing.T) {
	in := "Is that right? I really think so and here come many more words to push past the budget."
	got := TruncateForVoice(in, 30)
	if got != "Is that right?" {
		t.Fatalf("expected question-mark boundary, got %q", got)
	}
}
