package agent

import (
	"strings"
	"unicode/utf8"
)

// TruncateForVoice shortens text to fit a spoken response budget. It prefers
// to cut at the last sentence boundary in the allowed window, as long as
// that keeps at least half the budget; otherwise it hard-cuts and appends an
// ellipsis. The hard cut lands on a rune boundary so multi-byte text stays
// valid UTF-8. Output never exceeds maxChars+3 bytes.
func TruncateForVoice(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	end := maxChars
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	window := text[:end]
	cut := strings.LastIndexAny(window, ".?!")
	if cut >= maxChars/2 {
		return window[:cut+1]
	}
	return window + "..."
}
