package llm

import (
	"regexp"
	"strings"
)

// thinkBlock matches a <think>...</think> reasoning trace, any case, across
// lines, together with the whitespace that follows it.
var thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>\s*`)

// StripReasoning removes every <think>...</think> block some models emit
// before their final output and trims surrounding whitespace.
func StripReasoning(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
