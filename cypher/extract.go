package cypher

import (
	"regexp"
	"strings"

	"github.com/zero-day-ai/moviequery/llm"
)

var (
	// taggedFence matches a fence explicitly tagged as Cypher. The tag may sit
	// on the line after the opening backticks.
	taggedFence = regexp.MustCompile("```\\s*(?i:cypher)\\s+([\\s\\S]*?)```")

	// anyFence matches the first fence of any kind. A language tag on the
	// opening line is not part of the body.
	anyFence = regexp.MustCompile("```(?:[ \\t]*[\\w-]+[ \\t]*\\n)?([\\s\\S]*?)```")

	// queryHeading matches a leading "Cypher query:" or "Query:" label.
	queryHeading = regexp.MustCompile(`(?i)^\s*(?:cypher\s+)?query\s*:\s*`)

	// clauseStart matches a line that opens a Cypher statement.
	clauseStart = regexp.MustCompile(`(?i)^(MATCH|CALL|WITH|UNWIND|RETURN|CREATE|MERGE|OPTIONAL|USE)\b`)
)

// Extract pulls a single Cypher statement out of free-form model output.
//
// Reasoning traces are removed first. A ```cypher fence wins over any other
// fence; without fences the first block of lines starting with a clause
// keyword is used, and failing that the whole cleaned text. Surrounding
// backticks and quotes are trimmed last. Extract returns "" only when
// nothing is left.
func Extract(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	cleaned := llm.StripReasoning(text)

	var candidate string
	if m := taggedFence.FindStringSubmatch(cleaned); m != nil {
		candidate = m[1]
	} else if m := anyFence.FindStringSubmatch(cleaned); m != nil {
		candidate = m[1]
	} else {
		candidate = scanStatement(cleaned)
	}

	return trimWrapping(candidate)
}

// scanStatement implements the fence-less fallback.
func scanStatement(cleaned string) string {
	reduced := strings.ReplaceAll(cleaned, "**", "")
	reduced = queryHeading.ReplaceAllString(reduced, "")

	lines := strings.Split(reduced, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	start := -1
	for i, ln := range lines {
		if clauseStart.MatchString(ln) {
			start = i
			break
		}
	}
	if start < 0 {
		return cleaned
	}

	var collected []string
	for _, ln := range lines[start:] {
		if ln == "" {
			break
		}
		collected = append(collected, ln)
	}
	return strings.Join(collected, "\n")
}

// trimWrapping removes stray backticks from both ends, then quotes: a pair
// wrapping the whole statement, or a single quote at either end that has no
// partner in the statement. A balanced literal such as `RETURN 'x'` is left
// alone.
func trimWrapping(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")

	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return s
		}
		first, last := s[0], s[len(s)-1]
		switch {
		case isQuote(first) && unbalanced(s, first):
			s = s[1:]
		case isQuote(last) && unbalanced(s, last):
			s = s[:len(s)-1]
		case len(s) >= 2 && first == last && isQuote(first):
			s = s[1 : len(s)-1]
		default:
			return s
		}
	}
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// unbalanced reports whether quote occurs an odd number of times in s.
func unbalanced(s string, quote byte) bool {
	return strings.Count(s, string(quote))%2 == 1
}
