package cypher

import "unicode"

// References lists the node labels and relationship types a statement names
// inside its patterns, in order of first appearance.
type References struct {
	Labels            []string
	RelationshipTypes []string
}

// Bracket kinds kept on the scan stack. A '[' opens a relationship pattern
// only when it follows a '-'; any other '[' is a list, a list comprehension,
// a pattern comprehension or an index.
const (
	openNode         = '('
	openRelationship = '['
	openList         = 'l'
	openMap          = '{'
)

// ScanReferences walks a Cypher statement and collects the labels used in
// node patterns "(n:Label)" and the types used in relationship patterns
// "-[r:TYPE|OTHER]-". String literals, comments and map literals are skipped.
// Label predicates outside patterns ("WHERE n:Label", including those inside
// list comprehensions) are not collected.
func ScanReferences(query string) References {
	var (
		refs      References
		stack     []byte
		seenLabel = map[string]bool{}
		seenRel   = map[string]bool{}
		chained   bool
	)

	record := func(name string) {
		if name == "" || len(stack) == 0 {
			return
		}
		switch stack[len(stack)-1] {
		case openNode:
			if !seenLabel[name] {
				seenLabel[name] = true
				refs.Labels = append(refs.Labels, name)
			}
			chained = true
		case openRelationship:
			if !seenRel[name] {
				seenRel[name] = true
				refs.RelationshipTypes = append(refs.RelationshipTypes, name)
			}
			chained = true
		}
	}

	src := []rune(query)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			i = skipString(src, i)
			chained = false
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(':
			stack = append(stack, openNode)
			chained = false
		case c == '{':
			stack = append(stack, openMap)
			chained = false
		case c == '[':
			kind := byte(openList)
			if prevNonSpace(src, i) == '-' {
				kind = openRelationship
			}
			stack = append(stack, kind)
			chained = false
		case c == ')' || c == ']' || c == '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			chained = false
		case c == ':' || (c == '|' && chained):
			j := i + 1
			if c == '|' && j < len(src) && src[j] == ':' {
				j++
			}
			name, end := readIdentifier(src, j)
			if name != "" {
				record(name)
				i = end - 1
			} else {
				chained = false
			}
		case unicode.IsSpace(c):
		default:
			chained = false
		}
	}
	return refs
}

// prevNonSpace returns the last non-space rune before i, or 0.
func prevNonSpace(src []rune, i int) rune {
	for j := i - 1; j >= 0; j-- {
		if !unicode.IsSpace(src[j]) {
			return src[j]
		}
	}
	return 0
}

// skipString returns the index of the closing quote of the literal opened at i.
func skipString(src []rune, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return len(src) - 1
}

// readIdentifier reads a plain or backtick-quoted identifier starting at i,
// after optional whitespace. It returns "" when none is present.
func readIdentifier(src []rune, i int) (string, int) {
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	if i >= len(src) {
		return "", i
	}

	if src[i] == '`' {
		for j := i + 1; j < len(src); j++ {
			if src[j] == '`' {
				return string(src[i+1 : j]), j + 1
			}
		}
		return "", i
	}

	if !unicode.IsLetter(src[i]) && src[i] != '_' {
		return "", i
	}
	j := i
	for j < len(src) && (unicode.IsLetter(src[j]) || unicode.IsDigit(src[j]) || src[j] == '_') {
		j++
	}
	return string(src[i:j]), j
}
