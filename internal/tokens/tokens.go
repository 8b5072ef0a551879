// Package tokens estimates LLM token costs for source text and provides
// budget-aware truncation. The heuristic is tuned for code: long
// identifiers are one token, operators are one token each, and whitespace
// is free, which tracks real tokenizers far better than length/4 does.
package tokens

import "strings"

// Estimate scans text character by character: a maximal run of identifier
// characters costs 1 token regardless of length, each punctuation or
// operator character costs 1, whitespace costs 0, and the content between
// matching quotes costs ceil(len/4)+1.
func Estimate(text string) int {
	runes := []rune(text)
	count := 0
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isSpace(r):
			i++
		case isIdent(r):
			for i < len(runes) && isIdent(runes[i]) {
				i++
			}
			count++
		case r == '"' || r == '\'' || r == '`':
			close := indexRune(runes, i+1, r)
			if close < 0 {
				// Unmatched quote: count it as punctuation and move on.
				count++
				i++
				continue
			}
			content := close - i - 1
			count += (content+3)/4 + 1
			i = close + 1
		default:
			count++
			i++
		}
	}
	return count
}

// TruncateToFit returns a prefix of whole lines of text whose estimated
// cost fits within budget. When even the first line is too large it is
// returned verbatim, so a positive budget never yields an empty result for
// non-empty input. A non-positive budget yields "".
func TruncateToFit(text string, budget int) string {
	if budget <= 0 || text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	used := 0
	kept := 0
	for i, line := range lines {
		cost := Estimate(line)
		if used+cost > budget {
			if i == 0 {
				return line
			}
			break
		}
		used += cost
		kept = i + 1
	}
	return strings.Join(lines[:kept], "\n")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isIdent(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func indexRune(runes []rune, from int, want rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == want {
			return i
		}
	}
	return -1
}
