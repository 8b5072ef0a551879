package tokens

import "strings"

// Signature reduces a symbol body to a one-line declaration: everything
// before the first '{' when non-empty, else everything up to and including
// the first '=>', else the first line. Whitespace runs collapse to a
// single space so multi-line declarations render on one line.
func Signature(body string) string {
	if body == "" {
		return ""
	}

	if i := strings.IndexByte(body, '{'); i >= 0 {
		if head := strings.TrimSpace(body[:i]); head != "" {
			return collapse(head)
		}
	}
	if i := strings.Index(body, "=>"); i >= 0 {
		return collapse(strings.TrimSpace(body[:i+2]))
	}

	line := body
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		line = body[:i]
	}
	return collapse(strings.TrimSpace(line))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
