// Package expand turns a raw query string into a ranked list of alternative
// search terms. Expansion is deterministic and entirely static: identifier
// splitting, an abbreviation table, and synonym groups. No network calls.
package expand

import (
	"strings"
	"unicode"
)

// abbreviationPairs maps short forms to long forms. The table is applied in
// both directions: a token matching either side adds the other side.
var abbreviationPairs = [][2]string{
	{"auth", "authentication"},
	{"authz", "authorization"},
	{"cfg", "configuration"},
	{"config", "configuration"},
	{"db", "database"},
	{"conn", "connection"},
	{"ctx", "context"},
	{"err", "error"},
	{"fn", "function"},
	{"func", "function"},
	{"impl", "implementation"},
	{"init", "initialize"},
	{"msg", "message"},
	{"num", "number"},
	{"param", "parameter"},
	{"repo", "repository"},
	{"req", "request"},
	{"resp", "response"},
	{"res", "result"},
	{"str", "string"},
	{"util", "utility"},
	{"val", "value"},
	{"var", "variable"},
	{"dir", "directory"},
	{"doc", "documentation"},
	{"idx", "index"},
	{"mgr", "manager"},
	{"pkg", "package"},
	{"env", "environment"},
	{"spec", "specification"},
	{"stmt", "statement"},
	{"sync", "synchronize"},
	{"tmp", "temporary"},
}

// synonymGroups are sets of interchangeable verbs and nouns. A token in a
// group adds every other member.
var synonymGroups = [][]string{
	{"remove", "delete", "destroy", "drop"},
	{"create", "add", "insert", "new"},
	{"get", "fetch", "retrieve", "read", "load"},
	{"set", "update", "modify", "write", "store"},
	{"find", "search", "lookup", "locate", "query"},
	{"start", "begin", "launch", "run"},
	{"stop", "halt", "terminate", "kill", "cancel"},
	{"send", "emit", "publish", "dispatch"},
	{"receive", "consume", "subscribe", "listen"},
	{"check", "verify", "validate", "test"},
	{"parse", "decode", "unmarshal", "deserialize"},
	{"format", "encode", "marshal", "serialize"},
	{"open", "connect", "dial"},
	{"close", "disconnect", "shutdown"},
	{"list", "enumerate", "iterate"},
	{"copy", "clone", "duplicate"},
	{"merge", "combine", "join"},
	{"split", "divide", "partition"},
	{"handle", "process", "execute"},
	{"error", "failure", "fault", "exception"},
}

var (
	abbreviations = buildAbbreviations()
	synonyms      = buildSynonyms()
)

func buildAbbreviations() map[string][]string {
	m := make(map[string][]string)
	for _, p := range abbreviationPairs {
		m[p[0]] = append(m[p[0]], p[1])
		m[p[1]] = append(m[p[1]], p[0])
	}
	return m
}

func buildSynonyms() map[string][]string {
	m := make(map[string][]string)
	for _, group := range synonymGroups {
		for _, word := range group {
			for _, other := range group {
				if other != word {
					m[word] = append(m[word], other)
				}
			}
		}
	}
	return m
}

// Expand returns the trimmed original query followed by expansion terms,
// deduplicated case-insensitively. The caller gives the first element the
// highest fusion weight. Empty input yields a single empty string.
func Expand(query string) []string {
	original := strings.TrimSpace(query)
	if original == "" {
		return []string{""}
	}

	seen := map[string]bool{strings.ToLower(original): true}
	results := []string{original}
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if !seen[key] {
			seen[key] = true
			results = append(results, term)
		}
	}

	tokens := strings.Fields(original)
	var words []string
	for _, tok := range tokens {
		parts := SplitIdentifier(tok)
		if len(parts) > 1 {
			add(strings.Join(parts, " "))
		}
		words = append(words, tok)
		words = append(words, parts...)
	}

	for _, w := range words {
		lw := strings.ToLower(w)
		for _, alt := range abbreviations[lw] {
			add(alt)
		}
		for _, alt := range synonyms[lw] {
			add(alt)
		}
	}

	return results
}

// SplitIdentifier segments a compound identifier: first on underscores and
// hyphens, then on camelCase/PascalCase boundaries. A maximal run of
// uppercase letters is kept as one acronym token unless it is followed by a
// lowercase letter, in which case the split falls before the run's last
// uppercase letter: HTTPSServer -> [HTTPS Server], parseJSON -> [parse JSON].
func SplitIdentifier(s string) []string {
	var parts []string
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	}) {
		parts = append(parts, splitCamel(seg)...)
	}
	return parts
}

func splitCamel(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		switch {
		case !unicode.IsUpper(prev) && unicode.IsUpper(cur):
			// lower/digit to upper: getUser -> get | User
			parts = append(parts, string(runes[start:i]))
			start = i
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// acronym run ending before a capitalized word: HTTPSServer -> HTTPS | Server
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
