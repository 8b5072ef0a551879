package expand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_OriginalFirst(t *testing.T) {
	terms := Expand("  getUserById  ")
	require.NotEmpty(t, terms)
	assert.Equal(t, "getUserById", terms[0])
}

func TestExpand_Empty(t *testing.T) {
	assert.Equal(t, []string{""}, Expand(""))
	assert.Equal(t, []string{""}, Expand("   "))
}

func TestExpand_SplitsCompoundIdentifiers(t *testing.T) {
	terms := Expand("getUserById")
	assert.Contains(t, terms, "get User By Id")
}

func TestExpand_Abbreviations(t *testing.T) {
	terms := Expand("db conn")
	assert.Contains(t, terms, "database")
	assert.Contains(t, terms, "connection")

	// The table works in both directions.
	terms = Expand("database")
	assert.Contains(t, terms, "db")
}

func TestExpand_Synonyms(t *testing.T) {
	terms := Expand("remove")
	assert.Contains(t, terms, "delete")
	assert.Contains(t, terms, "destroy")
	assert.Contains(t, terms, "drop")
}

func TestExpand_NoCaseInsensitiveDuplicates(t *testing.T) {
	terms := Expand("Delete remove")
	seen := map[string]bool{}
	for _, term := range terms {
		key := strings.ToLower(term)
		assert.False(t, seen[key], "duplicate term %q", term)
		seen[key] = true
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPSServer", []string{"HTTPS", "Server"}},
		{"parseJSON", []string{"parse", "JSON"}},
		{"snake_case_name", []string{"snake", "case", "name"}},
		{"kebab-case-name", []string{"kebab", "case", "name"}},
		{"ALLCAPS", []string{"ALLCAPS"}},
		{"simple", []string{"simple"}},
		{"XMLHttpRequest", []string{"XML", "Http", "Request"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.in))
		})
	}
}
