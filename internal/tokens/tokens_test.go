package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \t\n  ", 0},
		{"single identifier", "abcd", 1},
		{"long identifier still one token", "reallyLongIdentifierName_42", 1},
		{"punctuation each counts", "(){};", 5},
		{"small function", "fn foo() { return 1 + 2; }", 11},
		{"string literal", `x = "hello"`, 5},
		{"empty string literal", `""`, 1},
		{"unmatched quote is punctuation", `don't`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestTruncateToFit(t *testing.T) {
	text := "aa bb\ncc dd\nee ff"
	// Each line costs 2 tokens.

	assert.Equal(t, text, TruncateToFit(text, 100))
	assert.Equal(t, "aa bb\ncc dd", TruncateToFit(text, 4))
	assert.Equal(t, "aa bb", TruncateToFit(text, 3))
}

func TestTruncateToFit_OversizedFirstLine(t *testing.T) {
	// A first line that alone exceeds the budget comes back verbatim so a
	// positive budget never produces an empty result.
	got := TruncateToFit("a b c d e f g h", 2)
	assert.Equal(t, "a b c d e f g h", got)
}

func TestTruncateToFit_ZeroBudget(t *testing.T) {
	assert.Equal(t, "", TruncateToFit("anything", 0))
	assert.Equal(t, "", TruncateToFit("anything", -5))
	assert.Equal(t, "", TruncateToFit("", 10))
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", ""},
		{"go function", "func Add(a, b int) int {\n\treturn a + b\n}", "func Add(a, b int) int"},
		{"multiline declaration collapses", "func Add(\n\ta int,\n\tb int,\n) int {\n\treturn a + b\n}", "func Add( a int, b int, ) int"},
		{"arrow function", "const add = (a, b) => a + b", "const add = (a, b) =>"},
		{"plain statement first line", "x = compute()\ny = 2", "x = compute()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Signature(tt.body))
		})
	}
}
