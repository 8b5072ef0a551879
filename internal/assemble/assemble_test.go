package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/graph"
	"codegraph/internal/search"
	"codegraph/internal/tokens"
	"codegraph/internal/traverse"
)

func TestAppendTier_RespectsBudget(t *testing.T) {
	a := New(nil, nil, nil)
	res := &Result{Budget: 10}

	remaining := a.appendTier(res, "core", "aa bb cc\ndd ee ff", 10)
	assert.Equal(t, []string{"core"}, res.Tiers)
	assert.Equal(t, 4, remaining)
	assert.Equal(t, "aa bb cc\ndd ee ff", res.Text)

	// The next tier only partially fits: whole lines only.
	remaining = a.appendTier(res, "near", "gg hh\nii jj\nkk ll", remaining)
	assert.Equal(t, 0, remaining)
	assert.True(t, strings.HasSuffix(res.Text, "gg hh\nii jj"))
	assert.Equal(t, []string{"core", "near"}, res.Tiers)

	// Exhausted budget drops later tiers entirely.
	remaining = a.appendTier(res, "extended", "mm nn", remaining)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, []string{"core", "near"}, res.Tiers)
}

func TestAppendTier_OversizedFirstTierAdmitted(t *testing.T) {
	a := New(nil, nil, nil)
	res := &Result{Budget: 2}

	// A single line larger than the whole budget still goes in when the
	// result would otherwise be empty.
	remaining := a.appendTier(res, "core", "one two three four five", 2)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, "one two three four five", res.Text)

	// But an oversized later tier is dropped.
	remaining = a.appendTier(res, "near", "six seven eight nine ten", remaining)
	assert.Equal(t, 0, remaining)
	assert.NotContains(t, res.Text, "six")
}

func TestAppendTier_EmptyTierSkipped(t *testing.T) {
	a := New(nil, nil, nil)
	res := &Result{Budget: 10}

	remaining := a.appendTier(res, "near", "", 10)
	assert.Equal(t, 10, remaining)
	assert.Empty(t, res.Tiers)
}

func TestRenderCore(t *testing.T) {
	seeds := []search.Result{{
		Node: graph.Node{
			Name: "Parse", Kind: graph.KindFunction, FilePath: "parse.go",
			StartLine: 12, Language: "go",
			Signature: "func Parse(s string) error",
			Body:      "func Parse(s string) error {\n\treturn nil\n}",
		},
	}}

	full := renderCore("parse", seeds, traverse.DetailFull)
	assert.Contains(t, full, "Parse")
	assert.Contains(t, full, "```go")
	assert.Contains(t, full, "return nil")

	summary := renderCore("parse", seeds, traverse.DetailSummary)
	assert.Contains(t, summary, "func Parse(s string) error")
	assert.NotContains(t, summary, "```")
}

func TestRenderCore_NoMatches(t *testing.T) {
	out := renderCore("nothing", nil, traverse.DetailStandard)
	assert.Contains(t, out, "No symbols matched")
}

func TestRenderNeighbors(t *testing.T) {
	assert.Empty(t, renderNeighbors("Tier 2", nil))

	out := renderNeighbors("Tier 2: Direct relationships", []traverse.Node{
		{Name: "helper", Kind: graph.KindFunction, FilePath: "h.go", StartLine: 4},
	})
	assert.Contains(t, out, "Tier 2")
	assert.Contains(t, out, "helper")
	assert.Contains(t, out, "h.go:4")
}

func TestTierCostsAccountedConsistently(t *testing.T) {
	// The budget arithmetic and the estimator must agree, or TokensUsed
	// drifts from reality.
	text := "alpha beta\ngamma delta"
	a := New(nil, nil, nil)
	res := &Result{Budget: 100}

	remaining := a.appendTier(res, "core", text, 100)
	require.Equal(t, 100-tokens.Estimate(text), remaining)
}
