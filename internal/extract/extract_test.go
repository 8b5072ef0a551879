package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/extract"
	"codegraph/internal/extract/languages"
	"codegraph/internal/graph"
)

func newExtractor() *extract.Extractor {
	r := extract.NewRegistry()
	languages.RegisterGo(r)
	languages.RegisterPython(r)
	return extract.New(r)
}

const goSrc = `package demo

import "fmt"

func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

func caller() {
	Greet("world")
}
`

func TestExtract_GoFile(t *testing.T) {
	x := newExtractor()
	res, err := x.Extract("demo/greet.go", []byte(goSrc))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "go", res.Language)

	// First node is the file's module node.
	require.NotEmpty(t, res.Nodes)
	module := res.Nodes[0]
	assert.Equal(t, graph.KindModule, module.Kind)
	assert.Equal(t, "demo/greet.go", module.Name)
	assert.Equal(t, res.ModuleID, module.ID)

	var greet, caller *graph.Node
	for i := range res.Nodes {
		switch res.Nodes[i].Name {
		case "Greet":
			greet = &res.Nodes[i]
		case "caller":
			caller = &res.Nodes[i]
		}
	}
	require.NotNil(t, greet)
	require.NotNil(t, caller)

	assert.Equal(t, graph.KindFunction, greet.Kind)
	assert.True(t, greet.Exported)
	assert.False(t, caller.Exported)
	assert.Equal(t, "func Greet(name string) string", greet.Signature)
	assert.Equal(t, 5, greet.StartLine)

	// Every definition hangs off the module via a Contains edge.
	assert.Len(t, res.Contains, len(res.Nodes)-1)
	for _, e := range res.Contains {
		assert.Equal(t, module.ID, e.Source)
		assert.Equal(t, graph.EdgeContains, e.Kind)
	}

	// The import is symbolic, attributed to the module.
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "fmt", res.Imports[0].Target)
	assert.Equal(t, module.ID, res.Imports[0].FromID)
}

func TestExtract_CallAttribution(t *testing.T) {
	x := newExtractor()
	res, err := x.Extract("demo/greet.go", []byte(goSrc))
	require.NoError(t, err)
	require.NotNil(t, res)

	var callerID string
	for _, n := range res.Nodes {
		if n.Name == "caller" {
			callerID = n.ID
		}
	}
	require.NotEmpty(t, callerID)

	var found bool
	for _, c := range res.Calls {
		if c.Target == "Greet" {
			found = true
			assert.Equal(t, callerID, c.FromID, "call should belong to the enclosing function")
		}
	}
	assert.True(t, found, "expected a call ref to Greet")
}

func TestExtract_Python(t *testing.T) {
	src := `import os

class Greeter:
    def greet(self):
        return "hi"

def main():
    g = Greeter()
    g.greet()
`
	x := newExtractor()
	res, err := x.Extract("app/main.py", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "python", res.Language)

	names := map[string]graph.NodeKind{}
	for _, n := range res.Nodes[1:] {
		names[n.Name] = n.Kind
	}
	assert.Equal(t, graph.KindClass, names["Greeter"])
	assert.Equal(t, graph.KindFunction, names["main"])

	require.NotEmpty(t, res.Imports)
	assert.Equal(t, "os", res.Imports[0].Target)
}

func TestExtract_UnknownExtension(t *testing.T) {
	x := newExtractor()
	res, err := x.Extract("README.md", []byte("# hi"))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExtract_DeterministicIDs(t *testing.T) {
	x := newExtractor()
	a, err := x.Extract("demo/greet.go", []byte(goSrc))
	require.NoError(t, err)
	b, err := x.Extract("demo/greet.go", []byte(goSrc))
	require.NoError(t, err)

	require.Equal(t, len(a.Nodes), len(b.Nodes))
	for i := range a.Nodes {
		assert.Equal(t, a.Nodes[i].ID, b.Nodes[i].ID)
	}
}
