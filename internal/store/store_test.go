package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/graph"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "index.db"), WithVectorDim(4))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testNode(id, name, file string, exported bool) graph.Node {
	return graph.Node{
		ID: id, Name: name, Kind: graph.KindFunction, FilePath: file,
		StartLine: 1, EndLine: 3, Language: "go", Exported: exported,
		Signature: "func " + name + "()",
		Body:      "func " + name + "() {}",
	}
}

func TestUpsertNodes_Idempotent(t *testing.T) {
	st := openTestStore(t)
	nodes := []graph.Node{testNode("n1", "Alpha", "a.go", true)}

	require.NoError(t, st.UpsertNodes(nodes))
	require.NoError(t, st.UpsertNodes(nodes))

	all, err := st.GetAllNodes()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	hits, err := st.SearchText("Alpha", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestGetNode_ByIDThenName(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Alpha", "a.go", true),
	}))

	byID, err := st.GetNode("n1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alpha", byID.Name)

	byName, err := st.GetNode("Alpha")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "n1", byName.ID)

	missing, err := st.GetNode("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetNode_NameTieBreak(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Dup", "internal/deep/nested/file.go", false),
		testNode("n2", "Dup", "short.go", false),
		testNode("n3", "Dup", "internal/other.go", true),
	}))

	// Exported beats shorter path.
	got, err := st.GetNode("Dup")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "n3", got.ID)
}

func TestGetNode_TieBreakByPathThenInsertion(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Dup", "a/b/c.go", false),
		testNode("n2", "Dup", "z.go", false),
		testNode("n3", "Dup", "y.go", false),
	}))

	got, err := st.GetNode("Dup")
	require.NoError(t, err)
	require.NotNil(t, got)
	// z.go and y.go tie on length; n2 was inserted first.
	assert.Equal(t, "n2", got.ID)
}

func TestUpsertEdges_DuplicatesIgnored(t *testing.T) {
	st := openTestStore(t)
	e := graph.Edge{Source: "a", Target: "b", Kind: graph.EdgeCalls, FilePath: "a.go", Line: 4}

	require.NoError(t, st.UpsertEdges([]graph.Edge{e, e}))
	require.NoError(t, st.UpsertEdges([]graph.Edge{e}))

	edges, err := st.GetAllEdges()
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestEdgeFilters(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertEdges([]graph.Edge{
		{Source: "a", Target: "b", Kind: graph.EdgeCalls, FilePath: "a.go", Line: 1},
		{Source: "a", Target: "c", Kind: graph.EdgeImports, FilePath: "a.go", Line: 2},
		{Source: "b", Target: "c", Kind: graph.EdgeCalls, FilePath: "b.go", Line: 3},
	}))

	calls, err := st.EdgesFrom("a", graph.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "b", calls[0].Target)

	into, err := st.EdgesInto("c")
	require.NoError(t, err)
	assert.Len(t, into, 2)

	imports, err := st.EdgesOfKind(graph.EdgeImports)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

func TestDeleteFile_PurgesEverything(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Gone", "doomed.go", true),
		testNode("n2", "Stays", "safe.go", true),
	}))
	require.NoError(t, st.UpsertEdges([]graph.Edge{
		{Source: "n1", Target: "n2", Kind: graph.EdgeCalls, FilePath: "doomed.go", Line: 2},
	}))
	require.NoError(t, st.UpsertFileHash(graph.FileHash{Path: "doomed.go", Hash: "h1", Language: "go"}))
	require.NoError(t, st.InsertUnresolvedRef(graph.UnresolvedRef{
		Source: "n1", Specifier: "mystery", RefType: "call", FilePath: "doomed.go", Line: 2,
	}))
	require.NoError(t, st.UpsertEmbeddings([]string{"n1"}, [][]float32{{1, 0, 0, 0}}, "test-model"))

	require.NoError(t, st.DeleteFile("doomed.go"))

	n, err := st.GetNode("n1")
	require.NoError(t, err)
	assert.Nil(t, n)

	// The shadow indexes must not serve ghosts.
	hits, err := st.SearchText("Gone", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	vhits, err := st.SearchVector([]float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, vhits)

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 0, stats.Edges)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.Embeddings)
	assert.Equal(t, 0, stats.UnresolvedRefs)
}

func TestSearchText_RanksAndLimits(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "ParseConfig", "config.go", true),
		testNode("n2", "ParseFile", "file.go", true),
		testNode("n3", "WriteOutput", "out.go", true),
	}))

	hits, err := st.SearchText("ParseConfig", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "n1", hits[0].Node.ID)

	hits, err = st.SearchText("ParseConfig ParseFile", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = st.SearchText("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_NearestFirst(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Near", "a.go", true),
		testNode("n2", "Far", "b.go", true),
	}))
	require.NoError(t, st.UpsertEmbeddings(
		[]string{"n1", "n2"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		"test-model",
	))

	hits, err := st.SearchVector([]float32{0.9, 0.1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "n1", hits[0].Node.ID)
}

func TestUpsertEmbeddings_SkipsDeletedNodes(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{testNode("n1", "Live", "a.go", true)}))

	err := st.UpsertEmbeddings(
		[]string{"n1", "deleted-node"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		"test-model",
	)
	require.NoError(t, err)

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embeddings)
}

func TestUpsertEmbeddings_LengthMismatch(t *testing.T) {
	st := openTestStore(t)
	err := st.UpsertEmbeddings([]string{"a", "b"}, [][]float32{{1, 0, 0, 0}}, "m")
	assert.Error(t, err)
}

func TestFileHashes(t *testing.T) {
	st := openTestStore(t)

	hash, err := st.GetFileHash("a.go")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, st.UpsertFileHash(graph.FileHash{Path: "a.go", Hash: "h1", Language: "go"}))
	require.NoError(t, st.UpsertFileHash(graph.FileHash{Path: "a.go", Hash: "h2", Language: "go"}))

	hash, err = st.GetFileHash("a.go")
	require.NoError(t, err)
	assert.Equal(t, "h2", hash)

	files, err := st.ListFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "h2", files[0].Hash)
}

func TestAllNames_Distinct(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.UpsertNodes([]graph.Node{
		testNode("n1", "Dup", "a.go", true),
		testNode("n2", "Dup", "b.go", true),
		testNode("n3", "Other", "c.go", true),
	}))

	names, err := st.AllNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Dup", "Other"}, names)
}

func TestFtsQuery(t *testing.T) {
	assert.Equal(t, `"foo"`, ftsQuery("foo"))
	assert.Equal(t, `"foo" OR "bar"`, ftsQuery("foo bar"))
	assert.Equal(t, "", ftsQuery("   "))
	assert.Equal(t, `"say""hi"""`, ftsQuery(`say"hi"`))
}
