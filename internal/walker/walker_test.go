package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var goExts = map[string]bool{"go": true}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, root string, exts map[string]bool) []string {
	t.Helper()
	files, errs := Walk(context.Background(), root, exts)
	var paths []string
	for f := range files {
		paths = append(paths, f.RelPath)
	}
	require.NoError(t, <-errs)
	return paths
}

func TestWalk_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "sub/util.go", "package sub")

	paths := collect(t, root, goExts)
	assert.ElementsMatch(t, []string{"main.go", "sub/util.go"}, paths)
}

func TestWalk_SkipsDefaultIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "node_modules/dep/index.go", "package dep")
	writeFile(t, root, "vendor/lib/lib.go", "package lib")
	writeFile(t, root, ".codegraph/cache.go", "package cache")

	paths := collect(t, root, goExts)
	assert.ElementsMatch(t, []string{"main.go"}, paths)
}

func TestWalk_SkipsEmptyAndHugeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty.go", "")
	writeFile(t, root, "ok.go", "package ok")

	big := make([]byte, maxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.go"), big, 0o644))

	paths := collect(t, root, goExts)
	assert.ElementsMatch(t, []string{"ok.go"}, paths)
}

func TestWalk_HonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".codegraph/ignore", "# comment\ngenerated\n")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "generated/gen.go", "package gen")

	paths := collect(t, root, goExts)
	assert.ElementsMatch(t, []string{"main.go"}, paths)
}

func TestWalk_CancelReleasesWalker(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		writeFile(t, root, fmt.Sprintf("f%03d.go", i), "package f")
	}

	ctx, cancel := context.WithCancel(context.Background())
	files, errs := Walk(ctx, root, goExts)

	// Take one file, then abandon the channel mid-walk. With the buffer full
	// the walk goroutine must exit on cancellation, not block on the send.
	<-files
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("walk goroutine still blocked after cancellation")
	}
}

func TestMatchesIgnore(t *testing.T) {
	patterns := []string{"node_modules", "*.tmp", "build"}

	assert.True(t, matchesIgnore("node_modules", "node_modules", patterns))
	assert.True(t, matchesIgnore("x.tmp", "sub/x.tmp", patterns))
	assert.True(t, matchesIgnore("deep", "build/deep", patterns))
	assert.False(t, matchesIgnore("src", "src", patterns))
}
