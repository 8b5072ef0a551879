package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"codegraph/internal/extract"
	"codegraph/internal/extract/languages"
	"codegraph/internal/logging"
	"codegraph/internal/store"
)

// resolveDBPath picks the database location: the --db flag or config value
// if set, otherwise <root>/.codegraph/index.db.
func resolveDBPath(root string) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return filepath.Join(root, ".codegraph", "index.db")
}

// openStore opens an existing index, refusing to create one implicitly.
func openStore(dbPath string) (store.Store, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("index not found at %s\nRun 'codegraph index <path>' first to build the index", dbPath)
	}
	st, err := store.Open(dbPath, store.WithVectorDim(cfg.VectorDim))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return st, nil
}

// createStore opens or creates the index, making the parent directory.
func createStore(dbPath string) (store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	st, err := store.Open(dbPath, store.WithVectorDim(cfg.VectorDim))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return st, nil
}

func languageRegistry() *extract.Registry {
	r := extract.NewRegistry()
	languages.RegisterGo(r)
	languages.RegisterJavaScript(r)
	languages.RegisterTypeScript(r)
	languages.RegisterPython(r)
	return r
}

// newLogger builds the process logger. Everything goes to stderr so stdout
// stays clean for command output and MCP stdio.
func newLogger() *slog.Logger {
	return logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}
