package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveImport(t *testing.T) {
	byPath := map[string]string{
		"src/utils.ts":       "mod-utils",
		"src/lib/index.ts":   "mod-lib",
		"pkg/helpers.py":     "mod-helpers",
		"pkg/sub/helpers.py": "mod-sub-helpers",
	}

	tests := []struct {
		name     string
		fromFile string
		spec     string
		wantID   string
		wantOK   bool
	}{
		{"relative with extension", "src/app.ts", "./utils.ts", "mod-utils", true},
		{"relative without extension", "src/app.ts", "./utils", "mod-utils", true},
		{"relative directory index", "src/app.ts", "./lib", "mod-lib", true},
		{"parent directory", "src/lib/a.ts", "../utils", "mod-utils", true},
		{"python dotted path", "main.py", "pkg.helpers", "mod-helpers", true},
		{"python nested dotted path", "main.py", "pkg.sub.helpers", "mod-sub-helpers", true},
		{"external package", "src/app.ts", "react", "", false},
		{"stdlib import", "main.go", "fmt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := resolveImport(byPath, tt.fromFile, tt.spec)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
