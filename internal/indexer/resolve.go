package indexer

import (
	"path"
	"strings"
)

// importSuffixes are tried when an import specifier names a file without
// its extension, as relative imports in JS/TS usually do.
var importSuffixes = []string{
	"", ".js", ".jsx", ".mjs", ".ts", ".tsx", ".py",
	"/index.js", "/index.ts",
}

// resolveImport maps an import specifier to a module node ID when the
// specifier points at a file inside the project. External packages and
// standard-library imports stay unresolved.
func resolveImport(byPath map[string]string, fromFile, spec string) (string, bool) {
	var candidates []string
	switch {
	case strings.HasPrefix(spec, "."):
		rel := path.Join(path.Dir(fromFile), spec)
		candidates = append(candidates, rel)
	case strings.Contains(spec, "."):
		// Python dotted module path.
		candidates = append(candidates, strings.ReplaceAll(spec, ".", "/"))
	default:
		candidates = append(candidates, spec)
	}

	for _, cand := range candidates {
		for _, suffix := range importSuffixes {
			if id, ok := byPath[cand+suffix]; ok {
				return id, true
			}
		}
	}
	return "", false
}
