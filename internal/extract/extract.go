// Package extract parses source files with tree-sitter and produces the
// nodes and relationship references the indexer feeds into the store.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"codegraph/internal/graph"
	"codegraph/internal/tokens"
)

// Ref is a relationship whose target is still symbolic: a callee name or
// an import specifier. The indexer resolves refs against the full project
// after every file has been extracted.
type Ref struct {
	FromID string
	Target string
	Line   int
}

// FileResult is everything extracted from one source file.
type FileResult struct {
	Language string
	ModuleID string
	// Nodes holds the file's module node followed by its definitions.
	Nodes []graph.Node
	// Contains edges are fully resolved at extract time.
	Contains []graph.Edge
	Imports  []Ref
	Calls    []Ref
}

// Extractor parses files using the grammars in its registry.
type Extractor struct {
	registry *Registry
}

func New(registry *Registry) *Extractor {
	return &Extractor{registry: registry}
}

var captureKinds = map[string]graph.NodeKind{
	"function":  graph.KindFunction,
	"method":    graph.KindMethod,
	"class":     graph.KindClass,
	"struct":    graph.KindStruct,
	"interface": graph.KindInterface,
	"type":      graph.KindTypeAlias,
	"enum":      graph.KindEnum,
	"constant":  graph.KindConstant,
	"variable":  graph.KindVariable,
}

// Extract parses the source and returns the file's nodes and refs. Files
// with no registered grammar yield (nil, nil).
func (x *Extractor) Extract(relPath string, src []byte) (*FileResult, error) {
	spec, lang := x.registry.Lookup(relPath)
	if spec == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", lang, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var defs []definition
	var imports, calls []siteRef
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		var defNode *sitter.Node
		var defKind graph.NodeKind
		var name string
		for _, cap := range m.Captures {
			capName := q.CaptureNameForId(cap.Index)
			switch capName {
			case "name":
				name = cap.Node.Content(src)
			case "import":
				imports = append(imports, siteRef{
					target: strings.Trim(cap.Node.Content(src), `"'`+"`"),
					line:   int(cap.Node.StartPoint().Row) + 1,
					start:  cap.Node.StartByte(),
				})
			case "call":
				calls = append(calls, siteRef{
					target: cap.Node.Content(src),
					line:   int(cap.Node.StartPoint().Row) + 1,
					start:  cap.Node.StartByte(),
				})
			default:
				if kind, ok := captureKinds[capName]; ok {
					defNode = cap.Node
					defKind = kind
				}
			}
		}
		if defNode != nil {
			defs = append(defs, definition{
				name:      name,
				kind:      defKind,
				startLine: int(defNode.StartPoint().Row) + 1,
				endLine:   int(defNode.EndPoint().Row) + 1,
				startCol:  int(defNode.StartPoint().Column),
				endCol:    int(defNode.EndPoint().Column),
				startByte: defNode.StartByte(),
				endByte:   defNode.EndByte(),
			})
		}
	}

	defs = dedupDefinitions(defs)

	res := &FileResult{Language: lang}
	module := graph.Node{
		ID:        graph.NodeID(graph.KindModule, relPath, relPath, 1),
		Name:      relPath,
		Kind:      graph.KindModule,
		FilePath:  relPath,
		StartLine: 1,
		EndLine:   strings.Count(string(src), "\n") + 1,
		Language:  lang,
	}
	res.ModuleID = module.ID
	res.Nodes = append(res.Nodes, module)

	for _, d := range defs {
		body := string(src[d.startByte:d.endByte])
		n := graph.Node{
			ID:            graph.NodeID(d.kind, relPath, d.name, d.startLine),
			Name:          d.name,
			QualifiedName: relPath + ":" + d.name,
			Kind:          d.kind,
			FilePath:      relPath,
			StartLine:     d.startLine,
			EndLine:       d.endLine,
			StartColumn:   d.startCol,
			EndColumn:     d.endCol,
			Language:      lang,
			Signature:     tokens.Signature(body),
			Body:          body,
			Exported:      isExported(d.name),
		}
		res.Nodes = append(res.Nodes, n)
		res.Contains = append(res.Contains, graph.Edge{
			Source:   module.ID,
			Target:   n.ID,
			Kind:     graph.EdgeContains,
			FilePath: relPath,
			Line:     d.startLine,
		})
	}

	for _, imp := range imports {
		res.Imports = append(res.Imports, Ref{FromID: module.ID, Target: imp.target, Line: imp.line})
	}
	for _, call := range calls {
		from := module.ID
		if d := enclosing(defs, call.start); d != nil {
			from = graph.NodeID(d.kind, relPath, d.name, d.startLine)
		}
		res.Calls = append(res.Calls, Ref{FromID: from, Target: call.target, Line: call.line})
	}

	return res, nil
}

type definition struct {
	name      string
	kind      graph.NodeKind
	startLine int
	endLine   int
	startCol  int
	endCol    int
	startByte uint32
	endByte   uint32
}

type siteRef struct {
	target string
	line   int
	start  uint32
}

// dedupDefinitions drops captures nested inside an earlier, larger capture
// and duplicates of the same range (a generic pattern re-matching a
// specific one).
func dedupDefinitions(defs []definition) []definition {
	if len(defs) <= 1 {
		return defs
	}
	var out []definition
	seen := make(map[uint64]bool)
	for _, d := range defs {
		key := uint64(d.startByte)<<32 | uint64(d.endByte)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// enclosing finds the innermost definition containing the byte offset.
func enclosing(defs []definition, offset uint32) *definition {
	var best *definition
	for i := range defs {
		d := &defs[i]
		if offset < d.startByte || offset >= d.endByte {
			continue
		}
		if best == nil || d.endByte-d.startByte < best.endByte-best.startByte {
			best = d
		}
	}
	return best
}

func isExported(name string) bool {
	if name == "" || strings.HasPrefix(name, "_") {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
