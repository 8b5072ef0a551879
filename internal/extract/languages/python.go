package languages

import (
	"github.com/smacker/go-tree-sitter/python"

	"codegraph/internal/extract"
)

func RegisterPython(r *extract.Registry) {
	r.Register("python", &extract.LanguageSpec{
		Language: python.GetLanguage(),
		Query: `
			(function_definition name: (identifier) @name) @function
			(class_definition name: (identifier) @name) @class
			(import_statement name: (dotted_name) @import)
			(import_from_statement module_name: (dotted_name) @import)
			(call function: (identifier) @call)
			(call function: (attribute attribute: (identifier) @call))
		`,
		Extensions: []string{"py"},
	})
}
