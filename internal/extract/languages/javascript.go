package languages

import (
	"github.com/smacker/go-tree-sitter/javascript"

	"codegraph/internal/extract"
)

func RegisterJavaScript(r *extract.Registry) {
	r.Register("javascript", &extract.LanguageSpec{
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @function
			(class_declaration name: (identifier) @name) @class
			(method_definition name: (property_identifier) @name) @method
			(import_statement source: (string) @import)
			(call_expression function: (identifier) @call)
			(call_expression function: (member_expression property: (property_identifier) @call))
		`,
		Extensions: []string{"js", "jsx", "mjs"},
	})
}
