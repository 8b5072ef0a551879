package languages

import (
	"github.com/smacker/go-tree-sitter/golang"

	"codegraph/internal/extract"
)

func RegisterGo(r *extract.Registry) {
	r.Register("go", &extract.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @function
			(method_declaration name: (field_identifier) @name) @method
			(type_declaration (type_spec name: (type_identifier) @name type: (struct_type))) @struct
			(type_declaration (type_spec name: (type_identifier) @name type: (interface_type))) @interface
			(type_declaration (type_spec name: (type_identifier) @name)) @type
			(import_spec path: (interpreted_string_literal) @import)
			(call_expression function: (identifier) @call)
			(call_expression function: (selector_expression field: (field_identifier) @call))
		`,
		Extensions: []string{"go"},
	})
}
