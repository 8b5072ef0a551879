package languages

import (
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codegraph/internal/extract"
)

func RegisterTypeScript(r *extract.Registry) {
	r.Register("typescript", &extract.LanguageSpec{
		Language: typescript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @function
			(class_declaration name: (type_identifier) @name) @class
			(method_definition name: (property_identifier) @name) @method
			(interface_declaration name: (type_identifier) @name) @interface
			(type_alias_declaration name: (type_identifier) @name) @type
			(enum_declaration name: (identifier) @name) @enum
			(import_statement source: (string) @import)
			(call_expression function: (identifier) @call)
			(call_expression function: (member_expression property: (property_identifier) @call))
		`,
		Extensions: []string{"ts", "tsx"},
	})
}
