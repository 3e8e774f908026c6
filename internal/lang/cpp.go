package lang

import (
	"github.com/smacker/go-tree-sitter/cpp"
)

// declaratorWrappers hold a name one level down, e.g. `Node* next`.
var declaratorWrappers = []string{
	"pointer_declarator",
	"reference_declarator",
	"array_declarator",
}

func init() {
	Languages["cpp"] = &Language{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".c++", ".h", ".hpp", ".hxx", ".h++"},
		lang:       cpp.GetLanguage(),
		DefinitionKinds: kinds(
			"function_definition",
			"function_declarator",
			"class_declaration",
			"class_specifier",
			"enum_specifier",
			"struct_specifier",
			"namespace_definition",
			"template_declaration",
			"field_declaration",
			"translation_unit",
			"preproc_include",
		),
		CommentKinds:   kinds(),
		BodyKinds:      kinds("compound_statement"),
		HarvestKinds:   kinds("type_identifier"),
		ReferenceKinds: kinds("primitive_type", "type_identifier"),
		Shapes: []Shape{
			{
				Kinds:     []string{"struct_specifier", "class_specifier", "union_specifier", "enum_specifier"},
				NameKinds: []string{"type_identifier"},
			},
			{
				Kinds:     []string{"field_declaration"},
				NameKinds: []string{"field_identifier"},
				Through:   declaratorWrappers,
			},
			{
				// In-class method declarators name the method with a field_identifier.
				Kinds:     []string{"function_declarator"},
				NameKinds: []string{"identifier", "field_identifier"},
			},
		},
		SeedKinds: kinds("type_identifier", "identifier", "field_identifier"),
		SeedParents: kinds(
			"struct_specifier",
			"class_specifier",
			"field_declaration",
			"function_declarator",
			"field_expression",
		),
		SeedContexts: kinds("call_expression", "declaration"),
	}
}
