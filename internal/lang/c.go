package lang

import (
	"github.com/smacker/go-tree-sitter/c"
)

func init() {
	Languages["c"] = &Language{
		Name:       "c",
		Extensions: []string{".c"},
		lang:       c.GetLanguage(),
		DefinitionKinds: kinds(
			"function_definition",
			"function_declarator",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
			"type_definition",
			"field_declaration",
			"translation_unit",
			"preproc_include",
		),
		CommentKinds:   kinds("comment"),
		BodyKinds:      kinds("compound_statement"),
		HarvestKinds:   kinds("type_identifier"),
		ReferenceKinds: kinds("primitive_type", "type_identifier"),
		Shapes: []Shape{
			{
				Kinds:     []string{"struct_specifier", "union_specifier", "enum_specifier"},
				NameKinds: []string{"type_identifier"},
			},
			{
				Kinds:     []string{"field_declaration"},
				NameKinds: []string{"field_identifier"},
				Through:   declaratorWrappers,
			},
			{
				Kinds:     []string{"function_declarator"},
				NameKinds: []string{"identifier"},
			},
		},
		SeedKinds: kinds("type_identifier", "identifier", "field_identifier"),
		SeedParents: kinds(
			"struct_specifier",
			"field_declaration",
			"function_declarator",
			"field_expression",
		),
		SeedContexts: kinds("call_expression", "declaration"),
	}
}
