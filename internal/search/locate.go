package search

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
	"github.com/phobologic/sittertree/internal/project"
)

// Locate records an overview document for every named definition in f whose
// name is a keyword, and returns the type names those definitions reference
// that are not in exclude.
func Locate(f *parse.File, keywords, exclude model.KeywordSet) (model.Records, model.KeywordSet) {
	records := make(model.Records)
	referenced := model.NewKeywordSet()
	locate(f, f.Root(), keywords, exclude, records, referenced)
	return records, referenced
}

func locate(f *parse.File, node *sitter.Node, keywords, exclude model.KeywordSet, records model.Records, referenced model.KeywordSet) {
	if nameNode := f.Language.DefinitionName(node); nameNode != nil {
		name := f.Text(nameNode)
		if keywords.Has(name) {
			key := model.RecordKey{
				File:  f.Path,
				Name:  name,
				Start: int(node.StartPoint().Row) + 1,
				End:   int(node.EndPoint().Row) + 1,
			}
			records[key] = project.Wrap(f, project.Project(f, node, model.Overview), model.Overview)
			collectReferences(f, node, exclude, referenced)
		}
	}

	// Nested definitions are searched even below a match.
	for i := 0; i < int(node.ChildCount()); i++ {
		locate(f, node.Child(i), keywords, exclude, records, referenced)
	}
}

func collectReferences(f *parse.File, node *sitter.Node, exclude, referenced model.KeywordSet) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if f.Language.IsReference(child.Type()) {
			if name := f.Text(child); !exclude.Has(name) {
				referenced.Add(name)
			}
		}
		collectReferences(f, child, exclude, referenced)
	}
}
