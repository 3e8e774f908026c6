package search

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
)

// BlockSeeds collects the identifiers on lines start..end (1-based,
// inclusive) of f that name a type, field or function, or appear in a call
// or declaration.
func BlockSeeds(f *parse.File, start, end int) model.KeywordSet {
	seeds := model.NewKeywordSet()
	blockSeeds(f, f.Root(), uint32(start-1), uint32(end-1), seeds)
	return seeds
}

func blockSeeds(f *parse.File, node *sitter.Node, first, last uint32, seeds model.KeywordSet) {
	if node.EndPoint().Row < first || node.StartPoint().Row > last {
		return
	}
	if node.ChildCount() == 0 {
		if node.StartPoint().Row < first {
			return
		}
		var parentKind, grandKind string
		if parent := node.Parent(); parent != nil {
			parentKind = parent.Type()
			if grand := parent.Parent(); grand != nil {
				grandKind = grand.Type()
			}
		}
		if f.Language.IsSeed(node.Type(), parentKind, grandKind) {
			seeds.Add(f.Text(node))
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		blockSeeds(f, node.Child(i), first, last, seeds)
	}
}
