package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/rag"
	"github.com/phobologic/sittertree/internal/render"
)

var (
	errNoKeywords = errors.New("at least one keyword is required (-k)")
	errNoQuery    = errors.New("query text is required (-q)")
)

// queryFlags are shared by the keyword-driven commands.
type queryFlags struct {
	keywords []string
}

func addQueryFlags(cmd *cobra.Command, q *queryFlags) {
	cmd.Flags().StringSliceVarP(&q.keywords, "keyword", "k", nil, "keyword to search for (repeatable or comma-separated)")
	cmd.Flags().IntP("depth", "d", 1, "number of expansion rounds")
}

func (q *queryFlags) validate() error {
	if len(q.keywords) == 0 {
		return errNoKeywords
	}
	return nil
}

func pathsOrCwd(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func (a *app) writeResults(results map[string]*model.Node) error {
	return render.Write(a.stdout, a.format, results)
}

func (a *app) writeRecords(records model.Records) error {
	return render.WriteRecords(a.stdout, a.format, records)
}

func newParseCmd(a *app) *cobra.Command {
	var detailed bool
	cmd := &cobra.Command{
		Use:   "parse [paths...]",
		Short: "Print the syntax tree of each file",
		Long: `Print the syntax tree of each file. By default only definitions and the
nodes leading to them are kept; --detailed keeps every node.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.engine.Project(cmd.Context(), pathsOrCwd(args), detailed)
			if err != nil {
				return err
			}
			return a.writeResults(results)
		},
	}
	cmd.Flags().BoolVar(&detailed, "detailed", false, "keep every node instead of definitions only")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "search [paths...] -k KEYWORD...",
		Short: "Find keyword matches in function signatures and declarations",
		Long: `Find identifiers equal to a keyword outside function bodies. Each round adds
the type names found next to the matches to the keywords; --depth bounds the
number of rounds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			results, err := a.engine.FlatSearch(cmd.Context(), pathsOrCwd(args), q.keywords, a.cfg.Depth)
			if err != nil {
				return err
			}
			return a.writeResults(results)
		},
	}
	addQueryFlags(cmd, &q)
	return cmd
}

func newDeepCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "deep [paths...] -k KEYWORD...",
		Short: "Find the definitions of keywords and of the types they use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			records, err := a.engine.DeepSearch(cmd.Context(), pathsOrCwd(args), q.keywords, a.cfg.Depth)
			if err != nil {
				return err
			}
			return a.writeRecords(records)
		},
	}
	addQueryFlags(cmd, &q)
	return cmd
}

func newContextCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "context [paths...] -k KEYWORD...",
		Short: "Find definitions of keywords plus everything their usages depend on",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			records, err := a.engine.ContextSearch(cmd.Context(), pathsOrCwd(args), q.keywords, a.cfg.Depth)
			if err != nil {
				return err
			}
			return a.writeRecords(records)
		},
	}
	addQueryFlags(cmd, &q)
	return cmd
}

func newBlockCmd(a *app) *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "block FILE [paths...] --start LINE --end LINE",
		Short: "Find the definitions a range of lines depends on",
		Long: `Collect the identifiers on lines --start..--end of FILE and run a context
search for them over paths (FILE itself when no paths are given).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("end") {
				end = start
			}
			records, err := a.engine.BlockContext(cmd.Context(), args[1:], args[0], start, end, a.cfg.Depth)
			if err != nil {
				return fmt.Errorf("block %s:%d-%d: %w", args[0], start, end, err)
			}
			return a.writeRecords(records)
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "first line of the block (1-based)")
	cmd.Flags().IntVar(&end, "end", 0, "last line of the block (defaults to --start)")
	cmd.Flags().IntP("depth", "d", 1, "number of expansion rounds")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		text    string
		results int
	)
	cmd := &cobra.Command{
		Use:   "query [paths...] -q TEXT",
		Short: "Find the declarations whose text is most similar to a query",
		Long: `Index the text and line range of every node in the overview of each file,
then print the --results entries most similar to the query text. Identifiers
are split on case and underscores, so "linked list" finds LinkedList.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" {
				return errNoQuery
			}
			hits, err := a.engine.Similar(cmd.Context(), pathsOrCwd(args), text, results)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				return a.writeResults(nil)
			}
			return a.writeResults(map[string]*model.Node{text: rag.Document(text, hits)})
		},
	}
	cmd.Flags().StringVarP(&text, "query", "q", "", "text to search for")
	cmd.Flags().IntVarP(&results, "results", "n", rag.DefaultResults, "maximum number of results")
	return cmd
}
