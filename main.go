// sittertree searches C and C++ syntax trees for definitions and usages of
// identifiers, following type references across files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/phobologic/sittertree/internal/cache"
	"github.com/phobologic/sittertree/internal/config"
	"github.com/phobologic/sittertree/internal/expand"
	"github.com/phobologic/sittertree/internal/parse"
	"github.com/phobologic/sittertree/internal/render"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// app carries the state shared by every subcommand. It is populated by the
// root command's pre-run hook once flags are parsed.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string

	cfg    *config.Config
	format render.Format
	logger *slog.Logger
	trees  *cache.Trees
	engine *expand.Engine
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sittertree",
		Short: "Search C/C++ syntax trees for definitions and their context",
		Long: `sittertree parses C and C++ sources with tree-sitter and answers keyword
queries over the resulting syntax trees. Searches expand round by round: the
type names found next to each match become the next round's keywords.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("sittertree {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./"+config.FileName+")")
	pf.String("format", "xml", "output format: xml|toon|json")
	pf.String("log-level", "warn", "log level: debug|info|warn|error")
	pf.Int64("max-file-size", 1_000_000, "skip larger files found in directories")
	pf.StringSlice("exclude", nil, "glob patterns excluded from directory scans")

	root.AddCommand(
		newParseCmd(a),
		newSearchCmd(a),
		newDeepCmd(a),
		newContextCmd(a),
		newBlockCmd(a),
		newQueryCmd(a),
		newWatchCmd(a),
		newInitCmd(stdout, stderr),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.format = format
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	trees, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return err
	}
	a.trees = trees
	a.engine = expand.New(parse.NewRegistry(trees), cfg.DiscoverOptions(a.logger), a.logger)
	return nil
}

func (a *app) close() {
	if a.trees != nil {
		a.trees.Close()
		a.trees = nil
	}
}
