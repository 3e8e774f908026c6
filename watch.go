package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phobologic/sittertree/internal/cache"
)

func newWatchCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "watch [paths...] -k KEYWORD...",
		Short: "Re-run a search every time a watched file changes",
		Long: `Run a search, then watch the given paths and run it again whenever a file
under them is written, created, removed or renamed. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			return a.watch(cmd.Context(), pathsOrCwd(args), q.keywords)
		},
	}
	addQueryFlags(cmd, &q)
	return cmd
}

func (a *app) watch(ctx context.Context, paths, keywords []string) error {
	w, err := cache.NewWatcher(a.trees, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	search := func() error {
		results, err := a.engine.FlatSearch(ctx, paths, keywords, a.cfg.Depth)
		if err != nil {
			return err
		}
		return a.writeResults(results)
	}
	if err := search(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watching: %w", err)
			}
			return nil
		case path := <-w.Changes():
			a.logger.Info("file changed", slog.String("file", path))
			if _, err := fmt.Fprintf(a.stdout, "# changed: %s\n", path); err != nil {
				return err
			}
			if err := search(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
