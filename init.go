package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- sittertree:start -->"
	sentinelEnd   = "<!-- sittertree:end -->"
)

var errMalformedSection = errors.New("unbalanced sittertree sentinels")

// sectionChange says what applySection did to a file.
type sectionChange int

const (
	sectionAdded sectionChange = iota
	sectionReplaced
	sectionUnchanged
)

func (c sectionChange) verb() string {
	switch c {
	case sectionReplaced:
		return "updated"
	case sectionUnchanged:
		return "kept"
	default:
		return "added"
	}
}

// newInitCmd builds the `sittertree init` subcommand, which keeps a usage
// section in a CLAUDE.md file in sync with the commands the binary offers.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write a sittertree usage section to CLAUDE.md",
		Long: `Write a sittertree usage section to a CLAUDE.md file. The section lists the
query commands of this binary and sits between sentinel comments, so later
runs replace it in place. The file is created if missing and left untouched
when the section is already current.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		// init needs no configuration or cache.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			section := generateSection(cmd.Root())
			if dryRun && len(args) == 0 {
				_, err := fmt.Fprintln(stdout, section)
				return err
			}
			path := "CLAUDE.md"
			if len(args) > 0 {
				path = args[0]
			}
			return writeSection(path, section, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resulting file without modifying it")
	return cmd
}

func writeSection(path, section string, dryRun bool, stdout, stderr io.Writer) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated, change, err := applySection(string(existing), section)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if dryRun {
		_, err := fmt.Fprint(stdout, updated)
		return err
	}
	if change != sectionUnchanged {
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	_, _ = fmt.Fprintf(stderr, "%s sittertree section in %s\n", change.verb(), path)
	return nil
}

// generateSection renders the sentinel-wrapped usage block. The command list
// is read from root so it follows the registered subcommands.
func generateSection(root *cobra.Command) string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString(`## sittertree: C/C++ definition search

Use ` + "`sittertree`" + ` via the Bash tool to find where C or C++ identifiers are
defined and what they depend on, instead of grepping through headers. Check
` + "`sittertree --version`" + ` first and skip gracefully if it is missing.

**Commands:**

`)
	for _, c := range root.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "init" || c.Name() == "completion" {
			continue
		}
		fmt.Fprintf(&b, "- `sittertree %s`: %s\n", c.Use, c.Short)
	}
	b.WriteString(`
**Examples:**
` + "```" + `bash
sittertree deep src/ -k LinkedList -d 2       # LinkedList and the types it uses
sittertree block src/list.cpp --start 10 --end 24 src/
sittertree search src/ -k Node --format toon  # compact output
sittertree query src/ -q "linked list insert" # closest declarations by text
` + "```" + `

` + "`-d N`" + ` bounds the rounds of type-name expansion; start at 1. Each result
carries the file and ` + "`line_range`" + ` of one definition, so read only those
lines. Function bodies are not searched: fall back to Grep for call sites.
All flags: ` + "`sittertree --help`" + `.
`)
	b.WriteString(sentinelEnd)
	return b.String()
}

// applySection puts section into content. An existing sentinel block is
// replaced; without one the section is appended after a blank line. A lone or
// reversed sentinel is an error rather than a second block.
func applySection(content, section string) (string, sectionChange, error) {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	switch {
	case start < 0 && end < 0:
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if content != "" {
			content += "\n"
		}
		return content + section + "\n", sectionAdded, nil
	case start < 0 || end < start:
		return "", 0, errMalformedSection
	}

	if strings.Count(content, sentinelStart) > 1 {
		return "", 0, errMalformedSection
	}
	updated := content[:start] + section + content[end+len(sentinelEnd):]
	if updated == content {
		return content, sectionUnchanged, nil
	}
	return updated, sectionReplaced, nil
}
