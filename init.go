package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/spf13/cobra"

	"github.com/phobologic/apicurate/internal/filter"
	"github.com/phobologic/apicurate/internal/logging"
	"github.com/phobologic/apicurate/internal/ranking"
)

const (
	sentinelStart = "# apicurate:start"
	sentinelEnd   = "# apicurate:end"
)

// newInitCmd implements `apicurate init`, which writes (or updates) the
// apicurate settings section of a TOML config file.
func newInitCmd(a *app) *cobra.Command {
	var (
		dryRun    bool
		filterSrc string
		sortBy    string
	)
	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the apicurate section of a config file",
		Long: `Write the settings given on the command line to a TOML config file. The
section is wrapped in sentinel comments so it can be updated in place on
subsequent runs without touching surrounding content. Creates the file if it
does not exist.

PATH defaults to ./apicurate.toml. Settings are taken from the global
--api, --usages, --session, --user and --log-level flags and from --filter
and --sort.`,
		Example: `  apicurate init --api api.json --usages usages.json
  apicurate init --filter "is:public !annotation:any" --sort usages --dry-run`,
		Args: cobra.MaximumNArgs(1),
		// The config file may not exist yet, so only logging is set up.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logging.Setup(a.logLevel, a.stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := filter.Compile(filterSrc); err != nil {
				return err
			}
			if _, err := ranking.ParseOrder(sortBy); err != nil {
				return err
			}

			settings := make(map[string]any)
			for flag, kv := range map[string]struct{ key, value string }{
				"api":       {"api", a.apiPath},
				"usages":    {"usages", a.usagesPath},
				"session":   {"session", a.session},
				"user":      {"username", a.user},
				"log-level": {"log_level", a.logLevel},
				"filter":    {"filter", filterSrc},
				"sort":      {"sort", sortBy},
			} {
				if cmd.Flags().Changed(flag) {
					settings[kv.key] = kv.value
				}
			}

			section, err := generateSection(settings)
			if err != nil {
				return err
			}

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(a.stdout, section)
				return nil
			}

			path := "apicurate.toml"
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(a.stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(a.stderr, "wrote apicurate section to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	cmd.Flags().StringVar(&filterSrc, "filter", "", "default filter for show")
	cmd.Flags().StringVar(&sortBy, "sort", "", "default order for show: name, usages or usefulness")
	return cmd
}

// generateSection returns the sentinel-wrapped settings block. Settings not
// given are listed as comments.
func generateSection(settings map[string]any) (string, error) {
	body, err := toml.Parser().Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encoding settings: %w", err)
	}

	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString("# Managed by `apicurate init`. Run it again to change these settings.\n")
	b.WriteString("# Keys: username, api, usages, session, undo_limit, log_level, filter, sort.\n")
	b.WriteString("# Environment variables (APICURATE_API, ...) and flags take precedence.\n")
	if s := strings.TrimSpace(string(body)); s != "" {
		b.WriteString(s + "\n")
	}
	b.WriteString(sentinelEnd)
	return b.String(), nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
