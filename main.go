// apicurate curates annotations over a snapshot of a Python library's API.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/apicurate/internal/config"
	"github.com/phobologic/apicurate/internal/document"
	"github.com/phobologic/apicurate/internal/logging"
	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/usage"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// app carries the global flags and the resolved configuration shared by
// every subcommand.
type app struct {
	stdout, stderr io.Writer

	configPath string
	apiPath    string
	usagesPath string
	session    string
	user       string
	logLevel   string

	cfg *config.Config
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "apicurate",
		Short: "Curate annotations over a Python library's API",
		Long: `apicurate keeps a working set of annotations (renames, removals, defaults,
groups, ...) over a JSON snapshot of a Python package's public interface.

Every edit is saved to a session file together with its undo history, so
undo and redo work across invocations. Filters select the declarations to
show, e.g. "is:public is:function !annotation:any usages:>10".`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load(cmd) },
	}
	root.SetVersionTemplate("apicurate {{.Version}}\n")

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default ./apicurate.toml, then ~/.apicurate.toml)")
	f.StringVar(&a.apiPath, "api", "", "API snapshot (JSON)")
	f.StringVar(&a.usagesPath, "usages", "", "usage counts (JSON)")
	f.StringVar(&a.session, "session", "", "session file holding annotations and undo history")
	f.StringVar(&a.user, "user", "", "author name recorded on edits")
	f.StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn, error or disabled")

	root.AddCommand(
		newShowCmd(a),
		newCheckFilterCmd(a),
		newStatsCmd(a),
		newListCmd(a),
		newAnnotateCmd(a),
		newRemoveCmd(a),
		newReviewCmd(a),
		newUndoCmd(a),
		newRedoCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newDiffCmd(a),
		newExtractCmd(a),
		newInitCmd(a),
	)
	return root
}

// load resolves the configuration from the config file, the environment and
// the global flags, then sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	flags := map[string]struct {
		key   string
		value string
	}{
		"api":       {"api", a.apiPath},
		"usages":    {"usages", a.usagesPath},
		"session":   {"session", a.session},
		"user":      {"username", a.user},
		"log-level": {"log_level", a.logLevel},
	}
	overrides := make(map[string]any)
	for name, o := range flags {
		if cmd.Flags().Changed(name) {
			overrides[o.key] = o.value
		}
	}

	cfg, err := config.Load(a.configPath, overrides)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.LogLevel, a.stderr); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

var errNoAPI = errors.New("no API snapshot configured (use --api or set api in the config file)")

// open loads the API snapshot, the usage counts and the saved session.
func (a *app) open() (*document.Document, error) {
	opts := document.Options{
		Username:  a.cfg.Username,
		UndoLimit: a.cfg.UndoLimit,
	}
	if a.cfg.API != "" {
		data, err := os.ReadFile(a.cfg.API)
		if err != nil {
			return nil, fmt.Errorf("reading API snapshot: %w", err)
		}
		if opts.API, err = model.Build(data); err != nil {
			return nil, err
		}
	}
	usages, err := usage.Load(a.cfg.Usages)
	if err != nil {
		return nil, err
	}
	opts.Usages = usages
	return document.LoadSession(a.cfg.Session, opts)
}

// openWithAPI is open for commands that need the API tree.
func (a *app) openWithAPI() (*document.Document, error) {
	doc, err := a.open()
	if err != nil {
		return nil, err
	}
	if doc.API() == nil {
		return nil, errNoAPI
	}
	return doc, nil
}

func (a *app) save(doc *document.Document) error {
	return doc.SaveSession(a.cfg.Session)
}
