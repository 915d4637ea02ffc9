package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/apicurate/internal/annotation"
)

func newImportCmd(a *app) *cobra.Command {
	var merge, dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace or merge the annotations with an annotation file",
		Long: `Read an annotation file of any supported schema version and make it the
current set of annotations, or merge it into the current set with --merge.
On a merge, the current annotations win where both sides annotate the same
declaration. The import is one undoable edit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading annotations: %w", err)
			}
			doc, err := a.open()
			if err != nil {
				return err
			}

			if dryRun {
				next, err := doc.Preview(data, merge)
				if err != nil {
					return err
				}
				diff, err := annotation.Diff("current", args[0], doc.Store(), next)
				if err != nil {
					return err
				}
				if diff == "" {
					diff = "no changes\n"
				}
				_, err = fmt.Fprint(a.stdout, diff)
				return err
			}

			if err := doc.ImportStore(data, merge); err != nil {
				return err
			}
			if err := a.save(doc); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stderr, "imported %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge into the current annotations instead of replacing them")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resulting changes as a diff without applying them")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the annotations as an annotation file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := a.open()
			if err != nil {
				return err
			}
			data, err := doc.Export()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = a.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(a.stderr, "wrote annotations to %s\n", args[0])
			return nil
		},
	}
}

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff A B",
		Short: "Show the differences between two annotation files",
		Long: `Show a unified diff between two annotation files after bringing both to
the current schema version. Prints nothing when they are equivalent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			stores := make([]*annotation.Store, 2)
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading annotations: %w", err)
				}
				if stores[i], err = annotation.MigrateToCurrentVersion(data); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			diff, err := annotation.Diff(args[0], args[1], stores[0], stores[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.stdout, diff)
			return err
		},
	}
}
