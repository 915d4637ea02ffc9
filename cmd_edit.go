package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/apicurate/internal/annotation"
	"github.com/phobologic/apicurate/internal/document"
)

// edit opens the session, applies fn and saves the session when fn reports
// a change. report is printed either way.
func (a *app) edit(fn func(doc *document.Document) (changed bool, report string, err error)) error {
	doc, err := a.open()
	if err != nil {
		return err
	}
	changed, report, err := fn(doc)
	if err != nil {
		return err
	}
	if changed {
		if err := a.save(doc); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(a.stdout, report)
	return err
}

func newAnnotateCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "annotate KIND TARGET",
		Short: "Add or replace an annotation",
		Long: `Add or replace the annotation of KIND on the declaration with id TARGET.
The annotation body is given as JSON; its target field is filled in.

Kinds: boundary, calledAfter, complete, description, enum, expert, group,
move, pure, remove, rename, todo, value.`,
		Example: `  apicurate annotate rename lib/lib.core/load --data '{"newName":"read"}'
  apicurate annotate value lib/lib.core/load/mode --data '{"variant":"constant","defaultValueType":"string","defaultValue":"r"}'
  apicurate annotate pure lib/lib.core/checksum`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			kind, err := annotation.ParseKind(args[0])
			if err != nil {
				return err
			}
			target := args[1]
			return a.edit(func(doc *document.Document) (bool, string, error) {
				outcome, err := doc.Upsert(kind, target, []byte(data))
				if err != nil {
					return false, "", err
				}
				return true, fmt.Sprintf("%s %s annotation on %s", outcome, kind, target), nil
			})
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "annotation body as a JSON object")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove KIND TARGET [KEY]",
		Short: "Remove an annotation",
		Long: `Remove the annotation of KIND on TARGET. KEY names the record of a
repeatable kind (the calling function of calledAfter, the group name of
group). Generated annotations are kept as tombstones.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			kind, err := annotation.ParseKind(args[0])
			if err != nil {
				return err
			}
			target, key := args[1], optionalArg(args, 2)
			return a.edit(func(doc *document.Document) (bool, string, error) {
				removed, err := doc.Remove(kind, target, key)
				if err != nil || !removed {
					return false, fmt.Sprintf("no %s annotation on %s", kind, target), err
				}
				return true, fmt.Sprintf("removed %s annotation on %s", kind, target), nil
			})
		},
	}
}

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review KIND TARGET [KEY]",
		Short: "Toggle your review of an annotation",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			kind, err := annotation.ParseKind(args[0])
			if err != nil {
				return err
			}
			target, key := args[1], optionalArg(args, 2)
			return a.edit(func(doc *document.Document) (bool, string, error) {
				toggled, err := doc.Review(kind, target, key)
				if err != nil || !toggled {
					return false, fmt.Sprintf("no %s annotation on %s", kind, target), err
				}
				return true, fmt.Sprintf("toggled review of %s annotation on %s", kind, target), nil
			})
		},
	}
}

func newUndoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last edit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.edit(func(doc *document.Document) (bool, string, error) {
				if !doc.Undo() {
					return false, "nothing to undo", nil
				}
				return true, "undone", nil
			})
		},
	}
}

func newRedoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone edit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.edit(func(doc *document.Document) (bool, string, error) {
				if !doc.Redo() {
					return false, "nothing to redo", nil
				}
				return true, "redone", nil
			})
		},
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
