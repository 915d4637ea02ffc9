// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// declaration views, annotation listings and statistics.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/apicurate/internal/annotation"
	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/usage"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// liveKinds maps each annotated target to the kinds of its live records, in
// kind order.
func liveKinds(s *annotation.Store) map[string][]string {
	out := make(map[string][]string)
	if s == nil {
		return out
	}
	for _, e := range s.Entries() {
		if e.Meta.IsRemoved {
			continue
		}
		kinds := out[e.Meta.Target]
		if n := len(kinds); n > 0 && kinds[n-1] == string(e.Kind) {
			continue
		}
		out[e.Meta.Target] = append(kinds, string(e.Kind))
	}
	return out
}

// Row is one declaration of a view with its usage figures and the kinds of
// its live annotations.
type Row struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        string   `json:"kind" yaml:"kind"`
	Public      bool     `json:"public" yaml:"public"`
	Usages      int      `json:"usages" yaml:"usages"`
	Usefulness  int      `json:"usefulness" yaml:"usefulness"`
	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Rows flattens a view in walk order, leaving out the root.
func Rows(root *model.Declaration, store *annotation.Store, t *usage.Table) []Row {
	annotated := liveKinds(store)
	var rows []Row
	root.Walk(func(d *model.Declaration) bool {
		if d == root {
			return true
		}
		rows = append(rows, Row{
			ID:          d.ID(),
			Kind:        string(d.Kind),
			Public:      d.IsPublic,
			Usages:      t.Usages(d),
			Usefulness:  t.Usefulness(d),
			Annotations: annotated[d.ID()],
		})
		return true
	})
	return rows
}

// EncodeView renders a declaration tree, one row per declaration below the
// root.
func EncodeView(root *model.Declaration, store *annotation.Store, t *usage.Table) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("package: %s", encodeValue(root.Name)))
	if root.Version != "" {
		parts = append(parts, fmt.Sprintf("version: %s", encodeValue(root.Version)))
	}

	var rows [][]any
	for _, r := range Rows(root, store, t) {
		rows = append(rows, []any{r.ID, r.Kind, r.Public, r.Usages, r.Usefulness, strings.Join(r.Annotations, " ")})
	}
	parts = append(parts, formatTabular("declarations",
		[]string{"id", "kind", "public", "usages", "usefulness", "annotations"}, rows))

	return strings.Join(parts, "\n")
}

// EncodeAnnotations lists annotation records, tombstones included.
func EncodeAnnotations(entries []annotation.Entry) string {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.Meta.Target,
			string(e.Kind),
			e.Key,
			strings.Join(e.Meta.Authors, " "),
			strings.Join(e.Meta.Reviewers, " "),
			e.Meta.IsRemoved,
		})
	}
	return formatTabular("annotations",
		[]string{"target", "kind", "key", "authors", "reviewers", "removed"}, rows)
}

// EncodeStats renders per-kind declaration and annotation counts.
func EncodeStats(root *model.Declaration, store *annotation.Store, t *usage.Table) string {
	counts := root.CountByKind()
	st := t.Summarize(root)

	var declRows [][]any
	for _, k := range []model.Kind{model.Module, model.Class, model.Function, model.Parameter} {
		declRows = append(declRows, []any{string(k), counts[k], st.Used[k], st.Unused[k]})
	}

	byKind := store.Counts()
	var annRows [][]any
	total := 0
	for _, k := range annotation.Kinds() {
		annRows = append(annRows, []any{string(k), byKind[k]})
		total += byKind[k]
	}

	return strings.Join([]string{
		formatTabular("declarations", []string{"kind", "total", "used", "unused"}, declRows),
		formatTabular("annotations", []string{"kind", "count"}, annRows),
		fmt.Sprintf("annotated: %d", total),
	}, "\n")
}

// EncodeList renders a one-column table.
func EncodeList(name, column string, values []string) string {
	rows := make([][]any, len(values))
	for i, v := range values {
		rows[i] = []any{v}
	}
	return formatTabular(name, []string{column}, rows)
}

func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

// encodeCell writes numbers and booleans bare and strings quoted as needed.
func encodeCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return encodeValue(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	}
	return encodeValue(fmt.Sprint(cell))
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
