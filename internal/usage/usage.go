// Package usage holds how often the declarations of an API, and the values
// passed to its parameters, were seen in client code.
package usage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/phobologic/apicurate/internal/model"
)

// Table is a read-only usage count table keyed by declaration id. The zero
// value and a nil *Table both count every id as unused.
type Table struct {
	SchemaVersion   int                       `json:"schemaVersion"`
	ModuleCounts    map[string]int            `json:"module_counts"`
	ClassCounts     map[string]int            `json:"class_counts"`
	FunctionCounts  map[string]int            `json:"function_counts"`
	ParameterCounts map[string]int            `json:"parameter_counts"`
	ValueCounts     map[string]map[string]int `json:"value_counts"`
}

// Parse decodes a usage table from JSON.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding usages: %w", err)
	}
	return &t, nil
}

// Load reads a usage table file. An empty path yields an empty table.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading usages: %w", err)
	}
	return Parse(data)
}

// Usages returns how often d was used. A package counts the usages of its
// modules. Views made by Filter or Sorted are measured on the full tree.
func (t *Table) Usages(d *model.Declaration) int {
	if t == nil || d == nil {
		return 0
	}
	d = d.Source()
	switch d.Kind {
	case model.Package:
		n := 0
		for _, m := range d.Children() {
			n += t.Usages(m)
		}
		return n
	case model.Module:
		return t.ModuleCounts[d.ID()]
	case model.Class:
		return t.ClassCounts[d.ID()]
	case model.Function:
		return t.FunctionCounts[d.ID()]
	case model.Parameter:
		return t.ParameterCounts[d.ID()]
	}
	return 0
}

// ValueUsages returns the per-value counts recorded for a parameter id.
func (t *Table) ValueUsages(id string) map[string]int {
	if t == nil {
		return nil
	}
	return t.ValueCounts[id]
}

// Usefulness measures how much a declaration would gain from being
// curated. For a parameter it is the number of value usages not covered by
// its most common value; any other declaration takes the maximum over its
// children in the full tree, so pruning a view never changes it.
func (t *Table) Usefulness(d *model.Declaration) int {
	if t == nil || d == nil {
		return 0
	}
	d = d.Source()
	if d.Kind == model.Parameter {
		total, top := 0, 0
		for _, n := range t.ValueCounts[d.ID()] {
			total += n
			top = max(top, n)
		}
		return total - top
	}
	best := 0
	for _, c := range d.Children() {
		best = max(best, t.Usefulness(c))
	}
	return best
}

// Stats summarises usage over a whole tree.
type Stats struct {
	Used      map[model.Kind]int
	Unused    map[model.Kind]int
	MaxUsages int
}

// Summarize counts used and unused declarations of root per kind.
func (t *Table) Summarize(root *model.Declaration) Stats {
	st := Stats{Used: map[model.Kind]int{}, Unused: map[model.Kind]int{}}
	root.Walk(func(d *model.Declaration) bool {
		if d.Kind == model.Package {
			return true
		}
		n := t.Usages(d)
		if n > 0 {
			st.Used[d.Kind]++
		} else {
			st.Unused[d.Kind]++
		}
		st.MaxUsages = max(st.MaxUsages, n)
		return true
	})
	return st
}
