// Package ranking orders and trims declaration trees by usage.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/usage"
)

// Order names a child ordering.
type Order string

const (
	// ByName sorts children by name, case-insensitively.
	ByName Order = "name"
	// ByUsages puts the most used children first, ties broken by name.
	ByUsages Order = "usages"
	// ByUsefulness puts the most useful children first, ties broken by name.
	ByUsefulness Order = "usefulness"
	// Declared keeps the order of the API snapshot.
	Declared Order = ""
)

// ParseOrder resolves an order name. The empty string means Declared.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case ByName, ByUsages, ByUsefulness, Declared:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q (want name, usages or usefulness)", s)
}

// Sort returns a new tree with children ordered by o. Parameters keep
// their call order.
func Sort(root *model.Declaration, o Order, t *usage.Table) *model.Declaration {
	switch o {
	case ByName:
		return root.Sorted(byName)
	case ByUsages:
		return root.Sorted(descending(t.Usages))
	case ByUsefulness:
		return root.Sorted(descending(t.Usefulness))
	}
	return root
}

func byName(a, b *model.Declaration) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.Name < b.Name
}

func descending(measure func(*model.Declaration) int) func(a, b *model.Declaration) bool {
	return func(a, b *model.Declaration) bool {
		ma, mb := measure(a), measure(b)
		if ma != mb {
			return ma > mb
		}
		return byName(a, b)
	}
}

// Top returns a new tree keeping only the n most used functions, with
// their parameters and ancestors. If n is <= 0 or covers every function,
// root is returned unchanged.
func Top(root *model.Declaration, n int, t *usage.Table) *model.Declaration {
	var funcs []*model.Declaration
	root.Walk(func(d *model.Declaration) bool {
		if d.Kind == model.Function {
			funcs = append(funcs, d)
		}
		return true
	})
	if n <= 0 || n >= len(funcs) {
		return root
	}

	sort.SliceStable(funcs, func(i, j int) bool {
		return descending(t.Usages)(funcs[i], funcs[j])
	})
	selected := make(map[*model.Declaration]struct{}, n)
	for _, f := range funcs[:n] {
		selected[f] = struct{}{}
	}

	return root.Filter(func(d *model.Declaration) bool {
		if _, ok := selected[d]; ok {
			return true
		}
		if d.Kind == model.Parameter {
			_, ok := selected[d.Parent()]
			return ok
		}
		return false
	})
}
