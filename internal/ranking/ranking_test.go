package ranking

import (
	"testing"

	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/usage"
)

const api = `{
  "kind": "package", "name": "lib",
  "modules": [
    {"kind": "module", "name": "lib.b", "functions": [
      {"kind": "function", "name": "zeta", "parameters": [
        {"kind": "parameter", "name": "q"},
        {"kind": "parameter", "name": "a"}
      ]},
      {"kind": "function", "name": "Alpha"},
      {"kind": "function", "name": "mid"}
    ]},
    {"kind": "module", "name": "lib.a", "classes": [
      {"kind": "class", "name": "K", "methods": [
        {"kind": "function", "name": "run"}
      ]}
    ], "functions": [
      {"kind": "function", "name": "aaa"}
    ]}
  ]
}`

func fixtures(t *testing.T) (*model.Declaration, *usage.Table) {
	t.Helper()
	root, err := model.Build([]byte(api))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tbl := &usage.Table{
		ModuleCounts: map[string]int{"lib/lib.a": 1, "lib/lib.b": 9},
		FunctionCounts: map[string]int{
			"lib/lib.b/zeta":  5,
			"lib/lib.b/mid":   5,
			"lib/lib.b/Alpha": 1,
			"lib/lib.a/K/run": 8,
		},
	}
	return root, tbl
}

func names(ds []*model.Declaration) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseOrder(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"name", "USAGES", "usefulness", ""} {
		if _, err := ParseOrder(s); err != nil {
			t.Errorf("ParseOrder(%q): %v", s, err)
		}
	}
	if _, err := ParseOrder("rank"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestSortByName(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)

	got := Sort(root, ByName, tbl)
	if want := []string{"lib.a", "lib.b"}; !equal(names(got.Children()), want) {
		t.Errorf("modules = %v, want %v", names(got.Children()), want)
	}
	b := got.Child("lib.b")
	if want := []string{"Alpha", "mid", "zeta"}; !equal(names(b.Children()), want) {
		t.Errorf("functions = %v, want %v", names(b.Children()), want)
	}
	// Parameters keep call order.
	if want := []string{"q", "a"}; !equal(names(b.Child("zeta").Children()), want) {
		t.Errorf("parameters = %v, want %v", names(b.Child("zeta").Children()), want)
	}
	// Classes stay ahead of functions.
	if want := []string{"K", "aaa"}; !equal(names(got.Child("lib.a").Children()), want) {
		t.Errorf("lib.a children = %v, want %v", names(got.Child("lib.a").Children()), want)
	}
	// The input is untouched.
	if root.Children()[0].Name != "lib.b" {
		t.Error("Sort modified its input")
	}
}

func TestSortByUsages(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)

	got := Sort(root, ByUsages, tbl)
	if want := []string{"lib.b", "lib.a"}; !equal(names(got.Children()), want) {
		t.Errorf("modules = %v, want %v", names(got.Children()), want)
	}
	if want := []string{"mid", "zeta", "Alpha"}; !equal(names(got.Child("lib.b").Children()), want) {
		t.Errorf("functions = %v, want %v", names(got.Child("lib.b").Children()), want)
	}
}

func TestSortByUsefulnessOnView(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)
	tbl.ValueCounts = map[string]map[string]int{"lib/lib.b/zeta/a": {"1": 3, "2": 2}}

	view := root.Filter(func(d *model.Declaration) bool { return d.Kind == model.Function })
	if view.LookupID("lib/lib.b/zeta/a") != nil {
		t.Fatal("parameters should be filtered out")
	}
	got := Sort(view, ByUsefulness, tbl)
	if want := []string{"lib.b", "lib.a"}; !equal(names(got.Children()), want) {
		t.Errorf("modules = %v, want %v", names(got.Children()), want)
	}
	if want := []string{"zeta", "Alpha", "mid"}; !equal(names(got.Child("lib.b").Children()), want) {
		t.Errorf("functions = %v, want %v", names(got.Child("lib.b").Children()), want)
	}
}

func TestSortDeclared(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)

	if got := Sort(root, Declared, tbl); got != root {
		t.Error("declared order should return the original tree")
	}
}

func TestTopAll(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)

	for _, n := range []int{0, -1, 5, 9} {
		if got := Top(root, n, tbl); got != root {
			t.Errorf("Top(%d) should return the original tree", n)
		}
	}
}

func TestTopSubset(t *testing.T) {
	t.Parallel()
	root, tbl := fixtures(t)

	got := Top(root, 2, tbl)
	want := []string{
		"lib",
		"lib/lib.b",
		"lib/lib.b/mid",
		"lib/lib.a",
		"lib/lib.a/K",
		"lib/lib.a/K/run",
	}
	if ids := got.IDs(); !equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	got = Top(root, 3, tbl)
	if d := got.LookupID("lib/lib.b/zeta/a"); d == nil {
		t.Error("parameters of a selected function should be kept")
	}
}
