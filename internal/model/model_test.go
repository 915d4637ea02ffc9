package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "kind": "package", "name": "lib", "distribution": "lib", "version": "1.0",
  "modules": [
    {"kind": "module", "name": "lib.core",
     "classes": [
       {"kind": "class", "name": "Model", "methods": [
         {"kind": "function", "name": "__init__", "parameters": [
           {"kind": "parameter", "name": "self", "assignedBy": "IMPLICIT"},
           {"kind": "parameter", "name": "alpha", "defaultValue": "1.0"}
         ]},
         {"kind": "function", "name": "_check", "parameters": []}
       ]}
     ],
     "functions": [
       {"kind": "function", "name": "fit", "parameters": [
         {"kind": "parameter", "name": "x", "assignedBy": "POSITION_ONLY"},
         {"kind": "parameter", "name": "y", "defaultValue": "None", "assignedBy": "NAME_ONLY"}
       ]}
     ]},
    {"kind": "module", "name": "lib._impl", "functions": [
       {"kind": "function", "name": "helper", "isPublic": true}
    ]}
  ]
}`

func mustBuild(t *testing.T) *Declaration {
	t.Helper()
	root, err := Build([]byte(fixture))
	require.NoError(t, err)
	return root
}

func TestBuildLinksTree(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	want := []string{
		"lib",
		"lib/lib.core",
		"lib/lib.core/Model",
		"lib/lib.core/Model/__init__",
		"lib/lib.core/Model/__init__/self",
		"lib/lib.core/Model/__init__/alpha",
		"lib/lib.core/Model/_check",
		"lib/lib.core/fit",
		"lib/lib.core/fit/x",
		"lib/lib.core/fit/y",
		"lib/lib._impl",
		"lib/lib._impl/helper",
	}
	if diff := cmp.Diff(want, root.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, root.Parent())
	assert.Equal(t, "1.0", root.Version)

	fit := root.LookupID("lib/lib.core/fit")
	require.NotNil(t, fit)
	assert.Equal(t, Function, fit.Kind)
	assert.Equal(t, "lib.core", fit.Parent().Name)
	assert.Same(t, root, fit.Root())
}

func TestBuildDerivesVisibility(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	tests := []struct {
		id   string
		want bool
	}{
		{"lib/lib.core", true},
		{"lib/lib.core/Model/__init__", true},
		{"lib/lib.core/Model/_check", false},
		{"lib/lib._impl", false},
		{"lib/lib._impl/helper", true}, // explicit
		{"lib/lib.core/fit/x", true},
	}
	for _, tt := range tests {
		d := root.LookupID(tt.id)
		require.NotNil(t, d, tt.id)
		assert.Equal(t, tt.want, d.IsPublic, tt.id)
	}
}

func TestParameterRoles(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	self := root.LookupID("lib/lib.core/Model/__init__/self")
	alpha := root.LookupID("lib/lib.core/Model/__init__/alpha")
	x := root.LookupID("lib/lib.core/fit/x")

	assert.False(t, self.IsRequired(), "implicit parameters are not required")
	assert.True(t, alpha.IsOptional())
	assert.Equal(t, PositionOrName, alpha.Assignment, "assignment defaults to POSITION_OR_NAME")
	assert.True(t, x.IsRequired())
	assert.Empty(t, x.Children())
}

func TestPathRoundTrip(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	root.Walk(func(d *Declaration) bool {
		assert.Same(t, d, root.Lookup(d.Path()), d.ID())
		assert.Same(t, d, root.GetByRelativePath(d.Path()[1:]...), d.ID())
		return true
	})
}

func TestGetByRelativePathMissing(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	assert.Nil(t, root.GetByRelativePath("lib.core", "Nope"))
	assert.Nil(t, root.GetByRelativePath("lib.core", "fit", "x", "deeper"))
	assert.Nil(t, root.Lookup([]string{"other", "lib.core"}))
	assert.Nil(t, root.LookupID(""))
	assert.Same(t, root, root.GetByRelativePath())
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bad json", `{`, "unexpected end"},
		{"missing name", `{"kind":"package"}`, "Name"},
		{"missing kind", `{"name":"lib"}`, "Kind"},
		{"unknown kind", `{"kind":"thing","name":"lib"}`, "Kind"},
		{"root not package", `{"kind":"module","name":"m"}`, "root must be a package"},
		{"wrong child kind", `{"kind":"package","name":"lib","modules":[{"kind":"class","name":"C"}]}`, "want module"},
		{"stray collection", `{"kind":"package","name":"lib","functions":[{"kind":"function","name":"f"}]}`, "cannot hold functions"},
		{"nested missing name", `{"kind":"package","name":"lib","modules":[{"kind":"module"}]}`, "Name"},
		{"bad assignment", `{"kind":"package","name":"lib","modules":[{"kind":"module","name":"m","functions":[{"kind":"function","name":"f","parameters":[{"kind":"parameter","name":"p","assignedBy":"SOMETIMES"}]}]}]}`, "AssignedBy"},
		{"slash in name", `{"kind":"package","name":"lib","modules":[{"kind":"module","name":"m","functions":[{"kind":"function","name":"a/b"}]}]}`, "must not contain '/'"},
		{"slash in root name", `{"kind":"package","name":"a/b"}`, "must not contain '/'"},
		{"sibling collision", `{"kind":"package","name":"lib","modules":[{"kind":"module","name":"m","classes":[{"kind":"class","name":"A"}],"functions":[{"kind":"function","name":"A"}]}]}`, "duplicate sibling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build([]byte(tt.in))
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %T", err)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestFilterKeepsAncestors(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	filtered := root.Filter(func(d *Declaration) bool { return d.Name == "alpha" })
	want := []string{
		"lib",
		"lib/lib.core",
		"lib/lib.core/Model",
		"lib/lib.core/Model/__init__",
		"lib/lib.core/Model/__init__/alpha",
	}
	if diff := cmp.Diff(want, filtered.IDs()); diff != "" {
		t.Errorf("filtered ids (-want +got):\n%s", diff)
	}

	// The source tree is untouched and the copy has its own parent links.
	assert.Len(t, root.IDs(), 12)
	alpha := filtered.LookupID("lib/lib.core/Model/__init__/alpha")
	require.NotNil(t, alpha)
	assert.Same(t, filtered, alpha.Root())
	assert.NotSame(t, root.LookupID(alpha.ID()), alpha)
}

func TestFilterIdempotent(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	keep := func(d *Declaration) bool { return strings.HasPrefix(d.Name, "f") || d.Kind == Parameter && d.IsRequired() }
	once := root.Filter(keep)
	twice := once.Filter(keep)
	if diff := cmp.Diff(once.IDs(), twice.IDs()); diff != "" {
		t.Errorf("filter not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFilterNothingKeepsRoot(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	filtered := root.Filter(func(*Declaration) bool { return false })
	assert.Equal(t, []string{"lib"}, filtered.IDs())
	assert.Equal(t, "1.0", filtered.Version)
}

func TestSorted(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	desc := root.Sorted(func(a, b *Declaration) bool { return a.Name > b.Name })
	want := []string{
		"lib",
		"lib/lib.core",
		"lib/lib.core/Model",
		"lib/lib.core/Model/_check",
		"lib/lib.core/Model/__init__",
		"lib/lib.core/Model/__init__/self",
		"lib/lib.core/Model/__init__/alpha",
		"lib/lib.core/fit",
		"lib/lib.core/fit/x",
		"lib/lib.core/fit/y",
		"lib/lib._impl",
		"lib/lib._impl/helper",
	}
	if diff := cmp.Diff(want, desc.IDs()); diff != "" {
		t.Errorf("sorted ids (-want +got):\n%s", diff)
	}
}

func TestCountByKind(t *testing.T) {
	t.Parallel()
	root := mustBuild(t)

	want := map[Kind]int{Package: 1, Module: 2, Class: 1, Function: 4, Parameter: 4}
	if diff := cmp.Diff(want, root.CountByKind()); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
}
