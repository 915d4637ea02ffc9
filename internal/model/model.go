// Package model defines the declaration tree of an analyzed Python API.
package model

import (
	"strings"
)

// Kind discriminates the variants of a Declaration.
type Kind string

const (
	Package   Kind = "package"
	Module    Kind = "module"
	Class     Kind = "class"
	Function  Kind = "function"
	Parameter Kind = "parameter"
)

// Assignment describes how a parameter receives its argument.
type Assignment string

const (
	Implicit       Assignment = "IMPLICIT"
	PositionOnly   Assignment = "POSITION_ONLY"
	PositionOrName Assignment = "POSITION_OR_NAME"
	NameOnly       Assignment = "NAME_ONLY"
)

// Declaration is a node of the API tree. Which of the variant fields are
// meaningful depends on Kind. A tree is never modified after Build; Filter and
// Sorted return new trees.
type Declaration struct {
	Kind        Kind
	Name        string
	IsPublic    bool
	Description string

	// package
	Distribution string
	Version      string

	// class, function
	Decorators   []string
	Superclasses []string
	Results      []string

	// parameter
	Assignment   Assignment
	DefaultValue *string
	TypeHint     string

	parent   *Declaration
	children []*Declaration
	// origin is the declaration of the built tree a Filter or Sorted copy
	// was made from; nil on the built tree itself.
	origin *Declaration
}

// Children returns the ordered child declarations: modules for a package,
// classes then functions for a module, methods for a class and parameters for
// a function. The returned slice must not be modified.
func (d *Declaration) Children() []*Declaration {
	if d.Kind == Parameter {
		return nil
	}
	return d.children
}

// Source returns the declaration of the built tree that d was copied from
// by Filter or Sorted, or d itself when it belongs to the built tree.
// Measures that depend on descendants read the source so that they do not
// change when a view prunes the tree.
func (d *Declaration) Source() *Declaration {
	if d.origin != nil {
		return d.origin
	}
	return d
}

// Parent returns the enclosing declaration, or nil for the root package.
func (d *Declaration) Parent() *Declaration {
	return d.parent
}

// Root returns the package at the top of the tree.
func (d *Declaration) Root() *Declaration {
	cur := d
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Path returns the names from the root down to d, root first.
func (d *Declaration) Path() []string {
	depth := 0
	for cur := d; cur != nil; cur = cur.parent {
		depth++
	}
	path := make([]string, depth)
	for cur := d; cur != nil; cur = cur.parent {
		depth--
		path[depth] = cur.Name
	}
	return path
}

// ID returns the slash-joined path. Annotations and usage counts are keyed by it.
func (d *Declaration) ID() string {
	return strings.Join(d.Path(), "/")
}

// Child returns the direct child called name, or nil.
func (d *Declaration) Child(name string) *Declaration {
	for _, c := range d.Children() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// GetByRelativePath resolves segments one child at a time starting below d.
// It returns nil as soon as a segment does not resolve. No segments yields d.
func (d *Declaration) GetByRelativePath(segments ...string) *Declaration {
	cur := d
	for _, s := range segments {
		cur = cur.Child(s)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Lookup resolves an absolute path as returned by Path, starting at the root
// of d's tree.
func (d *Declaration) Lookup(path []string) *Declaration {
	root := d.Root()
	if len(path) == 0 || path[0] != root.Name {
		return nil
	}
	return root.GetByRelativePath(path[1:]...)
}

// LookupID is Lookup for a slash-joined id.
func (d *Declaration) LookupID(id string) *Declaration {
	if id == "" {
		return nil
	}
	return d.Lookup(strings.Split(id, "/"))
}

// IsRequired reports whether d is a parameter the caller must always supply.
func (d *Declaration) IsRequired() bool {
	return d.Kind == Parameter && d.DefaultValue == nil && d.Assignment != Implicit
}

// IsOptional reports whether d is a parameter with a default value.
func (d *Declaration) IsOptional() bool {
	return d.Kind == Parameter && d.DefaultValue != nil
}

// Walk visits d and its descendants in pre-order. Returning false from fn
// stops the walk.
func (d *Declaration) Walk(fn func(*Declaration) bool) bool {
	if !fn(d) {
		return false
	}
	for _, c := range d.Children() {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// CountByKind returns how many declarations of each kind the tree holds.
func (d *Declaration) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	d.Walk(func(x *Declaration) bool {
		counts[x.Kind]++
		return true
	})
	return counts
}

// IDs returns the ids of all declarations in pre-order.
func (d *Declaration) IDs() []string {
	var ids []string
	d.Walk(func(x *Declaration) bool {
		ids = append(ids, x.ID())
		return true
	})
	return ids
}

// Filter returns a new tree holding every declaration below the root for which
// keep returns true, together with the ancestors needed to reach it. The root
// is always returned and keep is never called on it.
func (d *Declaration) Filter(keep func(*Declaration) bool) *Declaration {
	root := d.shallowCopy(nil)
	for _, c := range d.Children() {
		if fc := c.filter(root, keep); fc != nil {
			root.children = append(root.children, fc)
		}
	}
	return root
}

func (d *Declaration) filter(parent *Declaration, keep func(*Declaration) bool) *Declaration {
	cp := d.shallowCopy(parent)
	for _, c := range d.Children() {
		if fc := c.filter(cp, keep); fc != nil {
			cp.children = append(cp.children, fc)
		}
	}
	if len(cp.children) > 0 || keep(d) {
		return cp
	}
	return nil
}

// Sorted returns a new tree in which every child list is ordered by less.
// Modules keep classes ahead of functions and parameters keep their call order.
func (d *Declaration) Sorted(less func(a, b *Declaration) bool) *Declaration {
	return d.sorted(nil, less)
}

func (d *Declaration) sorted(parent *Declaration, less func(a, b *Declaration) bool) *Declaration {
	cp := d.shallowCopy(parent)
	for _, c := range d.Children() {
		cp.children = append(cp.children, c.sorted(cp, less))
	}
	if cp.Kind != Function {
		sortChildren(cp.children, less)
	}
	return cp
}

func (d *Declaration) shallowCopy(parent *Declaration) *Declaration {
	cp := *d
	cp.parent = parent
	cp.children = nil
	cp.origin = d.Source()
	return &cp
}
