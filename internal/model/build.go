package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RawDeclaration is the JSON form of an API snapshot node. The same type is
// used to read snapshots and to write the ones produced by extraction.
type RawDeclaration struct {
	Kind         Kind              `json:"kind" validate:"required,oneof=package module class function parameter"`
	Name         string            `json:"name" validate:"required"`
	IsPublic     *bool             `json:"isPublic,omitempty"`
	Description  string            `json:"description,omitempty"`
	Distribution string            `json:"distribution,omitempty"`
	Version      string            `json:"version,omitempty"`
	Decorators   []string          `json:"decorators,omitempty"`
	Superclasses []string          `json:"superclasses,omitempty"`
	Results      []string          `json:"results,omitempty"`
	AssignedBy   Assignment        `json:"assignedBy,omitempty" validate:"omitempty,oneof=IMPLICIT POSITION_ONLY POSITION_OR_NAME NAME_ONLY"`
	DefaultValue *string           `json:"defaultValue,omitempty"`
	TypeHint     string            `json:"typeHint,omitempty"`
	Modules      []*RawDeclaration `json:"modules,omitempty" validate:"dive,required"`
	Classes      []*RawDeclaration `json:"classes,omitempty" validate:"dive,required"`
	Functions    []*RawDeclaration `json:"functions,omitempty" validate:"dive,required"`
	Methods      []*RawDeclaration `json:"methods,omitempty" validate:"dive,required"`
	Parameters   []*RawDeclaration `json:"parameters,omitempty" validate:"dive,required"`
}

// ParseError reports a snapshot that cannot be turned into a tree.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "parse api: " + e.Reason
	}
	return fmt.Sprintf("parse api: %s: %s", e.Path, e.Reason)
}

var validate = validator.New()

// Build parses an API snapshot and links it into a declaration tree rooted at
// the package.
func Build(data []byte) (*Declaration, error) {
	var raw RawDeclaration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	return FromRaw(&raw)
}

// FromRaw validates raw and links it into a declaration tree.
func FromRaw(raw *RawDeclaration) (*Declaration, error) {
	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &ParseError{
				Path:   fe.Namespace(),
				Reason: fmt.Sprintf("field %s failed %q", fe.Field(), fe.Tag()),
			}
		}
		return nil, &ParseError{Reason: err.Error()}
	}
	if raw.Kind != Package {
		return nil, &ParseError{Path: raw.Name, Reason: fmt.Sprintf("root must be a package, got %s", raw.Kind)}
	}
	return link(raw, nil)
}

type collection struct {
	field string
	kind  Kind
	items []*RawDeclaration
}

func collections(raw *RawDeclaration) (allowed []collection, stray []string) {
	all := []collection{
		{"modules", Module, raw.Modules},
		{"classes", Class, raw.Classes},
		{"functions", Function, raw.Functions},
		{"methods", Function, raw.Methods},
		{"parameters", Parameter, raw.Parameters},
	}
	var want map[string]bool
	switch raw.Kind {
	case Package:
		want = map[string]bool{"modules": true}
	case Module:
		want = map[string]bool{"classes": true, "functions": true}
	case Class:
		want = map[string]bool{"methods": true}
	case Function:
		want = map[string]bool{"parameters": true}
	case Parameter:
		want = map[string]bool{}
	}
	for _, c := range all {
		if want[c.field] {
			allowed = append(allowed, c)
		} else if len(c.items) > 0 {
			stray = append(stray, c.field)
		}
	}
	return allowed, stray
}

func link(raw *RawDeclaration, parent *Declaration) (*Declaration, error) {
	if strings.Contains(raw.Name, "/") {
		path := raw.Name
		if parent != nil {
			path = parent.ID() + "/" + raw.Name
		}
		return nil, &ParseError{Path: path, Reason: "name must not contain '/'"}
	}
	d := &Declaration{
		Kind:         raw.Kind,
		Name:         raw.Name,
		Description:  raw.Description,
		Distribution: raw.Distribution,
		Version:      raw.Version,
		Decorators:   raw.Decorators,
		Superclasses: raw.Superclasses,
		Results:      raw.Results,
		Assignment:   raw.AssignedBy,
		DefaultValue: raw.DefaultValue,
		TypeHint:     raw.TypeHint,
		parent:       parent,
	}
	if d.Kind == Parameter && d.Assignment == "" {
		d.Assignment = PositionOrName
	}
	if raw.IsPublic != nil {
		d.IsPublic = *raw.IsPublic
	} else {
		d.IsPublic = derivePublic(d)
	}

	allowed, stray := collections(raw)
	if len(stray) > 0 {
		return nil, &ParseError{Path: d.ID(), Reason: fmt.Sprintf("%s cannot hold %s", d.Kind, strings.Join(stray, ", "))}
	}

	seen := make(map[string]struct{})
	for _, c := range allowed {
		for _, item := range c.items {
			if item.Kind != c.kind {
				return nil, &ParseError{
					Path:   d.ID() + "/" + item.Name,
					Reason: fmt.Sprintf("%s entry has kind %s, want %s", c.field, item.Kind, c.kind),
				}
			}
			if _, dup := seen[item.Name]; dup {
				return nil, &ParseError{Path: d.ID() + "/" + item.Name, Reason: "duplicate sibling name"}
			}
			seen[item.Name] = struct{}{}
			child, err := link(item, d)
			if err != nil {
				return nil, err
			}
			d.children = append(d.children, child)
		}
	}
	return d, nil
}

// derivePublic applies Python naming conventions when the snapshot does not
// state visibility explicitly.
func derivePublic(d *Declaration) bool {
	switch d.Kind {
	case Package:
		return true
	case Parameter:
		if d.parent != nil {
			return d.parent.IsPublic
		}
		return true
	case Module:
		for _, seg := range strings.Split(d.Name, ".") {
			if isInternalName(seg) {
				return false
			}
		}
	default:
		if isInternalName(d.Name) {
			return false
		}
	}
	if d.parent != nil && d.parent.Kind != Package && !d.parent.IsPublic {
		return false
	}
	return true
}

func isInternalName(name string) bool {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4 {
		return false
	}
	return strings.HasPrefix(name, "_")
}

func kindRank(k Kind) int {
	if k == Class {
		return 0
	}
	return 1
}

func sortChildren(children []*Declaration, less func(a, b *Declaration) bool) {
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]
		if ra, rb := kindRank(a.Kind), kindRank(b.Kind); ra != rb {
			return ra < rb
		}
		return less(a, b)
	})
}
