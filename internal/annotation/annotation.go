// Package annotation implements the versioned annotation store: one keyed
// collection of records per annotation kind, with author and reviewer
// bookkeeping, tombstones for autogenerated records, schema migration and
// merging.
package annotation

import (
	"fmt"
	"slices"
)

// AutogenAuthor marks a record produced by the annotation generator rather
// than a person.
const AutogenAuthor = "$autogen$"

// Meta holds the fields shared by every annotation record.
type Meta struct {
	Target    string   `json:"target" validate:"required"`
	Authors   []string `json:"authors,omitempty"`
	Reviewers []string `json:"reviewers,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	IsRemoved bool     `json:"isRemoved"`
}

func (m *Meta) meta() *Meta { return m }

// IsAutogenerated reports whether the generator authored the record.
func (m *Meta) IsAutogenerated() bool {
	return slices.Contains(m.Authors, AutogenAuthor)
}

// IsReviewed reports whether somebody signed off on the record.
func (m *Meta) IsReviewed() bool {
	return len(m.Reviewers) > 0
}

func (m Meta) clone() Meta {
	m.Authors = slices.Clone(m.Authors)
	m.Reviewers = slices.Clone(m.Reviewers)
	return m
}

// withAuthor appends author to authors, moving it to the end when present.
func withAuthor(authors []string, author string) []string {
	out := make([]string, 0, len(authors)+1)
	for _, a := range authors {
		if a != author {
			out = append(out, a)
		}
	}
	if author != "" {
		out = append(out, author)
	}
	return out
}

// LimitType describes one end of a boundary interval.
type LimitType int

const (
	Exclusive LimitType = iota
	Inclusive
	Unrestricted
)

// Interval is the numeric range accepted by a parameter.
type Interval struct {
	IsDiscrete         bool      `json:"isDiscrete"`
	LowerIntervalLimit float64   `json:"lowerIntervalLimit"`
	LowerLimitType     LimitType `json:"lowerLimitType" validate:"min=0,max=2"`
	UpperIntervalLimit float64   `json:"upperIntervalLimit"`
	UpperLimitType     LimitType `json:"upperLimitType" validate:"min=0,max=2"`
}

type BoundaryAnnotation struct {
	Meta
	Interval Interval `json:"interval"`
}

func (a *BoundaryAnnotation) Clone() *BoundaryAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

// CalledAfterAnnotation states that Target must be called after another
// function of the same class.
type CalledAfterAnnotation struct {
	Meta
	CalledAfterName string `json:"calledAfterName" validate:"required"`
}

func (a *CalledAfterAnnotation) Clone() *CalledAfterAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

// CompleteAnnotation marks a declaration as fully curated.
type CompleteAnnotation struct {
	Meta
}

func (a *CompleteAnnotation) Clone() *CompleteAnnotation {
	return &CompleteAnnotation{Meta: a.Meta.clone()}
}

type DescriptionAnnotation struct {
	Meta
	NewDescription string `json:"newDescription"`
}

func (a *DescriptionAnnotation) Clone() *DescriptionAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

type EnumPair struct {
	StringValue  string `json:"stringValue" validate:"required"`
	InstanceName string `json:"instanceName" validate:"required"`
}

type EnumAnnotation struct {
	Meta
	EnumName string     `json:"enumName" validate:"required"`
	Pairs    []EnumPair `json:"pairs" validate:"dive"`
}

func (a *EnumAnnotation) Clone() *EnumAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	c.Pairs = slices.Clone(a.Pairs)
	return &c
}

// ExpertAnnotation hides a parameter from novice users of the wrapper.
type ExpertAnnotation struct {
	Meta
}

func (a *ExpertAnnotation) Clone() *ExpertAnnotation {
	return &ExpertAnnotation{Meta: a.Meta.clone()}
}

// GroupAnnotation bundles parameters of a function into one object.
type GroupAnnotation struct {
	Meta
	GroupName  string   `json:"groupName" validate:"required"`
	Parameters []string `json:"parameters"`
}

func (a *GroupAnnotation) Clone() *GroupAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	c.Parameters = slices.Clone(a.Parameters)
	return &c
}

type MoveAnnotation struct {
	Meta
	Destination string `json:"destination" validate:"required"`
}

func (a *MoveAnnotation) Clone() *MoveAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

type PureAnnotation struct {
	Meta
}

func (a *PureAnnotation) Clone() *PureAnnotation {
	return &PureAnnotation{Meta: a.Meta.clone()}
}

type RemoveAnnotation struct {
	Meta
}

func (a *RemoveAnnotation) Clone() *RemoveAnnotation {
	return &RemoveAnnotation{Meta: a.Meta.clone()}
}

type RenameAnnotation struct {
	Meta
	NewName string `json:"newName" validate:"required"`
}

func (a *RenameAnnotation) Clone() *RenameAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

type TodoAnnotation struct {
	Meta
	NewTodo string `json:"newTodo"`
}

func (a *TodoAnnotation) Clone() *TodoAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}

// ValueVariant says how a parameter's value is supplied in the wrapper.
type ValueVariant string

const (
	Required ValueVariant = "required"
	Optional ValueVariant = "optional"
	Constant ValueVariant = "constant"
)

type DefaultValueType string

const (
	StringValue  DefaultValueType = "string"
	NumberValue  DefaultValueType = "number"
	BooleanValue DefaultValueType = "boolean"
	NoneValue    DefaultValueType = "none"
)

// ValueAnnotation replaces the way a parameter gets its value. DefaultValue
// holds a string, float64, bool or nil matching DefaultValueType.
type ValueAnnotation struct {
	Meta
	Variant          ValueVariant     `json:"variant" validate:"required,oneof=required optional constant"`
	DefaultValueType DefaultValueType `json:"defaultValueType,omitempty" validate:"omitempty,oneof=string number boolean none"`
	DefaultValue     any              `json:"defaultValue,omitempty"`
}

func (a *ValueAnnotation) check() error {
	if a.Variant != Required && a.DefaultValueType == "" {
		return fmt.Errorf("%s value needs a defaultValueType", a.Variant)
	}
	return nil
}

func (a *ValueAnnotation) Clone() *ValueAnnotation {
	c := *a
	c.Meta = a.Meta.clone()
	return &c
}
