package annotation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CurrentSchemaVersion is the version written by Export.
const CurrentSchemaVersion = 2

// Kind names one annotation collection of the store.
type Kind string

const (
	KindBoundary    Kind = "boundary"
	KindCalledAfter Kind = "calledAfter"
	KindComplete    Kind = "complete"
	KindDescription Kind = "description"
	KindEnum        Kind = "enum"
	KindExpert      Kind = "expert"
	KindGroup       Kind = "group"
	KindMove        Kind = "move"
	KindPure        Kind = "pure"
	KindRemove      Kind = "remove"
	KindRename      Kind = "rename"
	KindTodo        Kind = "todo"
	KindValue       Kind = "value"
)

// Store holds every annotation of a curated API, one map per kind keyed by
// declaration id. Repeatable kinds nest a second map keyed by the record's
// secondary name.
type Store struct {
	SchemaVersion int                                          `json:"schemaVersion"`
	Boundaries    map[string]*BoundaryAnnotation               `json:"boundaryAnnotations"`
	CalledAfters  map[string]map[string]*CalledAfterAnnotation `json:"calledAfterAnnotations"`
	Completes     map[string]*CompleteAnnotation               `json:"completeAnnotations"`
	Descriptions  map[string]*DescriptionAnnotation            `json:"descriptionAnnotations"`
	Enums         map[string]*EnumAnnotation                   `json:"enumAnnotations"`
	Experts       map[string]*ExpertAnnotation                 `json:"expertAnnotations"`
	Groups        map[string]map[string]*GroupAnnotation       `json:"groupAnnotations"`
	Moves         map[string]*MoveAnnotation                   `json:"moveAnnotations"`
	Pures         map[string]*PureAnnotation                   `json:"pureAnnotations"`
	Removes       map[string]*RemoveAnnotation                 `json:"removeAnnotations"`
	Renames       map[string]*RenameAnnotation                 `json:"renameAnnotations"`
	Todos         map[string]*TodoAnnotation                   `json:"todoAnnotations"`
	Values        map[string]*ValueAnnotation                  `json:"valueAnnotations"`
}

var (
	Boundaries = Table[*BoundaryAnnotation]{
		Kind: KindBoundary, field: func(s *Store) *map[string]*BoundaryAnnotation { return &s.Boundaries },
	}
	CalledAfters = NestedTable[*CalledAfterAnnotation]{
		Kind:  KindCalledAfter,
		field: func(s *Store) *map[string]map[string]*CalledAfterAnnotation { return &s.CalledAfters },
		key:   func(a *CalledAfterAnnotation) string { return a.CalledAfterName },
	}
	Completes = Table[*CompleteAnnotation]{
		Kind: KindComplete, field: func(s *Store) *map[string]*CompleteAnnotation { return &s.Completes },
	}
	Descriptions = Table[*DescriptionAnnotation]{
		Kind: KindDescription, field: func(s *Store) *map[string]*DescriptionAnnotation { return &s.Descriptions },
	}
	Enums = Table[*EnumAnnotation]{
		Kind: KindEnum, field: func(s *Store) *map[string]*EnumAnnotation { return &s.Enums },
	}
	Experts = Table[*ExpertAnnotation]{
		Kind: KindExpert, field: func(s *Store) *map[string]*ExpertAnnotation { return &s.Experts },
	}
	Groups = NestedTable[*GroupAnnotation]{
		Kind:  KindGroup,
		field: func(s *Store) *map[string]map[string]*GroupAnnotation { return &s.Groups },
		key:   func(a *GroupAnnotation) string { return a.GroupName },
	}
	Moves = Table[*MoveAnnotation]{
		Kind: KindMove, field: func(s *Store) *map[string]*MoveAnnotation { return &s.Moves },
	}
	Pures = Table[*PureAnnotation]{
		Kind: KindPure, field: func(s *Store) *map[string]*PureAnnotation { return &s.Pures },
	}
	Removes = Table[*RemoveAnnotation]{
		Kind: KindRemove, field: func(s *Store) *map[string]*RemoveAnnotation { return &s.Removes },
	}
	Renames = Table[*RenameAnnotation]{
		Kind: KindRename, field: func(s *Store) *map[string]*RenameAnnotation { return &s.Renames },
	}
	Todos = Table[*TodoAnnotation]{
		Kind: KindTodo, field: func(s *Store) *map[string]*TodoAnnotation { return &s.Todos },
	}
	Values = Table[*ValueAnnotation]{
		Kind: KindValue, field: func(s *Store) *map[string]*ValueAnnotation { return &s.Values },
	}
)

// tables lists every kind in the order used for listings and statistics.
var tables = []table{
	Boundaries, CalledAfters, Completes, Descriptions, Enums, Experts, Groups,
	Moves, Pures, Removes, Renames, Todos, Values,
}

var validate = validator.New()

// UnknownKindError reports an annotation kind name that does not exist.
type UnknownKindError struct {
	Name string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown annotation kind %q", e.Name)
}

// Kinds returns every annotation kind.
func Kinds() []Kind {
	out := make([]Kind, len(tables))
	for i, t := range tables {
		out[i] = t.kind()
	}
	return out
}

// ParseKind resolves a kind name, accepting an optional leading "@".
func ParseKind(name string) (Kind, error) {
	name = strings.TrimPrefix(name, "@")
	for _, t := range tables {
		if string(t.kind()) == name {
			return t.kind(), nil
		}
	}
	return "", &UnknownKindError{Name: name}
}

func tableFor(kind Kind) (table, error) {
	for _, t := range tables {
		if t.kind() == kind {
			return t, nil
		}
	}
	return nil, &UnknownKindError{Name: string(kind)}
}

// NewStore returns an empty store at the current schema version.
func NewStore() *Store {
	s := &Store{SchemaVersion: CurrentSchemaVersion}
	s.backfill()
	return s
}

func (s *Store) backfill() {
	for _, t := range tables {
		t.backfill(s)
	}
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	out := NewStore()
	for _, t := range tables {
		t.copyInto(out, s)
	}
	return out
}

// Has reports whether target carries a live annotation of kind.
func (s *Store) Has(kind Kind, target string) bool {
	t, err := tableFor(kind)
	if err != nil {
		return false
	}
	return t.has(s, target)
}

// HasAny reports whether target carries any live annotation.
func (s *Store) HasAny(target string) bool {
	for _, t := range tables {
		if t.has(s, target) {
			return true
		}
	}
	return false
}

// HasValue reports whether target carries a live value annotation of variant.
func (s *Store) HasValue(target string, variant ValueVariant) bool {
	v, ok := Values.Select(s, target)
	return ok && v.Variant == variant
}

// Counts returns the number of live records per kind.
func (s *Store) Counts() map[Kind]int {
	out := make(map[Kind]int, len(tables))
	for _, t := range tables {
		out[t.kind()] = t.count(s)
	}
	return out
}

// Entries lists every record, tombstones included, ordered by target, kind
// and key.
func (s *Store) Entries() []Entry {
	var out []Entry
	for _, t := range tables {
		out = append(out, t.entries(s)...)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Meta.Target != b.Meta.Target {
			return a.Meta.Target < b.Meta.Target
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Key < b.Key
	})
	return out
}

// UpsertJSON decodes a record of kind from data, binds it to target and
// upserts it on behalf of author.
func UpsertJSON(s *Store, kind Kind, target string, data []byte, author string) (Outcome, error) {
	t, err := tableFor(kind)
	if err != nil {
		return Created, err
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	return t.upsertJSON(s, target, data, author)
}

// Remove removes the record of kind for target. key selects the record of a
// repeatable kind and is ignored otherwise.
func Remove(s *Store, kind Kind, target, key string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	return t.remove(s, target, key), nil
}

// Review toggles reviewer's sign-off on the record of kind for target.
func Review(s *Store, kind Kind, target, key, reviewer string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	return t.review(s, target, key, reviewer), nil
}
