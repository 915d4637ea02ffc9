package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Record is implemented by pointers to the annotation types of this package.
type Record[T any] interface {
	comparable
	meta() *Meta
	Clone() T
}

// Outcome tells whether an upsert added a new record or replaced one.
type Outcome int

const (
	Created Outcome = iota
	Changed
)

func (o Outcome) String() string {
	if o == Created {
		return "created"
	}
	return "changed"
}

// ErrMissingTarget is returned when a record without a target is upserted.
var ErrMissingTarget = errors.New("annotation has no target")

// stamp carries authors and reviewers over from prev (nil when new) to next
// and records author as the latest author. Reviews survive content edits.
func stamp(prev, next *Meta, author string) {
	authors, reviewers := next.Authors, next.Reviewers
	if prev != nil {
		authors, reviewers = prev.Authors, prev.Reviewers
	}
	next.Authors = withAuthor(authors, author)
	next.Reviewers = append([]string(nil), reviewers...)
	next.IsRemoved = false
}

// toggleReview implements the single reviewer slot.
func toggleReview(m *Meta, reviewer string) {
	for _, r := range m.Reviewers {
		if r == reviewer {
			m.Reviewers = nil
			return
		}
	}
	m.Reviewers = []string{reviewer}
}

// checker is implemented by records with constraints beyond their struct tags.
type checker interface {
	check() error
}

func check(rec any) error {
	if err := validate.Struct(rec); err != nil {
		return err
	}
	if c, ok := rec.(checker); ok {
		return c.check()
	}
	return nil
}

// Entry is a kind-erased view of one stored record.
type Entry struct {
	Kind Kind
	Key  string
	Meta Meta
}

// table is the kind-erased surface of Table and NestedTable.
type table interface {
	kind() Kind
	has(s *Store, target string) bool
	upsertJSON(s *Store, target string, data []byte, author string) (Outcome, error)
	remove(s *Store, target, key string) bool
	review(s *Store, target, key, reviewer string) bool
	count(s *Store) int
	entries(s *Store) []Entry
	backfill(s *Store)
	copyInto(dst, src *Store)
	merge(dst, mine, theirs *Store)
}

// Table gives typed access to the records of one non-repeatable kind.
type Table[T Record[T]] struct {
	Kind  Kind
	field func(*Store) *map[string]T
}

// records returns the map of t in s for reading; it is nil on a zero Store.
func (t Table[T]) records(s *Store) map[string]T {
	return *t.field(s)
}

// writable is records with the map allocated on first write.
func (t Table[T]) writable(s *Store) map[string]T {
	m := t.field(s)
	if *m == nil {
		*m = make(map[string]T)
	}
	return *m
}

// Select returns the live record for target.
func (t Table[T]) Select(s *Store, target string) (T, bool) {
	rec, ok := t.records(s)[target]
	if !ok || rec.meta().IsRemoved {
		var zero T
		return zero, false
	}
	return rec, true
}

// Upsert stores rec under its target on behalf of author.
func (t Table[T]) Upsert(s *Store, rec T, author string) (Outcome, error) {
	m := rec.meta()
	if m.Target == "" {
		return Created, ErrMissingTarget
	}
	records := t.writable(s)
	outcome := Created
	var prev *Meta
	if old, ok := records[m.Target]; ok {
		prev = old.meta()
		outcome = Changed
	}
	stamp(prev, m, author)
	records[m.Target] = rec
	return outcome, nil
}

// Remove deletes the record for target, or tombstones it when it was
// autogenerated. It reports whether anything changed.
func (t Table[T]) Remove(s *Store, target string) bool {
	records := t.records(s)
	rec, ok := records[target]
	if !ok {
		return false
	}
	m := rec.meta()
	if m.IsAutogenerated() {
		if m.IsRemoved {
			return false
		}
		m.IsRemoved = true
		return true
	}
	delete(records, target)
	return true
}

// Review toggles reviewer's sign-off on the record for target.
func (t Table[T]) Review(s *Store, target, reviewer string) bool {
	rec, ok := t.records(s)[target]
	if !ok {
		return false
	}
	toggleReview(rec.meta(), reviewer)
	return true
}

func (t Table[T]) kind() Kind { return t.Kind }

func (t Table[T]) has(s *Store, target string) bool {
	_, ok := t.Select(s, target)
	return ok
}

func (t Table[T]) upsertJSON(s *Store, target string, data []byte, author string) (Outcome, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return Created, fmt.Errorf("decoding %s annotation: %w", t.Kind, err)
	}
	var zero T
	if rec == zero {
		return Created, fmt.Errorf("decoding %s annotation: null record", t.Kind)
	}
	rec.meta().Target = target
	if err := check(rec); err != nil {
		return Created, fmt.Errorf("invalid %s annotation: %w", t.Kind, err)
	}
	return t.Upsert(s, rec, author)
}

func (t Table[T]) remove(s *Store, target, _ string) bool { return t.Remove(s, target) }

func (t Table[T]) review(s *Store, target, _, reviewer string) bool {
	return t.Review(s, target, reviewer)
}

func (t Table[T]) count(s *Store) int {
	n := 0
	for _, rec := range t.records(s) {
		if !rec.meta().IsRemoved {
			n++
		}
	}
	return n
}

func (t Table[T]) entries(s *Store) []Entry {
	var out []Entry
	for _, rec := range t.records(s) {
		out = append(out, Entry{Kind: t.Kind, Meta: rec.meta().clone()})
	}
	return out
}

// backfill creates a missing map and drops null records left by decoding.
func (t Table[T]) backfill(s *Store) {
	var zero T
	records := t.writable(s)
	for k, rec := range records {
		if rec == zero {
			delete(records, k)
		}
	}
}

func (t Table[T]) copyInto(dst, src *Store) {
	out := t.writable(dst)
	for k, rec := range t.records(src) {
		out[k] = rec.Clone()
	}
}

func (t Table[T]) merge(dst, mine, theirs *Store) {
	t.copyInto(dst, theirs)
	t.copyInto(dst, mine)
}

// NestedTable gives typed access to a repeatable kind, whose records are keyed
// by target and then by a secondary name.
type NestedTable[T Record[T]] struct {
	Kind  Kind
	field func(*Store) *map[string]map[string]T
	key   func(T) string
}

func (t NestedTable[T]) records(s *Store) map[string]map[string]T {
	return *t.field(s)
}

func (t NestedTable[T]) writable(s *Store) map[string]map[string]T {
	m := t.field(s)
	if *m == nil {
		*m = make(map[string]map[string]T)
	}
	return *m
}

// Select returns the live record for (target, key).
func (t NestedTable[T]) Select(s *Store, target, key string) (T, bool) {
	rec, ok := t.records(s)[target][key]
	if !ok || rec.meta().IsRemoved {
		var zero T
		return zero, false
	}
	return rec, true
}

// SelectAll returns the live records for target ordered by key.
func (t NestedTable[T]) SelectAll(s *Store, target string) []T {
	inner := t.records(s)[target]
	keys := make([]string, 0, len(inner))
	for k, rec := range inner {
		if !rec.meta().IsRemoved {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = inner[k]
	}
	return out
}

// Upsert stores rec under its target and secondary key.
func (t NestedTable[T]) Upsert(s *Store, rec T, author string) (Outcome, error) {
	m := rec.meta()
	if m.Target == "" {
		return Created, ErrMissingTarget
	}
	key := t.key(rec)
	records := t.writable(s)
	inner := records[m.Target]
	if inner == nil {
		inner = make(map[string]T)
		records[m.Target] = inner
	}
	outcome := Created
	var prev *Meta
	if old, ok := inner[key]; ok {
		prev = old.meta()
		outcome = Changed
	}
	stamp(prev, m, author)
	inner[key] = rec
	return outcome, nil
}

// Remove deletes or tombstones the record for (target, key). The target entry
// goes away with its last record.
func (t NestedTable[T]) Remove(s *Store, target, key string) bool {
	records := t.records(s)
	inner := records[target]
	rec, ok := inner[key]
	if !ok {
		return false
	}
	m := rec.meta()
	if m.IsAutogenerated() {
		if m.IsRemoved {
			return false
		}
		m.IsRemoved = true
		return true
	}
	delete(inner, key)
	if len(inner) == 0 {
		delete(records, target)
	}
	return true
}

// Review toggles reviewer's sign-off on the record for (target, key).
func (t NestedTable[T]) Review(s *Store, target, key, reviewer string) bool {
	rec, ok := t.records(s)[target][key]
	if !ok {
		return false
	}
	toggleReview(rec.meta(), reviewer)
	return true
}

func (t NestedTable[T]) kind() Kind { return t.Kind }

func (t NestedTable[T]) has(s *Store, target string) bool {
	for _, rec := range t.records(s)[target] {
		if !rec.meta().IsRemoved {
			return true
		}
	}
	return false
}

func (t NestedTable[T]) upsertJSON(s *Store, target string, data []byte, author string) (Outcome, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return Created, fmt.Errorf("decoding %s annotation: %w", t.Kind, err)
	}
	var zero T
	if rec == zero {
		return Created, fmt.Errorf("decoding %s annotation: null record", t.Kind)
	}
	rec.meta().Target = target
	if err := check(rec); err != nil {
		return Created, fmt.Errorf("invalid %s annotation: %w", t.Kind, err)
	}
	return t.Upsert(s, rec, author)
}

func (t NestedTable[T]) remove(s *Store, target, key string) bool { return t.Remove(s, target, key) }

func (t NestedTable[T]) review(s *Store, target, key, reviewer string) bool {
	return t.Review(s, target, key, reviewer)
}

func (t NestedTable[T]) count(s *Store) int {
	n := 0
	for _, inner := range t.records(s) {
		for _, rec := range inner {
			if !rec.meta().IsRemoved {
				n++
			}
		}
	}
	return n
}

func (t NestedTable[T]) entries(s *Store) []Entry {
	var out []Entry
	for _, inner := range t.records(s) {
		for k, rec := range inner {
			out = append(out, Entry{Kind: t.Kind, Key: k, Meta: rec.meta().clone()})
		}
	}
	return out
}

func (t NestedTable[T]) backfill(s *Store) {
	var zero T
	records := t.writable(s)
	for target, inner := range records {
		for k, rec := range inner {
			if rec == zero {
				delete(inner, k)
			}
		}
		if len(inner) == 0 {
			delete(records, target)
		}
	}
}

func (t NestedTable[T]) copyInto(dst, src *Store) {
	out := t.writable(dst)
	for target, inner := range t.records(src) {
		if out[target] == nil {
			out[target] = make(map[string]T, len(inner))
		}
		for k, rec := range inner {
			out[target][k] = rec.Clone()
		}
	}
}

func (t NestedTable[T]) merge(dst, mine, theirs *Store) {
	t.copyInto(dst, theirs)
	t.copyInto(dst, mine)
}
