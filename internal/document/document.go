// Package document owns one curation session: the API tree being curated,
// its usage counts, the annotation store and the undo history of that store.
// Every user action is one atomic replacement of the store.
package document

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/phobologic/apicurate/internal/annotation"
	"github.com/phobologic/apicurate/internal/filter"
	"github.com/phobologic/apicurate/internal/history"
	"github.com/phobologic/apicurate/internal/model"
	"github.com/phobologic/apicurate/internal/ranking"
	"github.com/phobologic/apicurate/internal/usage"
)

// ErrUnknownTarget is returned when an edit names a declaration that is not
// part of the API.
var ErrUnknownTarget = errors.New("no such declaration")

// Options configures a new Document. Every field is optional.
type Options struct {
	API       *model.Declaration
	Usages    *usage.Table
	Store     *annotation.Store
	Username  string
	UndoLimit int
}

// Document is a curation session. It is not safe for concurrent use.
type Document struct {
	api      *model.Declaration
	usages   *usage.Table
	store    *annotation.Store
	history  *history.Queue[*annotation.Store]
	username string
	version  uint64

	memo struct {
		filter  string
		order   ranking.Order
		version uint64
		root    *model.Declaration
	}
}

// New creates a document. A missing store starts empty.
func New(opts Options) *Document {
	store := opts.Store
	if store == nil {
		store = annotation.NewStore()
	}
	return &Document{
		api:      opts.API,
		usages:   opts.Usages,
		store:    store,
		history:  history.New(opts.UndoLimit, (*annotation.Store).Clone),
		username: opts.Username,
	}
}

func (d *Document) API() *model.Declaration { return d.api }

func (d *Document) Usages() *usage.Table { return d.usages }

// Store returns the current annotation store. Callers must not modify it;
// all changes go through Edit.
func (d *Document) Store() *annotation.Store { return d.store }

func (d *Document) Username() string { return d.username }

// Version increases with every change of the store, undo and redo included.
func (d *Document) Version() uint64 { return d.version }

func (d *Document) CanUndo() bool { return d.history.CanUndo() }

func (d *Document) CanRedo() bool { return d.history.CanRedo() }

// Env returns the filter environment of the current state.
func (d *Document) Env() filter.Env {
	return filter.Env{Annotations: d.store, Usages: d.usages}
}

// Edit runs fn against a copy of the store. When fn reports a change the
// copy becomes the current store and the previous one is pushed to the undo
// history. An error discards the copy.
func (d *Document) Edit(fn func(s *annotation.Store) (bool, error)) (bool, error) {
	working := d.store.Clone()
	changed, err := fn(working)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	d.history.Push(d.store)
	d.store = working
	d.version++
	log.Debug().Uint64("version", d.version).Int("undo", d.history.Cursor()+1).Msg("store edited")
	return true, nil
}

func (d *Document) checkTarget(target string) error {
	if d.api == nil || d.api.LookupID(target) != nil {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
}

// Upsert decodes a record of kind from data and stores it for target on
// behalf of the document's user.
func (d *Document) Upsert(kind annotation.Kind, target string, data []byte) (annotation.Outcome, error) {
	if err := d.checkTarget(target); err != nil {
		return annotation.Created, err
	}
	var outcome annotation.Outcome
	_, err := d.Edit(func(s *annotation.Store) (bool, error) {
		o, err := annotation.UpsertJSON(s, kind, target, data, d.username)
		outcome = o
		return err == nil, err
	})
	return outcome, err
}

// Remove removes the record of kind for target. key selects the record of
// a repeatable kind.
func (d *Document) Remove(kind annotation.Kind, target, key string) (bool, error) {
	return d.Edit(func(s *annotation.Store) (bool, error) {
		return annotation.Remove(s, kind, target, key)
	})
}

// Review toggles the user's sign-off on the record of kind for target.
func (d *Document) Review(kind annotation.Kind, target, key string) (bool, error) {
	return d.Edit(func(s *annotation.Store) (bool, error) {
		return annotation.Review(s, kind, target, key, d.username)
	})
}

// Undo restores the store as it was before the last edit. It reports false
// when there is nothing to undo.
func (d *Document) Undo() bool {
	prev, ok := d.history.Undo(d.store)
	if !ok {
		return false
	}
	d.store = prev
	d.version++
	log.Debug().Uint64("version", d.version).Msg("undo")
	return true
}

// Redo reapplies the last undone edit.
func (d *Document) Redo() bool {
	next, ok := d.history.Redo(d.store)
	if !ok {
		return false
	}
	d.store = next
	d.version++
	log.Debug().Uint64("version", d.version).Msg("redo")
	return true
}

// ReplaceStore makes a copy of s the current store as one undoable edit.
func (d *Document) ReplaceStore(s *annotation.Store) {
	_, _ = d.Edit(func(working *annotation.Store) (bool, error) {
		*working = *s.Clone()
		return true, nil
	})
}

// MergeStore merges theirs into the current store as one undoable edit.
// Records of the current store win conflicts.
func (d *Document) MergeStore(theirs *annotation.Store) {
	_, _ = d.Edit(func(working *annotation.Store) (bool, error) {
		*working = *annotation.Merge(working, theirs)
		return true, nil
	})
}

// ImportStore reads an annotation file of any supported schema version and
// either replaces or merges into the current store. Nothing changes when the
// file cannot be read.
func (d *Document) ImportStore(data []byte, merge bool) error {
	imported, err := annotation.MigrateToCurrentVersion(data)
	if err != nil {
		return fmt.Errorf("importing annotations: %w", err)
	}
	if merge {
		d.MergeStore(imported)
	} else {
		d.ReplaceStore(imported)
	}
	return nil
}

// Preview returns the store ImportStore would produce without applying it.
func (d *Document) Preview(data []byte, merge bool) (*annotation.Store, error) {
	imported, err := annotation.MigrateToCurrentVersion(data)
	if err != nil {
		return nil, fmt.Errorf("importing annotations: %w", err)
	}
	if merge {
		return annotation.Merge(d.store, imported), nil
	}
	return imported, nil
}

// Export renders the current store as an annotation file.
func (d *Document) Export() ([]byte, error) {
	return annotation.Export(d.store)
}

// View returns the API tree filtered by f and ordered by o. The result is
// cached until the filter, the order or the store changes. The returned tree
// is shared and must not be modified.
func (d *Document) View(f *filter.Filter, o ranking.Order) *model.Declaration {
	if d.api == nil {
		return nil
	}
	m := &d.memo
	if m.root != nil && m.filter == f.String() && m.order == o && m.version == d.version {
		log.Debug().Str("filter", m.filter).Msg("view cache hit")
		return m.root
	}
	root := f.Apply(d.api, d.Env())
	root = ranking.Sort(root, o, d.usages)
	m.filter, m.order, m.version, m.root = f.String(), o, d.version, root
	return root
}
