package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/phobologic/apicurate/internal/annotation"
)

const sessionVersion = 1

// session is the on-disk form of a document's mutable state. Stores are
// embedded as annotation files so they migrate like any import.
type session struct {
	Version int               `json:"version"`
	Store   json.RawMessage   `json:"store"`
	History []json.RawMessage `json:"history"`
	Cursor  int               `json:"cursor"`
}

// SaveSession writes the store and its undo history to path.
func (d *Document) SaveSession(path string) error {
	store, err := annotation.Export(d.store)
	if err != nil {
		return err
	}
	s := session{Version: sessionVersion, Store: store, Cursor: d.history.Cursor()}
	for _, snap := range d.history.Snapshots() {
		data, err := annotation.Export(snap)
		if err != nil {
			return err
		}
		s.History = append(s.History, data)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}
	// Write to a sibling file first so a failed write keeps the old session.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	log.Debug().Str("path", path).Int("history", len(s.History)).Msg("session saved")
	return nil
}

// LoadSession creates a document from opts and the session saved at path.
// opts.Store is ignored. A missing file yields a document with an empty
// store.
func LoadSession(path string, opts Options) (*Document, error) {
	opts.Store = nil
	d := New(opts)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no session, starting empty")
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", path, err)
	}
	if s.Version != sessionVersion {
		return nil, fmt.Errorf("session %s: unsupported version %d", path, s.Version)
	}
	store, err := annotation.MigrateToCurrentVersion(s.Store)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", path, err)
	}
	snaps := make([]*annotation.Store, 0, len(s.History))
	for i, raw := range s.History {
		snap, err := annotation.MigrateToCurrentVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("session %s: history entry %d: %w", path, i, err)
		}
		snaps = append(snaps, snap)
	}
	if err := d.history.Restore(snaps, s.Cursor); err != nil {
		return nil, fmt.Errorf("session %s: %w", path, err)
	}
	d.store = store
	return d, nil
}
