package annotation

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// UnsupportedSchemaVersionError reports an annotation file this version of
// the store cannot read.
type UnsupportedSchemaVersionError struct {
	Version int
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported annotation schema version %d (current is %d)", e.Version, CurrentSchemaVersion)
}

// v1Default is the shape shared by the four value-like kinds of version 1.
type v1Default struct {
	Meta
	DefaultType  DefaultValueType `json:"defaultType"`
	DefaultValue any              `json:"defaultValue"`
}

type v1Store struct {
	Attributes   map[string]*v1Default                        `json:"attributes"`
	Boundaries   map[string]*BoundaryAnnotation               `json:"boundaries"`
	CalledAfters map[string]map[string]*CalledAfterAnnotation `json:"calledAfters"`
	Completes    map[string]*CompleteAnnotation               `json:"completes"`
	Constants    map[string]*v1Default                        `json:"constants"`
	Descriptions map[string]*DescriptionAnnotation            `json:"descriptions"`
	Enums        map[string]*EnumAnnotation                   `json:"enums"`
	Groups       map[string]map[string]*GroupAnnotation       `json:"groups"`
	Moves        map[string]*MoveAnnotation                   `json:"moves"`
	Optionals    map[string]*v1Default                        `json:"optionals"`
	Pures        map[string]*PureAnnotation                   `json:"pures"`
	Removes      map[string]*RemoveAnnotation                 `json:"removes"`
	Renamings    map[string]*RenameAnnotation                 `json:"renamings"`
	Requireds    map[string]*Meta                             `json:"requireds"`
	Todos        map[string]*TodoAnnotation                   `json:"todos"`
	Unuseds      map[string]*RemoveAnnotation                 `json:"unuseds"`
}

// MigrateToCurrentVersion decodes an exported annotation file of any
// supported schema version into a fully populated current store.
func MigrateToCurrentVersion(data []byte) (*Store, error) {
	var header struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decoding annotation file: %w", err)
	}
	if header.SchemaVersion == nil {
		return nil, &UnsupportedSchemaVersionError{Version: 0}
	}

	switch v := *header.SchemaVersion; v {
	case 1:
		var old v1Store
		if err := json.Unmarshal(data, &old); err != nil {
			return nil, fmt.Errorf("decoding version 1 annotations: %w", err)
		}
		log.Debug().Int("from", 1).Int("to", CurrentSchemaVersion).Msg("migrating annotation store")
		return migrateV1(&old), nil
	case CurrentSchemaVersion:
		s := &Store{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decoding annotations: %w", err)
		}
		s.backfill()
		return s, nil
	default:
		return nil, &UnsupportedSchemaVersionError{Version: v}
	}
}

func migrateV1(old *v1Store) *Store {
	s := NewStore()
	s.Boundaries = orEmpty(old.Boundaries)
	s.CalledAfters = orEmptyNested(old.CalledAfters)
	s.Completes = orEmpty(old.Completes)
	s.Descriptions = orEmpty(old.Descriptions)
	s.Enums = orEmpty(old.Enums)
	s.Groups = orEmptyNested(old.Groups)
	s.Moves = orEmpty(old.Moves)
	s.Pures = orEmpty(old.Pures)
	s.Renames = orEmpty(old.Renamings)
	s.Todos = orEmpty(old.Todos)
	s.Removes = orEmpty(old.Removes)
	for target, rec := range old.Unuseds {
		if rec == nil {
			continue
		}
		if _, ok := s.Removes[target]; !ok {
			s.Removes[target] = rec
		}
	}

	// Earlier sources win unless their record was removed.
	fold := func(target string, v *ValueAnnotation) {
		if cur, ok := s.Values[target]; ok && !cur.IsRemoved {
			return
		}
		s.Values[target] = v
	}
	for target, rec := range old.Attributes {
		if rec == nil {
			continue
		}
		fold(target, fromDefault(rec, Constant))
	}
	for target, rec := range old.Constants {
		if rec == nil {
			continue
		}
		fold(target, fromDefault(rec, Constant))
	}
	for target, rec := range old.Optionals {
		if rec == nil {
			continue
		}
		fold(target, fromDefault(rec, Optional))
	}
	for target, rec := range old.Requireds {
		if rec == nil {
			continue
		}
		fold(target, &ValueAnnotation{Meta: *rec, Variant: Required})
	}
	s.backfill()
	return s
}

func fromDefault(d *v1Default, variant ValueVariant) *ValueAnnotation {
	return &ValueAnnotation{
		Meta:             d.Meta,
		Variant:          variant,
		DefaultValueType: d.DefaultType,
		DefaultValue:     d.DefaultValue,
	}
}

func orEmpty[T any](m map[string]T) map[string]T {
	if m == nil {
		return make(map[string]T)
	}
	return m
}

func orEmptyNested[T any](m map[string]map[string]T) map[string]map[string]T {
	if m == nil {
		return make(map[string]map[string]T)
	}
	return m
}

// Export renders s as the pretty-printed JSON annotation file.
func Export(s *Store) ([]byte, error) {
	out := s.Clone()
	out.SchemaVersion = CurrentSchemaVersion
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding annotations: %w", err)
	}
	return append(data, '\n'), nil
}
