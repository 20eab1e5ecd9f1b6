package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"lifeone/internal/apperr"
)

const cacheSize = 256

// Store persists blueprints as data/<kind>/<profile_id>/<id>.json.
// There is no locking: concurrent saves of the same id are last-writer-
// wins, acceptable for a single client session per profile.
type Store struct {
	kind  Kind
	root  string
	cache *lru.Cache[string, *Blueprint]
}

// NewStore creates a store rooted at root. Parsed documents are cached;
// the cache is invalidated on save and delete.
func NewStore(kind Kind, root string) *Store {
	cache, err := lru.New[string, *Blueprint](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &Store{kind: kind, root: root, cache: cache}
}

func (s *Store) profileDir(profileID string) string {
	return filepath.Join(s.root, profileID)
}

func (s *Store) path(profileID, id string) string {
	return filepath.Join(s.profileDir(profileID), id+".json")
}

func cacheKey(profileID, id string) string {
	return profileID + "/" + id
}

// validDocID accepts only plain file names so a document id can never
// address a path outside the profile directory.
func validDocID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// List returns all valid blueprints for the profile ordered by document
// id (the filename). Files that fail to parse or lack the minimal
// {id, name, sections} shape are skipped.
func (s *Store) List(profileID string) ([]*Blueprint, error) {
	entries, err := os.ReadDir(s.profileDir(profileID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*Blueprint{}, nil
		}
		return nil, fmt.Errorf("reading blueprint dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*Blueprint, 0, len(names))
	for _, name := range names {
		b, ok := s.load(profileID, strings.TrimSuffix(name, ".json"))
		if !ok {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Get loads one blueprint. The second return is false when the document
// is missing or invalid.
func (s *Store) Get(profileID, id string) (*Blueprint, bool) {
	if !validDocID(id) {
		return nil, false
	}
	if b, ok := s.cache.Get(cacheKey(profileID, id)); ok {
		return b.clone(), true
	}
	b, ok := s.load(profileID, id)
	if !ok {
		return nil, false
	}
	return b.clone(), true
}

func (s *Store) load(profileID, id string) (*Blueprint, bool) {
	data, err := os.ReadFile(s.path(profileID, id))
	if err != nil {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Str("profile_id", profileID).Str("blueprint_id", id).
			Err(err).Msg("skipping unparsable blueprint document")
		return nil, false
	}
	if !hasMinimalShape(raw) {
		log.Warn().Str("profile_id", profileID).Str("blueprint_id", id).
			Msg("skipping blueprint document missing id/name/sections")
		return nil, false
	}
	b := Normalize(raw, s.kind)
	s.cache.Add(cacheKey(profileID, id), b)
	return b, true
}

func hasMinimalShape(raw map[string]any) bool {
	_, hasID := raw["id"]
	_, hasName := raw["name"]
	_, hasSections := raw["sections"]
	return hasID && hasName && hasSections
}

// Save normalizes the blueprint and overwrites the document keyed by
// its id, creating the profile directory on first save. The stored and
// cached forms are both normalized, so a cached Get returns the same
// document a cold read would.
func (s *Store) Save(profileID string, b *Blueprint) error {
	if strings.TrimSpace(b.ID) == "" {
		return apperr.Validationf("blueprint must have id")
	}
	raw, err := json.Marshal(b.Doc(s.kind))
	if err != nil {
		return fmt.Errorf("encoding blueprint: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding blueprint: %w", err)
	}
	norm := Normalize(doc, s.kind)
	if !validDocID(norm.ID) {
		return apperr.Validationf("blueprint id must not contain path separators")
	}
	if err := os.MkdirAll(s.profileDir(profileID), 0o755); err != nil {
		return fmt.Errorf("creating blueprint dir: %w", err)
	}
	data, err := json.MarshalIndent(norm.Doc(s.kind), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding blueprint: %w", err)
	}
	if err := os.WriteFile(s.path(profileID, norm.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing blueprint: %w", err)
	}
	s.cache.Add(cacheKey(profileID, norm.ID), norm)
	return nil
}

// Delete removes the document. Returns false when it does not exist.
func (s *Store) Delete(profileID, id string) (bool, error) {
	if !validDocID(id) {
		return false, nil
	}
	s.cache.Remove(cacheKey(profileID, id))
	err := os.Remove(s.path(profileID, id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting blueprint: %w", err)
	}
	return true, nil
}
