// Package blueprint implements program and diet blueprints: named
// documents of ordered sections, each holding an ordered list of item
// names (exercises or foods). Documents persist as one JSON file per
// (profile, blueprint) under a profile directory.
package blueprint

import (
	"strings"

	"github.com/google/uuid"
)

// Kind selects the document family and the JSON key its sections store
// item names under.
type Kind string

const (
	KindProgram Kind = "program"
	KindDiet    Kind = "diet"
)

// itemKeys returns the canonical item field name and its snake_case
// fallback accepted on read.
func (k Kind) itemKeys() (primary, alt string) {
	if k == KindDiet {
		return "foodNames", "food_names"
	}
	return "exerciseNames", "exercise_names"
}

// Blueprint is the canonical in-memory form of a stored document.
type Blueprint struct {
	ID       string
	Name     string
	Sections []Section
	Meta     map[string]any
}

// Section holds an ordered day list and an ordered item-name list.
type Section struct {
	ID          string
	Name        string
	Description string
	Days        []string
	Items       []string
}

// Doc converts the blueprint back to its JSON document shape, with items
// stored under the kind's canonical field name. Used both for persistence
// and for API responses.
func (b *Blueprint) Doc(kind Kind) map[string]any {
	itemKey, _ := kind.itemKeys()
	sections := make([]map[string]any, 0, len(b.Sections))
	for _, s := range b.Sections {
		days := s.Days
		if days == nil {
			days = []string{}
		}
		items := s.Items
		if items == nil {
			items = []string{}
		}
		sections = append(sections, map[string]any{
			"id":          s.ID,
			"name":        s.Name,
			"description": s.Description,
			"days":        days,
			itemKey:       items,
		})
	}
	doc := map[string]any{
		"id":       b.ID,
		"name":     b.Name,
		"sections": sections,
	}
	if b.Meta != nil {
		doc["meta"] = b.Meta
	}
	return doc
}

func newSectionID() string { return uuid.New().String() }

// clone returns a deep copy so callers can mutate without affecting the
// store cache.
func (b *Blueprint) clone() *Blueprint {
	out := &Blueprint{ID: b.ID, Name: b.Name, Meta: b.Meta}
	out.Sections = make([]Section, len(b.Sections))
	for i, s := range b.Sections {
		cp := s
		cp.Days = append([]string{}, s.Days...)
		cp.Items = append([]string{}, s.Items...)
		out.Sections[i] = cp
	}
	return out
}

// NewEmpty returns a blueprint with a fresh id, the trimmed name, and no
// sections.
func NewEmpty(name string) *Blueprint {
	return &Blueprint{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		Sections: []Section{},
	}
}

// Normalize canonicalizes a loosely-shaped stored document: ids are
// generated where absent, strings trimmed, non-object sections dropped,
// days kept only when already a list, and items kept only when they are
// non-empty strings. Order is preserved and nothing is de-duplicated.
// Normalize is idempotent.
func Normalize(raw map[string]any, kind Kind) *Blueprint {
	primary, alt := kind.itemKeys()

	out := &Blueprint{
		ID:       strings.TrimSpace(asString(raw["id"])),
		Name:     strings.TrimSpace(asString(raw["name"])),
		Sections: []Section{},
	}
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if meta, ok := raw["meta"].(map[string]any); ok {
		out.Meta = meta
	}

	rawSections, _ := raw["sections"].([]any)
	for _, rs := range rawSections {
		obj, ok := rs.(map[string]any)
		if !ok {
			continue
		}
		sec := Section{
			ID:          strings.TrimSpace(asString(obj["id"])),
			Name:        strings.TrimSpace(asString(obj["name"])),
			Description: strings.TrimSpace(asString(obj["description"])),
			Days:        stringList(obj["days"], false),
		}
		if sec.ID == "" {
			sec.ID = uuid.New().String()
		}
		items := obj[primary]
		if items == nil {
			items = obj[alt]
		}
		sec.Items = stringList(items, true)
		out.Sections = append(out.Sections, sec)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// stringList keeps string entries of a JSON list in order. When trim is
// set, entries are trimmed and empties dropped; otherwise entries are
// kept verbatim (day tokens). A non-list input yields an empty list.
func stringList(v any, trim bool) []string {
	list, ok := v.([]any)
	out := []string{}
	if !ok {
		return out
	}
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			continue
		}
		if trim {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
