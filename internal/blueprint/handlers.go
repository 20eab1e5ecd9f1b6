package blueprint

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"lifeone/internal/apperr"
	"lifeone/internal/auth"
)

// Handlers serves the blueprint routes for one kind. The server mounts
// two instances, one for programs and one for diets.
type Handlers struct {
	store *Store
	label string // "Program" or "Diet", used in error messages
}

func NewHandlers(store *Store) *Handlers {
	label := "Program"
	if store.kind == KindDiet {
		label = "Diet"
	}
	return &Handlers{store: store, label: label}
}

// Store exposes the underlying document store for the context assembler
// and the profile import path.
func (h *Handlers) Store() *Store { return h.store }

type createRequest struct {
	Name string `json:"name"`
}

type sectionRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Days        []string `json:"days"`
}

type sectionPatch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Days        *[]string `json:"days"`
}

// itemsRequest accepts both camelCase and snake_case spellings of the
// item list for either kind.
type itemsRequest struct {
	ExerciseNames    []string `json:"exerciseNames"`
	ExerciseNamesAlt []string `json:"exercise_names"`
	FoodNames        []string `json:"foodNames"`
	FoodNamesAlt     []string `json:"food_names"`
	AvoidDuplicates  *bool    `json:"avoidDuplicates"`
}

func (r *itemsRequest) names() []string {
	for _, l := range [][]string{r.ExerciseNames, r.ExerciseNamesAlt, r.FoodNames, r.FoodNamesAlt} {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func (r *itemsRequest) avoidDuplicates() bool {
	if r.AvoidDuplicates == nil {
		return true
	}
	return *r.AvoidDuplicates
}

func (h *Handlers) respond(c echo.Context, b *Blueprint) error {
	return c.JSON(http.StatusOK, b.Doc(h.store.kind))
}

// ListHandler returns all blueprints for the authenticated profile.
func (h *Handlers) ListHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	blueprints, err := h.store.List(profileID)
	if err != nil {
		return err
	}
	docs := make([]map[string]any, 0, len(blueprints))
	for _, b := range blueprints {
		docs = append(docs, b.Doc(h.store.kind))
	}
	return c.JSON(http.StatusOK, docs)
}

// GetHandler returns one blueprint by id.
func (h *Handlers) GetHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	b, ok := h.store.Get(profileID, c.Param("blueprint_id"))
	if !ok {
		return apperr.NotFoundf("%s not found", h.label)
	}
	return h.respond(c, b)
}

// CreateHandler creates an empty blueprint with the given name.
func (h *Handlers) CreateHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.Validationf("name is required")
	}
	b := NewEmpty(name)
	if err := h.store.Save(profileID, b); err != nil {
		return err
	}
	return h.respond(c, b)
}

// ImportHandler stores a full blueprint document (e.g. AI-generated)
// after normalization.
func (h *Handlers) ImportHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := c.Bind(&raw); err != nil {
		return apperr.Validationf("invalid request body")
	}
	b := Normalize(raw, h.store.kind)
	if b.Name == "" {
		return apperr.Validationf("name is required")
	}
	if err := h.store.Save(profileID, b); err != nil {
		return err
	}
	return h.respond(c, b)
}

// UpdateHandler renames the blueprint when a non-empty name is supplied.
func (h *Handlers) UpdateHandler(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	return h.mutate(c, func(b *Blueprint) error {
		if name := strings.TrimSpace(req.Name); name != "" {
			b.Name = name
		}
		return nil
	})
}

// DeleteHandler removes the blueprint.
func (h *Handlers) DeleteHandler(c echo.Context) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	deleted, err := h.store.Delete(profileID, c.Param("blueprint_id"))
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFoundf("%s not found", h.label)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// mutate implements the load -> normalize -> patch -> persist cycle every
// blueprint mutation uses. The document is always written back whole.
func (h *Handlers) mutate(c echo.Context, patch func(*Blueprint) error) error {
	profileID, err := auth.ProfileID(c)
	if err != nil {
		return err
	}
	b, ok := h.store.Get(profileID, c.Param("blueprint_id"))
	if !ok {
		return apperr.NotFoundf("%s not found", h.label)
	}
	if err := patch(b); err != nil {
		return err
	}
	if err := h.store.Save(profileID, b); err != nil {
		return err
	}
	return h.respond(c, b)
}

func (h *Handlers) section(b *Blueprint, id string) *Section {
	for i := range b.Sections {
		if b.Sections[i].ID == id {
			return &b.Sections[i]
		}
	}
	return nil
}

// AddSectionHandler appends a new section.
func (h *Handlers) AddSectionHandler(c echo.Context) error {
	var req sectionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	days := req.Days
	if days == nil {
		days = []string{}
	}
	sec := Section{
		ID:          newSectionID(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Days:        days,
		Items:       []string{},
	}
	return h.mutate(c, func(b *Blueprint) error {
		b.Sections = append(b.Sections, sec)
		return nil
	})
}

// UpdateSectionHandler patches only the fields present in the request.
func (h *Handlers) UpdateSectionHandler(c echo.Context) error {
	var req sectionPatch
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	sectionID := c.Param("section_id")
	return h.mutate(c, func(b *Blueprint) error {
		sec := h.section(b, sectionID)
		if sec == nil {
			return apperr.NotFoundf("Section not found")
		}
		if req.Name != nil {
			sec.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			sec.Description = strings.TrimSpace(*req.Description)
		}
		if req.Days != nil {
			sec.Days = *req.Days
		}
		return nil
	})
}

// DeleteSectionHandler removes a section by id.
func (h *Handlers) DeleteSectionHandler(c echo.Context) error {
	sectionID := c.Param("section_id")
	return h.mutate(c, func(b *Blueprint) error {
		kept := b.Sections[:0]
		for _, s := range b.Sections {
			if s.ID != sectionID {
				kept = append(kept, s)
			}
		}
		if len(kept) == len(b.Sections) {
			return apperr.NotFoundf("Section not found")
		}
		b.Sections = kept
		return nil
	})
}

// AddItemsHandler appends item names to a section. Duplicate suppression
// is opt-in per request (avoidDuplicates, default true) and considers
// both existing items and earlier names in the same request.
func (h *Handlers) AddItemsHandler(c echo.Context) error {
	var req itemsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	names := req.names()
	avoid := req.avoidDuplicates()
	sectionID := c.Param("section_id")
	return h.mutate(c, func(b *Blueprint) error {
		sec := h.section(b, sectionID)
		if sec == nil {
			return apperr.NotFoundf("Section not found")
		}
		existing := make(map[string]bool, len(sec.Items))
		for _, n := range sec.Items {
			existing[n] = true
		}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if avoid && existing[n] {
				continue
			}
			sec.Items = append(sec.Items, n)
			existing[n] = true
		}
		return nil
	})
}

// RemoveItemHandler removes every occurrence of the named item.
func (h *Handlers) RemoveItemHandler(c echo.Context) error {
	name := strings.TrimSpace(c.Param("item_name"))
	sectionID := c.Param("section_id")
	return h.mutate(c, func(b *Blueprint) error {
		sec := h.section(b, sectionID)
		if sec == nil {
			return apperr.NotFoundf("Section not found")
		}
		kept := sec.Items[:0]
		for _, n := range sec.Items {
			if n != name {
				kept = append(kept, n)
			}
		}
		sec.Items = kept
		return nil
	})
}

// ReorderItemsHandler replaces the section's item list with the supplied
// order, dropping empty names.
func (h *Handlers) ReorderItemsHandler(c echo.Context) error {
	var req itemsRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validationf("invalid request body")
	}
	names := req.names()
	sectionID := c.Param("section_id")
	return h.mutate(c, func(b *Blueprint) error {
		sec := h.section(b, sectionID)
		if sec == nil {
			return apperr.NotFoundf("Section not found")
		}
		items := make([]string, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				items = append(items, n)
			}
		}
		sec.Items = items
		return nil
	})
}
