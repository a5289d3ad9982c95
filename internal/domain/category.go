package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// CategoryRef is either a bare slug or a resolved category. Clients send
// both shapes; decoding normalizes them here so nothing downstream cares.
type CategoryRef struct {
	slug     string
	resolved *Category
}

func CategorySlug(slug string) CategoryRef {
	return CategoryRef{slug: normalizeSlug(slug)}
}

func ResolvedCategory(c Category) CategoryRef {
	c.Slug = normalizeSlug(c.Slug)
	return CategoryRef{slug: c.Slug, resolved: &c}
}

func (c CategoryRef) Slug() string { return c.slug }

// Resolved returns the full category when known.
func (c CategoryRef) Resolved() (Category, bool) {
	if c.resolved == nil {
		return Category{}, false
	}
	return *c.resolved, true
}

func (c CategoryRef) IsZero() bool { return c.slug == "" && c.resolved == nil }

type categoryJSON struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if c.resolved != nil {
		return json.Marshal(categoryJSON{ID: c.resolved.ID, Name: c.resolved.Name, Slug: c.resolved.Slug})
	}
	return json.Marshal(c.slug)
}

func (c *CategoryRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = CategoryRef{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CategorySlug(s)
		return nil
	}

	var obj categoryJSON
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if strings.TrimSpace(obj.Slug) == "" {
		return errors.New("category object requires a slug")
	}
	*c = ResolvedCategory(Category{ID: obj.ID, Name: obj.Name, Slug: obj.Slug, Active: true})
	return nil
}

func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}
