package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/terpspark/admission-service/internal/domain"
)

func (s *Service) ListCategories(ctx context.Context, actor domain.Actor) ([]domain.Category, error) {
	var out []domain.Category
	err := s.run(ctx, "list_categories", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListCategories(ctx, !actor.IsAdmin())
		return err
	})
	return out, err
}

func (s *Service) CreateCategory(ctx context.Context, actor domain.Actor, name, color string) (domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.Invalid("name", "required")
	}
	c := domain.Category{
		ID:     uuid.New(),
		Name:   name,
		Slug:   domain.CategorySlug(name).Slug(),
		Color:  strings.TrimSpace(color),
		Active: true,
	}
	err := s.atomic(ctx, "create_category", func(ctx context.Context, tx domain.Tx) error {
		if err := tx.InsertCategory(ctx, c); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, domain.ActionCategoryCreated, actor, "category", c.ID, fmt.Sprintf("created category %q", c.Name))
	})
	if err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

// ToggleCategory flips the active flag. Inactive categories accept no new events.
func (s *Service) ToggleCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Category{}, err
	}
	var out domain.Category
	err := s.atomic(ctx, "toggle_category", func(ctx context.Context, tx domain.Tx) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		c.Active = !c.Active
		if err := tx.UpdateCategory(ctx, c); err != nil {
			return err
		}
		out = c
		return s.appendAudit(ctx, tx, domain.ActionCategoryToggled, actor, "category", c.ID, fmt.Sprintf("category %q active=%t", c.Name, c.Active))
	})
	return out, err
}

func (s *Service) ListVenues(ctx context.Context, actor domain.Actor) ([]domain.Venue, error) {
	var out []domain.Venue
	err := s.run(ctx, "list_venues", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListVenues(ctx, !actor.IsAdmin())
		return err
	})
	return out, err
}

func (s *Service) CreateVenue(ctx context.Context, actor domain.Actor, name, building string, capacity int) (domain.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Venue{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Venue{}, domain.Invalid("name", "required")
	}
	if capacity < 0 {
		return domain.Venue{}, domain.Invalid("capacity", "must be >= 0")
	}
	v := domain.Venue{ID: uuid.New(), Name: name, Building: strings.TrimSpace(building), Capacity: capacity, Active: true}
	err := s.atomic(ctx, "create_venue", func(ctx context.Context, tx domain.Tx) error {
		if err := tx.InsertVenue(ctx, v); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, domain.ActionVenueCreated, actor, "venue", v.ID, fmt.Sprintf("created venue %q", v.Name))
	})
	if err != nil {
		return domain.Venue{}, err
	}
	return v, nil
}

func (s *Service) ToggleVenue(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Venue, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Venue{}, err
	}
	var out domain.Venue
	err := s.atomic(ctx, "toggle_venue", func(ctx context.Context, tx domain.Tx) error {
		v, err := tx.GetVenue(ctx, id)
		if err != nil {
			return err
		}
		v.Active = !v.Active
		if err := tx.UpdateVenue(ctx, v); err != nil {
			return err
		}
		out = v
		return s.appendAudit(ctx, tx, domain.ActionVenueToggled, actor, "venue", v.ID, fmt.Sprintf("venue %q active=%t", v.Name, v.Active))
	})
	return out, err
}
