package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"boatcatalog/internal/backend"
	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/modules/live"
)

type Service struct {
	backend     Backend
	transformer *domain.Transformer
	publisher   Publisher
}

func NewService(b Backend, t *domain.Transformer, p Publisher) *Service {
	if p == nil {
		p = noopPublisher{}
	}
	return &Service{backend: b, transformer: t, publisher: p}
}

/* ---------- PUBLIC READS ---------- */

// ListModels returns every model in view form, optionally restricted to
// one category.
func (s *Service) ListModels(ctx context.Context, categoryID domain.EntityID) ([]domain.ModelView, error) {
	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ModelView, 0, len(models))
	for _, m := range models {
		if categoryID != "" && m.CategoryID != categoryID {
			continue
		}
		out = append(out, s.transformer.ToViewModelInCategory(m, names[m.CategoryID]))
	}
	return out, nil
}

// GetModel finds a model by id or, case-insensitively, by short code.
func (s *Service) GetModel(ctx context.Context, key string) (*domain.ModelView, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrModelNotFound
	}

	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range models {
		if string(m.ID) == key || strings.EqualFold(strings.TrimSpace(m.Name), key) {
			names, err := s.categoryNames(ctx)
			if err != nil {
				return nil, err
			}
			view := s.transformer.ToViewModelInCategory(m, names[m.CategoryID])
			return &view, nil
		}
	}
	return nil, ErrModelNotFound
}

// ListCategories returns categories with their models joined in. An
// empty group returns every category.
func (s *Service) ListCategories(ctx context.Context, group string) ([]domain.CategoryView, error) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	var want domain.MainGroup
	if strings.TrimSpace(group) != "" {
		want = domain.ParseMainGroup(group)
	}

	out := make([]domain.CategoryView, 0, len(categories))
	for _, c := range categories {
		view := s.transformer.ToCategoryView(c, models)
		if want != "" && view.MainGroup != want {
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, id domain.EntityID) (*domain.CategoryView, error) {
	c, err := s.backend.GetCategory(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	view := s.transformer.ToCategoryView(*c, models)
	return &view, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]json.RawMessage, error) {
	return s.backend.ListEvents(ctx)
}

func (s *Service) ListDealers(ctx context.Context) ([]json.RawMessage, error) {
	return s.backend.ListDealers(ctx)
}

func (s *Service) SubmitContact(ctx context.Context, req ContactRequest) error {
	return s.backend.SubmitContact(ctx, req.toForm())
}

/* ---------- ADMIN WRITES ---------- */

// ModelPayload returns the stored model in the canonical shape it would be
// written back in.
func (s *Service) ModelPayload(ctx context.Context, id domain.EntityID) (*domain.Model, error) {
	m, err := s.getModel(ctx, id)
	if err != nil {
		return nil, err
	}
	payload := s.transformer.ToBackendPayload(*m)
	return &payload, nil
}

// UpdateModel writes the admin's edit state. The edits arrive in view form,
// are merged onto the stored model and are reduced to stored references
// before they reach the backend.
func (s *Service) UpdateModel(ctx context.Context, id domain.EntityID, edits domain.ModelView) (*domain.ModelView, error) {
	if edits.ID != "" && edits.ID != id {
		return nil, ErrIDMismatch
	}
	edits.ID = id

	stored, err := s.getModel(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := s.transformer.ToBackendPayload(s.transformer.ApplyEdits(*stored, edits))
	return s.writeModel(ctx, id, payload)
}

// AttachUpload stores ref in one media field of the model and writes it.
func (s *Service) AttachUpload(ctx context.Context, id domain.EntityID, field, ref string) (*domain.ModelView, error) {
	m, err := s.getModel(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.ApplyUpload(m, field, ref); err != nil {
		return nil, err
	}

	payload := s.transformer.ToBackendPayload(*m)
	return s.writeModel(ctx, id, payload)
}

func (s *Service) UpdateCategory(ctx context.Context, id domain.EntityID, c domain.Category) (*domain.CategoryView, error) {
	if c.ID != "" && c.ID != id {
		return nil, ErrIDMismatch
	}
	c.ID = id

	payload := s.transformer.ToCategoryPayload(c)
	updated, err := s.backend.UpdateCategory(ctx, id, payload)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category %s: %w", id, err)
	}
	if updated == nil || updated.Name == "" {
		updated = &payload
	}

	models, err := s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	view := s.transformer.ToCategoryView(*updated, models)

	log.Printf("catalog_update kind=category id=%s name=%q", id, view.Name)
	s.publisher.Publish(live.EventCategoryUpdated, view)
	return &view, nil
}

func (s *Service) getModel(ctx context.Context, id domain.EntityID) (*domain.Model, error) {
	m, err := s.backend.GetModel(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) writeModel(ctx context.Context, id domain.EntityID, payload domain.Model) (*domain.ModelView, error) {
	updated, err := s.backend.UpdateModel(ctx, id, payload)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("update model %s: %w", id, err)
	}
	// Some backend versions answer writes with an empty body.
	if updated == nil || updated.Name == "" {
		updated = &payload
	}

	names, err := s.categoryNames(ctx)
	if err != nil {
		log.Printf("catalog_update_warning kind=model id=%s error=%v", id, err)
	}
	view := s.transformer.ToViewModelInCategory(*updated, names[updated.CategoryID])
	log.Printf("catalog_update kind=model id=%s name=%q", id, view.Name)
	s.publisher.Publish(live.EventModelUpdated, view)
	return &view, nil
}

func (s *Service) categoryNames(ctx context.Context) (map[domain.EntityID]string, error) {
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[domain.EntityID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = strings.TrimSpace(c.Name)
	}
	return names, nil
}
