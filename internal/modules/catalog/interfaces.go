package catalog

import (
	"context"
	"encoding/json"

	"boatcatalog/internal/backend"
	domain "boatcatalog/internal/domain/catalog"
)

// Backend is the slice of the catalog REST backend this module uses.
type Backend interface {
	ListModels(ctx context.Context) ([]domain.Model, error)
	GetModel(ctx context.Context, id domain.EntityID) (*domain.Model, error)
	UpdateModel(ctx context.Context, id domain.EntityID, m domain.Model) (*domain.Model, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id domain.EntityID) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id domain.EntityID, c domain.Category) (*domain.Category, error)
	ListEvents(ctx context.Context) ([]json.RawMessage, error)
	ListDealers(ctx context.Context) ([]json.RawMessage, error)
	SubmitContact(ctx context.Context, form backend.ContactForm) error
}

// Publisher receives change notifications for admin dashboards.
type Publisher interface {
	Publish(eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}
