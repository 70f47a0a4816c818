package usecase

import (
	"context"
	"time"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

// ListEventsInput pages through events. Mine restricts the list to the viewer's own events.
type ListEventsInput struct {
	Limit  int
	Offset int
	Mine   bool
}

// CreateEventInput defines a new event. Events start unpublished.
type CreateEventInput struct {
	Name        string
	Description string
	DateStart   time.Time
	DateEnd     time.Time
}

// UpdateEventInput holds optional event changes.
type UpdateEventInput struct {
	Name        *string
	Description *string
	DateStart   *time.Time
	DateEnd     *time.Time
}

// EventUsecase is the thin event collaborator the guards protect.
type EventUsecase interface {
	// ListEvents shows published events; elevated viewers also see unpublished ones.
	ListEvents(ctx context.Context, viewer *entity.Identity, input *ListEventsInput) ([]*entity.Event, error)
	GetEvent(ctx context.Context, viewer *entity.Identity, id uuid.UUID) (*entity.Event, error)
	CreateEvent(ctx context.Context, actor *entity.Identity, input *CreateEventInput) (*entity.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, input *UpdateEventInput) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*entity.Event, error)

	// EventOwner returns the owner of an event; found is false when it does not exist.
	EventOwner(ctx context.Context, id uuid.UUID) (owner *uuid.UUID, found bool, err error)
}
