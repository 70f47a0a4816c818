package repository

import (
	"context"
	"errors"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrEventNotFound is returned when no event matches the lookup.
	ErrEventNotFound = errors.New("event not found")

	// ErrDuplicateSlug is returned when the slug unique index rejects a write.
	ErrDuplicateSlug = errors.New("duplicate slug")
)

// EventFilter narrows ListEvents.
type EventFilter struct {
	IncludeUnpublished bool
	OwnerID            *uuid.UUID
	Limit              int
	Offset             int
}

// EventRepository persists events.
type EventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	List(ctx context.Context, filter EventFilter) ([]*entity.Event, error)
	Create(ctx context.Context, event *entity.Event) error
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}
