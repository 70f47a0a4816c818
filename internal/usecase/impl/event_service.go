package impl

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const slugSuffixLength = 8

// eventService implements usecase.EventUsecase.
type eventService struct {
	eventRepo repository.EventRepository
	logger    *slog.Logger
}

// EventServiceParams holds dependencies for EventService, injected by Fx.
type EventServiceParams struct {
	fx.In

	EventRepo repository.EventRepository
	Logger    *slog.Logger
}

// NewEventService is the constructor for eventService.
func NewEventService(params EventServiceParams) usecase.EventUsecase {
	return &eventService{
		eventRepo: params.EventRepo,
		logger:    params.Logger,
	}
}

func (srv *eventService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *eventService) ListEvents(ctx context.Context, viewer *entity.Identity, input *usecase.ListEventsInput) ([]*entity.Event, error) {
	filter := repository.EventFilter{
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if viewer != nil && viewer.Role.IsElevated() {
		filter.IncludeUnpublished = true
	}
	if input.Mine {
		if viewer == nil {
			return nil, errors.WithStack(domainerrors.ErrUnauthorized)
		}
		filter.OwnerID = &viewer.UserID
		filter.IncludeUnpublished = true
	}

	events, err := srv.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	return events, nil
}

// GetEvent hides unpublished events from everyone but their owner and elevated roles.
func (srv *eventService) GetEvent(ctx context.Context, viewer *entity.Identity, id uuid.UUID) (*entity.Event, error) {
	event, err := srv.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if !event.Published {
		visible := viewer != nil && (viewer.Role.IsElevated() || event.IsOwnedBy(viewer.UserID))
		if !visible {
			return nil, errors.Wrap(domainerrors.ErrEventNotFound, id.String())
		}
	}

	return event, nil
}

func (srv *eventService) CreateEvent(ctx context.Context, actor *entity.Identity, input *usecase.CreateEventInput) (*entity.Event, error) {
	if actor == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized)
	}
	if input.DateEnd.Before(input.DateStart) {
		return nil, domainerrors.ErrValidationFailed.WithDetails("dateEnd must not be before dateStart")
	}

	owner := actor.UserID
	event := &entity.Event{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slugify(input.Name),
		Description: input.Description,
		DateStart:   input.DateStart,
		DateEnd:     input.DateEnd,
		UserID:      &owner,
	}

	if err := srv.eventRepo.Create(ctx, event); err != nil {
		return nil, translateEventWriteError(err, "failed to create event")
	}
	srv.log(ctx).Info("Event created", slog.Any("event_id", event.ID), slog.Any("owner_id", owner))

	return event, nil
}

func (srv *eventService) UpdateEvent(ctx context.Context, id uuid.UUID, input *usecase.UpdateEventInput) (*entity.Event, error) {
	event, err := srv.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != event.Name {
			event.Name = name
			event.Slug = slugify(name)
		}
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.DateStart != nil {
		event.DateStart = *input.DateStart
	}
	if input.DateEnd != nil {
		event.DateEnd = *input.DateEnd
	}
	if event.DateEnd.Before(event.DateStart) {
		return nil, domainerrors.ErrValidationFailed.WithDetails("dateEnd must not be before dateStart")
	}

	if err := srv.eventRepo.Update(ctx, event); err != nil {
		return nil, translateEventWriteError(err, "failed to update event")
	}

	return event, nil
}

func (srv *eventService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := srv.eventRepo.Delete(ctx, id); err != nil {
		return translateEventWriteError(err, "failed to delete event")
	}
	srv.log(ctx).Info("Event deleted", slog.Any("event_id", id))

	return nil
}

func (srv *eventService) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*entity.Event, error) {
	event, err := srv.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Published = published
	if err := srv.eventRepo.Update(ctx, event); err != nil {
		return nil, translateEventWriteError(err, "failed to publish event")
	}

	return event, nil
}

func (srv *eventService) EventOwner(ctx context.Context, id uuid.UUID) (*uuid.UUID, bool, error) {
	event, err := srv.eventRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, false, nil
		}

		return nil, false, errors.Wrap(err, "failed to find event owner")
	}

	return event.UserID, true, nil
}

func (srv *eventService) findEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	event, err := srv.eventRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, errors.Wrap(domainerrors.ErrEventNotFound, id.String())
		}

		return nil, errors.Wrap(err, "failed to find event")
	}

	return event, nil
}

func translateEventWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return errors.Wrap(domainerrors.ErrEventNotFound, message)
	case errors.Is(err, repository.ErrDuplicateSlug):
		return errors.Wrap(domainerrors.ErrConflict, message)
	default:
		return errors.Wrap(err, message)
	}
}

// slugify lowercases name, collapses every non-alphanumeric run into one dash
// and appends a random suffix so equal names still get distinct slugs.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false

			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	base := strings.TrimSuffix(b.String(), "-")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:slugSuffixLength]
	if base == "" {
		return suffix
	}

	return base + "-" + suffix
}
