package postgres

import (
	"context"
	"time"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultEventPageSize = 20
	maxEventPageSize     = 100
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository is the constructor for eventRepository.
func NewEventRepository(db *gorm.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	var eventM model.EventModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&eventM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrEventNotFound
		}

		return nil, errors.Wrap(err, "failed to find event by id")
	}

	return toEventDomain(&eventM), nil
}

// List returns events ordered by start date. Unpublished events are only
// included when the filter asks for them.
func (repo *eventRepository) List(ctx context.Context, filter repository.EventFilter) ([]*entity.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventPageSize
	}
	limit = min(limit, maxEventPageSize)

	query := repo.db.WithContext(ctx).Model(&model.EventModel{})
	if !filter.IncludeUnpublished {
		query = query.Where("published = ?", true)
	}
	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}

	var eventMs []*model.EventModel
	err := query.Order("date_start ASC").
		Limit(limit).
		Offset(max(filter.Offset, 0)).
		Find(&eventMs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	events := make([]*entity.Event, 0, len(eventMs))
	for _, eventM := range eventMs {
		events = append(events, toEventDomain(eventM))
	}

	return events, nil
}

func (repo *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	eventM := fromEventDomain(event)

	if err := repo.db.WithContext(ctx).Create(eventM).Error; err != nil {
		return mapEventWriteError(err, "failed to create event")
	}

	event.CreatedAt = eventM.CreatedAt
	event.UpdatedAt = eventM.UpdatedAt

	return nil
}

func (repo *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	eventM := fromEventDomain(event)
	eventM.UpdatedAt = time.Now()

	result := repo.db.WithContext(ctx).
		Model(&model.EventModel{ID: event.ID}).
		Select("name", "slug", "description", "date_start", "date_end", "user_id", "published", "updated_at").
		Updates(eventM)
	if result.Error != nil {
		return mapEventWriteError(result.Error, "failed to update event")
	}
	if result.RowsAffected == 0 {
		return repository.ErrEventNotFound
	}

	event.UpdatedAt = eventM.UpdatedAt

	return nil
}

func (repo *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Delete(&model.EventModel{}, "id = ?", id)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete event")
	}
	if result.RowsAffected == 0 {
		return repository.ErrEventNotFound
	}

	return nil
}

func mapEventWriteError(err error, details string) error {
	switch {
	case isUniqueConstraintViolation(err) && violatesConstraint(err, uniqueEventsSlug):
		return errors.WithStack(repository.ErrDuplicateSlug)
	case isUniqueConstraintViolation(err):
		return domainerrors.ErrConflict.WrapMessage(details)
	case isForeignKeyConstraintViolation(err):
		return domainerrors.ErrUserNotFound.WrapMessage(details)
	case isNotNullConstraintViolation(err), isCheckConstraintViolation(err):
		return domainerrors.ErrValidationFailed.WrapMessage(details)
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}

func toEventDomain(data *model.EventModel) *entity.Event {
	return &entity.Event{
		ID:          data.ID,
		Name:        data.Name,
		Slug:        data.Slug,
		Description: data.Description,
		DateStart:   data.DateStart,
		DateEnd:     data.DateEnd,
		UserID:      data.UserID,
		Published:   data.Published,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

func fromEventDomain(data *entity.Event) *model.EventModel {
	return &model.EventModel{
		ID:          data.ID,
		Name:        data.Name,
		Slug:        data.Slug,
		Description: data.Description,
		DateStart:   data.DateStart,
		DateEnd:     data.DateEnd,
		UserID:      data.UserID,
		Published:   data.Published,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}
