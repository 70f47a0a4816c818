package handler

import (
	"log/slog"
	"net/http"
	"time"

	"eventos/internal/delivery/api/response"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	defaultEventPageSize = 20
	maxEventPageSize     = 100
)

// EventHandlerParams holds dependencies for EventHandler, injected by Fx.
type EventHandlerParams struct {
	fx.In

	EventUC usecase.EventUsecase
	Logger  *slog.Logger
}

// EventHandler serves /events.
type EventHandler struct {
	eventUC usecase.EventUsecase
	logger  *slog.Logger
}

func NewEventHandler(params EventHandlerParams) *EventHandler {
	return &EventHandler{
		eventUC: params.EventUC,
		logger:  params.Logger,
	}
}

// ListEventsQuery is bound from the query string.
type ListEventsQuery struct {
	Limit  int  `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int  `query:"offset" validate:"omitempty,min=0"`
	Mine   bool `query:"mine"`
}

type CreateEventRequest struct {
	Name        string    `json:"name" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	DateStart   time.Time `json:"dateStart" validate:"required"`
	DateEnd     time.Time `json:"dateEnd" validate:"required,gtefield=DateStart"`
}

type UpdateEventRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=3,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	DateStart   *time.Time `json:"dateStart"`
	DateEnd     *time.Time `json:"dateEnd"`
}

type PublishEventRequest struct {
	Published *bool `json:"published" validate:"required"`
}

// EventResponse is the public view of an event.
type EventResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	DateStart   time.Time  `json:"dateStart"`
	DateEnd     time.Time  `json:"dateEnd"`
	UserID      *uuid.UUID `json:"userId"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func newEventResponse(event *entity.Event) EventResponse {
	return EventResponse{
		ID:          event.ID,
		Name:        event.Name,
		Slug:        event.Slug,
		Description: event.Description,
		DateStart:   event.DateStart,
		DateEnd:     event.DateEnd,
		UserID:      event.UserID,
		Published:   event.Published,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

// ListEvents shows published events, plus unpublished ones to elevated viewers.
func (h *EventHandler) ListEvents(c echo.Context) error {
	var query ListEventsQuery
	if err := bind(c, &query); err != nil {
		return response.HandleAppError(c, err)
	}
	if query.Limit == 0 {
		query.Limit = defaultEventPageSize
	}
	query.Limit = min(query.Limit, maxEventPageSize)

	events, err := h.eventUC.ListEvents(c.Request().Context(), deliverycontext.GetIdentity(c), &usecase.ListEventsInput{
		Limit:  query.Limit,
		Offset: query.Offset,
		Mine:   query.Mine,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	out := make([]EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, newEventResponse(event))
	}

	return response.Success(c, http.StatusOK, out)
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrEventNotFound)
	}

	event, err := h.eventUC.GetEvent(c.Request().Context(), deliverycontext.GetIdentity(c), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newEventResponse(event))
}

// CreateEvent makes the caller the owner of the new event.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req CreateEventRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	event, err := h.eventUC.CreateEvent(c.Request().Context(), deliverycontext.GetIdentity(c), &usecase.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		DateStart:   req.DateStart,
		DateEnd:     req.DateEnd,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newEventResponse(event))
}

func (h *EventHandler) UpdateEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrEventNotFound)
	}

	var req UpdateEventRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	event, err := h.eventUC.UpdateEvent(c.Request().Context(), id, &usecase.UpdateEventInput{
		Name:        req.Name,
		Description: req.Description,
		DateStart:   req.DateStart,
		DateEnd:     req.DateEnd,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newEventResponse(event))
}

func (h *EventHandler) DeleteEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrEventNotFound)
	}

	if err := h.eventUC.DeleteEvent(c.Request().Context(), id); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, usecase.MessageEventDeleted)
}

// PublishEvent toggles visibility. Defaults to publishing when no body is sent.
func (h *EventHandler) PublishEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrEventNotFound)
	}

	published := true
	if c.Request().ContentLength > 0 {
		var req PublishEventRequest
		if err := bind(c, &req); err != nil {
			return response.HandleAppError(c, err)
		}
		published = *req.Published
	}

	event, err := h.eventUC.SetPublished(c.Request().Context(), id, published)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newEventResponse(event))
}
