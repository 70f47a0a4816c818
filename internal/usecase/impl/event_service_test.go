package impl

import (
	"context"
	"regexp"
	"testing"
	"time"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventService(store *memStore) *eventService {
	return NewEventService(EventServiceParams{
		EventRepo: store.EventRepo(),
		Logger:    newDiscardLogger(),
	}).(*eventService)
}

func createTestEvent(t *testing.T, srv *eventService, owner *entity.Identity, name string) *entity.Event {
	t.Helper()

	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	event, err := srv.CreateEvent(context.Background(), owner, &usecase.CreateEventInput{
		Name:      name,
		DateStart: start,
		DateEnd:   start.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	return event
}

func TestEventService_CreateEvent(t *testing.T) {
	srv := newTestEventService(newMemStore())
	owner := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}

	event := createTestEvent(t, srv, owner, "  Rock Night 2026!  ")
	assert.Equal(t, "Rock Night 2026!", event.Name)
	assert.Regexp(t, regexp.MustCompile(`^rock-night-2026-[0-9a-f]{8}$`), event.Slug)
	assert.True(t, event.IsOwnedBy(owner.UserID))
	assert.False(t, event.Published)

	start := time.Now()
	_, err := srv.CreateEvent(context.Background(), owner, &usecase.CreateEventInput{
		Name: "Backwards", DateStart: start, DateEnd: start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = srv.CreateEvent(context.Background(), nil, &usecase.CreateEventInput{Name: "Anon"})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestEventService_Visibility(t *testing.T) {
	srv := newTestEventService(newMemStore())
	ctx := context.Background()

	owner := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}
	stranger := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}
	moderator := &entity.Identity{UserID: uuid.New(), Role: entity.RoleModerator}

	draft := createTestEvent(t, srv, owner, "Draft")
	public := createTestEvent(t, srv, owner, "Public")
	_, err := srv.SetPublished(ctx, public.ID, true)
	require.NoError(t, err)

	tests := []struct {
		name    string
		viewer  *entity.Identity
		visible bool
	}{
		{name: "anonymous", viewer: nil, visible: false},
		{name: "stranger", viewer: stranger, visible: false},
		{name: "owner", viewer: owner, visible: true},
		{name: "moderator", viewer: moderator, visible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.GetEvent(ctx, tt.viewer, draft.ID)
			if tt.visible {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrEventNotFound)
			}

			found, err := srv.GetEvent(ctx, tt.viewer, public.ID)
			require.NoError(t, err)
			assert.True(t, found.Published)
		})
	}
}

func TestEventService_ListEvents(t *testing.T) {
	srv := newTestEventService(newMemStore())
	ctx := context.Background()

	owner := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}
	admin := &entity.Identity{UserID: uuid.New(), Role: entity.RoleAdmin}

	createTestEvent(t, srv, owner, "Draft")
	public := createTestEvent(t, srv, owner, "Public")
	_, err := srv.SetPublished(ctx, public.ID, true)
	require.NoError(t, err)

	anonymous, err := srv.ListEvents(ctx, nil, &usecase.ListEventsInput{})
	require.NoError(t, err)
	assert.Len(t, anonymous, 1)

	elevated, err := srv.ListEvents(ctx, admin, &usecase.ListEventsInput{})
	require.NoError(t, err)
	assert.Len(t, elevated, 2)

	mine, err := srv.ListEvents(ctx, owner, &usecase.ListEventsInput{Mine: true})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	adminOwn, err := srv.ListEvents(ctx, admin, &usecase.ListEventsInput{Mine: true})
	require.NoError(t, err)
	assert.Empty(t, adminOwn)

	_, err = srv.ListEvents(ctx, nil, &usecase.ListEventsInput{Mine: true})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestEventService_UpdateEvent(t *testing.T) {
	srv := newTestEventService(newMemStore())
	ctx := context.Background()
	owner := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}
	event := createTestEvent(t, srv, owner, "Old Name")

	updated, err := srv.UpdateEvent(ctx, event.ID, &usecase.UpdateEventInput{
		Name:        ptr("New Name"),
		Description: ptr("now with a description"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Contains(t, updated.Slug, "new-name-")
	assert.Equal(t, "now with a description", updated.Description)

	_, err = srv.UpdateEvent(ctx, event.ID, &usecase.UpdateEventInput{DateEnd: ptr(event.DateStart.Add(-time.Minute))})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = srv.UpdateEvent(ctx, uuid.New(), &usecase.UpdateEventInput{Name: ptr("ghost")})
	assert.ErrorIs(t, err, domainerrors.ErrEventNotFound)
}

func TestEventService_DeleteEventAndOwner(t *testing.T) {
	srv := newTestEventService(newMemStore())
	ctx := context.Background()
	owner := &entity.Identity{UserID: uuid.New(), Role: entity.RoleUser}
	event := createTestEvent(t, srv, owner, "Doomed")

	ownerID, found, err := srv.EventOwner(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, ownerID)
	assert.Equal(t, owner.UserID, *ownerID)

	require.NoError(t, srv.DeleteEvent(ctx, event.ID))

	_, found, err = srv.EventOwner(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, found)

	err = srv.DeleteEvent(ctx, event.ID)
	assert.ErrorIs(t, err, domainerrors.ErrEventNotFound)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{name: "Hello World", prefix: "hello-world-"},
		{name: "  --Jazz & Blues--  ", prefix: "jazz-blues-"},
		{name: "Café Été", prefix: "café-été-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug := slugify(tt.name)
			assert.Contains(t, slug, tt.prefix)
			assert.Len(t, slug, len(tt.prefix)+slugSuffixLength)
		})
	}

	assert.Len(t, slugify("!!!"), slugSuffixLength)
	assert.NotEqual(t, slugify("same"), slugify("same"))
}
