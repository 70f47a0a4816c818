package impl

import (
	"context"
	"testing"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/infra/auth"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(h *authHarness) *userService {
	return NewUserService(UserServiceParams{
		TxManager:      h.store,
		UserRepo:       h.store.UserRepo(),
		Hasher:         h.hasher,
		TokenGenerator: auth.NewRandomTokenGenerator(),
		Mailer:         h.mailer,
		Logger:         newDiscardLogger(),
	}).(*userService)
}

func identityOf(user *entity.User) *entity.Identity {
	return &entity.Identity{Sub: user.ID.String(), UserID: user.ID, Email: user.Email, Role: user.Role}
}

func ptr[T any](v T) *T {
	return &v
}

func TestUserService_GetUser(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	user := h.seedUser(t, "a@x.com", "alice", testPassword)

	found, err := srv.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Nick)

	_, err = srv.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestUserService_UserRole(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	user := h.seedUser(t, "a@x.com", "alice", testPassword)

	role, ok, err := srv.UserRole(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.RoleUser, role)

	_, ok, err = srv.UserRole(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserService_UpdateUser_NickOnlyKeepsSessions(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	ctx := context.Background()
	user := h.seedUser(t, "a@x.com", "alice", testPassword)

	login, err := h.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: testPassword})
	require.NoError(t, err)

	updated, err := srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Nick: ptr("alicia")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Nick)
	assert.Equal(t, user.TokenVersion, updated.TokenVersion)

	_, err = h.service.ResolveIdentity(ctx, login.AccessToken)
	assert.NoError(t, err)
	assert.Len(t, h.store.refreshRows(user.ID), 1)
}

func TestUserService_UpdateUser_PasswordChangeInvalidatesTokens(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	ctx := context.Background()
	user := h.seedUser(t, "a@x.com", "alice", testPassword)

	login, err := h.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: testPassword})
	require.NoError(t, err)

	_, err = srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Password: ptr("weak")})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	updated, err := srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Password: ptr("Changed99")})
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion+1, updated.TokenVersion)
	assert.Empty(t, h.store.refreshRows(user.ID))

	_, err = h.service.ResolveIdentity(ctx, login.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	_, err = h.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "Changed99"})
	assert.NoError(t, err)
}

func TestUserService_UpdateUser_EmailChangeRequiresVerification(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	ctx := context.Background()
	user := h.seedUser(t, "a@x.com", "alice", testPassword)
	h.seedUser(t, "taken@x.com", "taken", testPassword)

	_, err := srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Email: ptr("taken@x.com")})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateEmail)

	updated, err := srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Email: ptr(" New@X.com ")})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)
	assert.False(t, updated.EmailVerified)
	assert.Nil(t, updated.EmailVerifiedAt)

	token := h.mailer.verificationToken("new@x.com")
	require.NotEmpty(t, token)
	assert.Equal(t, 1, h.store.verificationCount(user.ID, entity.VerificationTokenEmail))

	_, err = h.service.Login(ctx, &usecase.LoginInput{Email: "new@x.com", Password: testPassword})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = h.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
}

func TestUserService_UpdateUser_RoleAndActivationNeedAdmin(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	ctx := context.Background()
	user := h.seedUser(t, "a@x.com", "alice", testPassword)
	moderator := h.seedUser(t, "m@x.com", "mod", testPassword)
	moderator.Role = entity.RoleModerator
	admin := h.seedUser(t, "root@x.com", "root", testPassword)
	admin.Role = entity.RoleAdmin

	_, err := srv.UpdateUser(ctx, identityOf(user), user.ID, &usecase.UpdateUserInput{Role: ptr(entity.RoleAdmin)})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = srv.UpdateUser(ctx, identityOf(moderator), user.ID, &usecase.UpdateUserInput{IsActive: ptr(false)})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = srv.UpdateUser(ctx, identityOf(admin), user.ID, &usecase.UpdateUserInput{Role: ptr(entity.Role("ROOT"))})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	updated, err := srv.UpdateUser(ctx, identityOf(admin), user.ID, &usecase.UpdateUserInput{
		Role:     ptr(entity.RoleModerator),
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, updated.Role)
	assert.False(t, updated.IsActive)
}

func TestUserService_UpdateUser_Missing(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	admin := h.seedUser(t, "root@x.com", "root", testPassword)

	_, err := srv.UpdateUser(context.Background(), identityOf(admin), uuid.New(), &usecase.UpdateUserInput{Nick: ptr("ghost")})
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	_, err = srv.UpdateUser(context.Background(), nil, admin.ID, &usecase.UpdateUserInput{})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestUserService_DeleteUser(t *testing.T) {
	h := newAuthHarness(t)
	srv := newTestUserService(h)
	ctx := context.Background()

	_, err := h.service.Register(ctx, &usecase.RegisterInput{Email: "a@x.com", Nick: "alice", Password: testPassword})
	require.NoError(t, err)
	registered, err := h.store.UserRepo().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = h.service.VerifyEmail(ctx, h.mailer.verificationToken("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, srv.DeleteUser(ctx, registered.ID))
	assert.Empty(t, h.store.refreshRows(registered.ID))
	assert.Zero(t, h.store.verificationCount(registered.ID, entity.VerificationTokenEmail))

	_, err = h.store.UserRepo().FindByID(ctx, registered.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	err = srv.DeleteUser(ctx, registered.ID)
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}
