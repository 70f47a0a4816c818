package impl

import (
	"context"
	"testing"

	"eventos/config"
	"eventos/internal/domain/entity"
	"eventos/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBootstrapper(h *authHarness, admin *config.AdminConfig) *AdminBootstrapper {
	cfg := newTestConfig()
	cfg.Admin = admin

	return NewAdminBootstrapper(AdminBootstrapParams{
		TxManager: h.store,
		Hasher:    h.hasher,
		Config:    cfg,
		Logger:    newDiscardLogger(),
	})
}

func TestAdminBootstrapper_CreatesAdmin(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	b := newTestBootstrapper(h, &config.AdminConfig{Email: " Root@X.com ", Password: "Admin123"})

	require.NoError(t, b.Run(ctx))

	admin, err := h.store.UserRepo().FindByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, admin.Role)
	assert.Equal(t, defaultAdminNick, admin.Nick)
	assert.True(t, admin.EmailVerified)
	assert.True(t, admin.IsActive)

	out, err := h.service.Login(ctx, &usecase.LoginInput{Email: "root@x.com", Password: "Admin123"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, out.User.Role)

	// A second run is a no-op.
	require.NoError(t, b.Run(ctx))
}

func TestAdminBootstrapper_VerifiesExistingAccount(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()

	existing := h.seedUser(t, "root@x.com", "root", testPassword)
	existing.EmailVerified = false
	existing.EmailVerifiedAt = nil
	require.NoError(t, h.store.UserRepo().Update(ctx, existing))

	b := newTestBootstrapper(h, &config.AdminConfig{Email: "root@x.com", Password: "Different1"})
	require.NoError(t, b.Run(ctx))

	stored := h.store.user(existing.ID)
	assert.True(t, stored.EmailVerified)
	assert.Equal(t, entity.RoleUser, stored.Role, "role of an existing account is left alone")

	// The password is untouched too.
	_, err := h.service.Login(ctx, &usecase.LoginInput{Email: "root@x.com", Password: testPassword})
	assert.NoError(t, err)
}

func TestAdminBootstrapper_NickTaken(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.seedUser(t, "someone@x.com", "admin", testPassword)

	b := newTestBootstrapper(h, &config.AdminConfig{Email: "root@x.com", Password: "Admin123"})
	require.NoError(t, b.Run(ctx))

	_, err := h.store.UserRepo().FindByEmail(ctx, "root@x.com")
	assert.Error(t, err)
}

func TestAdminBootstrapper_Skipped(t *testing.T) {
	h := newAuthHarness(t)

	for _, admin := range []*config.AdminConfig{nil, {Email: "root@x.com"}, {Password: "Admin123"}} {
		b := newTestBootstrapper(h, admin)
		require.NoError(t, b.Run(context.Background()))
	}
	assert.Zero(t, h.store.txCount)
}
