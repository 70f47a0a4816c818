package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventos/config"
	"eventos/internal/domain/entity"
	"eventos/internal/domain/repository"
	"eventos/internal/domain/service"
	"eventos/internal/infra/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		SecretKey: config.SecretKey{
			Access:  "test_access_secret_key_very_long_for_testing",
			Refresh: "test_refresh_secret_key_very_long_for_testing",
		},
		Auth: &config.AuthConfig{
			BcryptCost:                bcrypt.MinCost,
			AccessTokenTTL:            15 * time.Minute,
			RefreshTokenTTL:           "7d",
			EmailVerificationTTL:      24 * time.Hour,
			PasswordResetTTL:          time.Hour,
			RevokedRetention:          7 * 24 * time.Hour,
			ForgotPasswordMinDuration: 50 * time.Millisecond,
		},
	}
}

// --- mail ---

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendVerificationEmail(ctx context.Context, email, nick, token string) bool {
	return m.Called(ctx, email, nick, token).Bool(0)
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, email, nick, token string) bool {
	return m.Called(ctx, email, nick, token).Bool(0)
}

func (m *mockMailer) SendWelcomeEmail(ctx context.Context, email, nick string) bool {
	return m.Called(ctx, email, nick).Bool(0)
}

// recordingMailer accepts every mail and remembers the last token per address.
type recordingMailer struct {
	mu            sync.Mutex
	verifications map[string]string
	resets        map[string]string
	welcomes      []string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verifications: map[string]string{}, resets: map[string]string{}}
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email, _, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[email] = token

	return true
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, email, _, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token

	return true
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, email, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, email)

	return true
}

func (m *recordingMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.verifications[email]
}

func (m *recordingMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resets[email]
}

// --- harness ---

type authHarness struct {
	store   *memStore
	mailer  *recordingMailer
	tokens  service.TokenService
	hasher  service.PasswordHasher
	service *authService
	cfg     *config.Config
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	cfg := newTestConfig()
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	store := newMemStore()
	mailer := newRecordingMailer()
	hasher := auth.NewBcryptHasher(cfg)

	srv := newAuthService(AuthServiceParams{
		TxManager:      store,
		UserRepo:       store.UserRepo(),
		Hasher:         hasher,
		TokenService:   tokens,
		TokenGenerator: auth.NewRandomTokenGenerator(),
		Mailer:         mailer,
		Config:         cfg,
		Logger:         newDiscardLogger(),
	})

	return &authHarness{store: store, mailer: mailer, tokens: tokens, hasher: hasher, service: srv, cfg: cfg}
}

// seedUser stores a verified, active LOCAL user with the given password.
func (h *authHarness) seedUser(t *testing.T, email, nick, password string) *entity.User {
	t.Helper()

	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)

	user := &entity.User{
		Email:        email,
		Nick:         nick,
		PasswordHash: &hash,
		Role:         entity.RoleUser,
		Provider:     entity.ProviderLocal,
		IsActive:     true,
	}
	user.MarkEmailVerified(time.Now())
	require.NoError(t, h.store.UserRepo().Create(context.Background(), user))

	return user
}

// --- in-memory repositories ---

// memStore is an in-memory TransactionManager and RepositoryFactory. Execute
// snapshots the tables and restores them when fn fails.
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]entity.User
	refreshTokens map[uuid.UUID]entity.RefreshToken
	verifications map[uuid.UUID]entity.VerificationToken
	events        map[uuid.UUID]entity.Event
	txCount       int
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uuid.UUID]entity.User{},
		refreshTokens: map[uuid.UUID]entity.RefreshToken{},
		verifications: map[uuid.UUID]entity.VerificationToken{},
		events:        map[uuid.UUID]entity.Event{},
	}
}

func (s *memStore) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	s.mu.Lock()
	s.txCount++
	users := cloneMap(s.users)
	refreshTokens := cloneMap(s.refreshTokens)
	verifications := cloneMap(s.verifications)
	events := cloneMap(s.events)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.refreshTokens, s.verifications, s.events = users, refreshTokens, verifications, events
		s.mu.Unlock()

		return err
	}

	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

func (s *memStore) UserRepo() repository.UserRepository                 { return memUserRepo{s} }
func (s *memStore) RefreshTokenRepo() repository.RefreshTokenRepository { return memRefreshRepo{s} }
func (s *memStore) VerificationTokenRepo() repository.VerificationTokenRepository {
	return memVerificationRepo{s}
}
func (s *memStore) EventRepo() repository.EventRepository { return memEventRepo{s} }

func (s *memStore) refreshRows(userID uuid.UUID) []entity.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []entity.RefreshToken
	for _, row := range s.refreshTokens {
		if row.UserID == userID {
			rows = append(rows, row)
		}
	}

	return rows
}

func (s *memStore) user(id uuid.UUID) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.users[id]
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			found := u

			return &found, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r memUserRepo) FindByNick(_ context.Context, nick string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Nick == nick })
}

func (r memUserRepo) checkUnique(user *entity.User) error {
	for _, u := range r.s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Nick == user.Nick {
			return repository.ErrDuplicateNick
		}
	}

	return nil
}

func (r memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user

	return nil
}

func (r memUserRepo) Update(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	r.s.users[user.ID] = *user

	return nil
}

func (r memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.s.users, id)

	return nil
}

type memRefreshRepo struct{ s *memStore }

func (r memRefreshRepo) CreateRefreshToken(_ context.Context, token *entity.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.refreshTokens {
		if row.TokenHash == token.TokenHash {
			return repository.ErrRefreshTokenAlreadyRevoked
		}
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	r.s.refreshTokens[token.ID] = *token

	return nil
}

func (r memRefreshRepo) FindRefreshTokenByHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.refreshTokens {
		if row.TokenHash == tokenHash {
			found := row

			return &found, nil
		}
	}

	return nil, repository.ErrRefreshTokenNotFound
}

func (r memRefreshRepo) FindRefreshTokenByID(_ context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.refreshTokens[id]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}

	return &row, nil
}

func (r memRefreshRepo) FindLiveRefreshTokensByUserID(_ context.Context, userID uuid.UUID, now time.Time) ([]*entity.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []*entity.RefreshToken
	for _, row := range r.s.refreshTokens {
		if row.UserID == userID && row.IsLive(now) {
			found := row
			rows = append(rows, &found)
		}
	}

	return rows, nil
}

func (r memRefreshRepo) MarkRotated(_ context.Context, id uuid.UUID, revokedAt time.Time, successorHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.refreshTokens[id]
	if !ok || row.RevokedAt != nil {
		return repository.ErrRefreshTokenAlreadyRevoked
	}
	row.RevokedAt = &revokedAt
	row.ReplacedByTokenHash = &successorHash
	r.s.refreshTokens[id] = row

	return nil
}

func (r memRefreshRepo) DeleteRefreshToken(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refreshTokens[id]; !ok {
		return repository.ErrRefreshTokenNotFound
	}
	delete(r.s.refreshTokens, id)

	return nil
}

func (r memRefreshRepo) deleteWhere(match func(entity.RefreshToken) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, row := range r.s.refreshTokens {
		if match(row) {
			delete(r.s.refreshTokens, id)
			n++
		}
	}

	return n
}

func (r memRefreshRepo) DeleteRefreshTokenByHash(_ context.Context, tokenHash string) (int64, error) {
	return r.deleteWhere(func(row entity.RefreshToken) bool { return row.TokenHash == tokenHash }), nil
}

func (r memRefreshRepo) DeleteRefreshTokensByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(func(row entity.RefreshToken) bool { return row.UserID == userID }), nil
}

func (r memRefreshRepo) DeleteStaleRefreshTokens(_ context.Context, now, revokedBefore time.Time) (int64, error) {
	return r.deleteWhere(func(row entity.RefreshToken) bool {
		return row.ExpiresAt.Before(now) || (row.RevokedAt != nil && row.RevokedAt.Before(revokedBefore))
	}), nil
}

type memVerificationRepo struct{ s *memStore }

func (r memVerificationRepo) Create(_ context.Context, token *entity.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	r.s.verifications[token.ID] = *token

	return nil
}

func (r memVerificationRepo) FindByToken(_ context.Context, token string) (*entity.VerificationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.verifications {
		if row.Token == token {
			found := row

			return &found, nil
		}
	}

	return nil, repository.ErrVerificationTokenNotFound
}

func (r memVerificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.verifications, id)

	return nil
}

func (r memVerificationRepo) DeleteByUserAndType(_ context.Context, userID uuid.UUID, tokenType entity.VerificationTokenType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, row := range r.s.verifications {
		if row.UserID == userID && row.Type == tokenType {
			delete(r.s.verifications, id)
		}
	}

	return nil
}

func (r memVerificationRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, row := range r.s.verifications {
		if row.UserID == userID {
			delete(r.s.verifications, id)
		}
	}

	return nil
}

func (s *memStore) verificationCount(userID uuid.UUID, tokenType entity.VerificationTokenType) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, row := range s.verifications {
		if row.UserID == userID && row.Type == tokenType {
			n++
		}
	}

	return n
}

type memEventRepo struct{ s *memStore }

func (r memEventRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event, ok := r.s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}

	return &event, nil
}

func (r memEventRepo) List(_ context.Context, filter repository.EventFilter) ([]*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var events []*entity.Event
	for _, event := range r.s.events {
		if !filter.IncludeUnpublished && !event.Published {
			continue
		}
		if filter.OwnerID != nil && !event.IsOwnedBy(*filter.OwnerID) {
			continue
		}
		found := event
		events = append(events, &found)
	}

	return events, nil
}

func (r memEventRepo) Create(_ context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	for _, existing := range r.s.events {
		if existing.Slug == event.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	r.s.events[event.ID] = *event

	return nil
}

func (r memEventRepo) Update(_ context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[event.ID]; !ok {
		return repository.ErrEventNotFound
	}
	r.s.events[event.ID] = *event

	return nil
}

func (r memEventRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(r.s.events, id)

	return nil
}
