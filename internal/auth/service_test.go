package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgauth "github.com/cocotrade/ops-backend/pkg/auth"
	"github.com/cocotrade/ops-backend/pkg/auth/session"
	"github.com/cocotrade/ops-backend/pkg/config"
	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "unit-test-secret",
	Issuer:            "cocotrade-ops",
	ExpirationMinutes: 60,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	created   []*models.User
	lastLogin map[uuid.UUID]time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail:   map[string]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
	}
}

func (r *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.created = append(r.created, user)
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.lastLogin[id] = at
	return nil
}

type stubSessionManager struct {
	generated  []string
	revoked    []string
	rotateErr  error
	lastRotate [2]string
}

func (m *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	m.generated = append(m.generated, accessID)
	return "refresh-" + accessID, nil
}

func (m *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if m.rotateErr != nil {
		return "", "", m.rotateErr
	}
	m.lastRotate = [2]string{oldAccessID, provided}
	return "new-access-id", "new-refresh-token", nil
}

func (m *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	return nil
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role enums.UserRole) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Operator",
		Role:         role,
	}
	repo.byEmail[email] = user
	return user
}

func newAuthService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginSuccess(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	user := seedUser(t, repo, "admin@cocotrade.id", "rahasia-123", enums.UserRoleAdmin)
	svc := newAuthService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Admin@CocoTrade.id ",
		Password: "rahasia-123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	require.Len(t, sessions.generated, 1)
	assert.Equal(t, claims.ID, sessions.generated[0])

	_, recorded := repo.lastLogin[user.ID]
	assert.True(t, recorded)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "staff@cocotrade.id", "rahasia-123", enums.UserRoleStaff)
	svc := newAuthService(t, repo, &stubSessionManager{})
	ctx := context.Background()

	cases := []LoginRequest{
		{Email: "staff@cocotrade.id", Password: "salah"},
		{Email: "unknown@cocotrade.id", Password: "rahasia-123"},
		{Email: "", Password: "rahasia-123"},
	}
	for _, req := range cases {
		_, err := svc.Login(ctx, req)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
		assert.Equal(t, invalidCredentialsMessage, appErr.Message())
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	user := seedUser(t, repo, "admin@cocotrade.id", "rahasia-123", enums.UserRoleAdmin)
	svc := newAuthService(t, repo, sessions)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "admin@cocotrade.id", Password: "rahasia-123"})
	require.NoError(t, err)

	resp, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-refresh-token", resp.RefreshToken)
	assert.Equal(t, login.RefreshToken, sessions.lastRotate[1])

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "new-access-id", claims.ID)
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	seedUser(t, repo, "admin@cocotrade.id", "rahasia-123", enums.UserRoleAdmin)
	svc := newAuthService(t, repo, sessions)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: "x"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())

	login, err := svc.Login(ctx, LoginRequest{Email: "admin@cocotrade.id", Password: "rahasia-123"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen-token",
	})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLogout(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newAuthService(t, newStubUserRepo(), sessions)
	ctx := context.Background()

	require.NoError(t, svc.Logout(ctx, "access-1"))
	assert.Equal(t, []string{"access-1"}, sessions.revoked)

	err := svc.Logout(ctx, "  ")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestRegister(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthService(t, repo, &stubSessionManager{})
	ctx := context.Background()

	dto, err := svc.Register(ctx, RegisterRequest{
		Email:    "Staff@CocoTrade.id",
		Password: "rahasia-123",
		FullName: "Staf Gudang",
		Role:     enums.UserRoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "staff@cocotrade.id", dto.Email)
	require.Len(t, repo.created, 1)

	valid, err := security.VerifyPassword("rahasia-123", repo.created[0].PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	// duplicate email
	_, err = svc.Register(ctx, RegisterRequest{
		Email:    "staff@cocotrade.id",
		Password: "rahasia-123",
		FullName: "Lain",
		Role:     enums.UserRoleStaff,
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// weak password and bad role
	_, err = svc.Register(ctx, RegisterRequest{
		Email: "x@y.id", Password: "short", FullName: "X", Role: enums.UserRoleStaff,
	})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.Register(ctx, RegisterRequest{
		Email: "x@y.id", Password: "rahasia-123", FullName: "X", Role: enums.UserRole("owner"),
	})
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
