package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/pkg/config"
	appErrors "github.com/ihu-online/admissions-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]*models.AdminUser
	audits     []*models.AuditLog
	lastLogins []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "admissions-api"}
}

func adminUser(t *testing.T, password string) *models.AdminUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.AdminUser{
		ID:           "admin-1",
		Email:        "admin@example.com",
		FullName:     "Site Admin",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.AdminUser{"admin@example.com": adminUser(t, "s3cret")}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), jwtTestConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Admin@Example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "admin-1", res.User.ID)
	assert.Equal(t, []string{"admin-1"}, repo.lastLogins)
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.AdminUser{"admin@example.com": adminUser(t, "s3cret")}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), jwtTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.AdminUser{}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), jwtTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := adminUser(t, "s3cret")
	user.Active = false
	repo := &mockUserRepo{users: map[string]*models.AdminUser{"admin@example.com": user}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), jwtTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "s3cret"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), jwtTestConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
