package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
	"github.com/clinicore/booking-api/pkg/jobs"
)

type fakeAuthUserRepo struct {
	users      map[string]*models.User
	byEmail    map[string]*models.User
	resetHash  string
	resetUntil time.Time
}

func newFakeAuthUserRepo() *fakeAuthUserRepo {
	return &fakeAuthUserRepo{users: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (f *fakeAuthUserRepo) add(user *models.User) {
	f.users[user.ID] = user
	f.byEmail[strings.ToLower(user.Email)] = user
}

func (f *fakeAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[strings.ToLower(email)]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthUserRepo) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	user, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return false, nil
	}
	return user.ID != excludeID, nil
}

func (f *fakeAuthUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	f.add(user)
	return nil
}

func (f *fakeAuthUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	user, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeAuthUserRepo) SetResetToken(_ context.Context, id, tokenHash string, until time.Time) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	f.resetHash = tokenHash
	f.resetUntil = until
	return nil
}

func (f *fakeAuthUserRepo) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if f.resetHash == "" || f.resetHash != tokenHash || !f.resetUntil.After(now) {
		return nil, sql.ErrNoRows
	}
	for _, user := range f.users {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAuthUserRepo) ClearResetToken(context.Context, string) error {
	f.resetHash = ""
	return nil
}

type fakeMailQueue struct {
	jobs []jobs.Job
}

func (f *fakeMailQueue) Enqueue(job jobs.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newAuthService(repo *fakeAuthUserRepo, mail *fakeMailQueue) *AuthService {
	var queue mailQueue
	if mail != nil {
		queue = mail
	}
	return NewAuthService(repo, queue, nil, nil, AuthConfig{
		TokenSecret:   "test-secret",
		TokenExpiry:   time.Hour,
		Issuer:        "clinicore-test",
		AdminKey:      "let-me-in",
		ResetBaseURL:  "https://clinic.example.com/reset",
		ResetTokenTTL: 15 * time.Minute,
	})
}

func registerReq() models.RegisterRequest {
	return models.RegisterRequest{
		Username:    "alice",
		Email:       "Alice@Example.com",
		Password:    "password123",
		Age:         30,
		PhoneNumber: "+911234567890",
	}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	info, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.Username)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, models.RolePatient, info.Role)

	stored, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerReq())
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthServiceRegisterAdminKey(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	req := registerReq()
	req.AdminKey = "let-me-in"
	info, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)
}

func TestAuthServiceRegisterWrongAdminKey(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	req := registerReq()
	req.AdminKey = "guessing"
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.EqualValues(t, 3600, resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)
	assert.Equal(t, "clinicore-test", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(newFakeAuthUserRepo(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	info, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), info.ID, models.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := newFakeAuthUserRepo()
	svc := newAuthService(repo, nil)

	info, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), info.ID, models.ChangePasswordRequest{
		OldPassword: "not-it",
		NewPassword: "brand-new-pass",
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthServiceForgotResetRoundTrip(t *testing.T) {
	repo := newFakeAuthUserRepo()
	mail := &fakeMailQueue{}
	svc := newAuthService(repo, mail)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)

	err = svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, mail.jobs, 1)
	assert.Equal(t, JobTypePasswordResetEmail, mail.jobs[0].Type)

	payload, ok := mail.jobs[0].Payload.(PasswordResetEmail)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", payload.To)
	require.Contains(t, payload.ResetURL, "https://clinic.example.com/reset?token=")

	token := strings.TrimPrefix(payload.ResetURL, "https://clinic.example.com/reset?token=")
	digest := sha256.Sum256([]byte(token))
	assert.Equal(t, hex.EncodeToString(digest[:]), repo.resetHash)

	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{
		Token:       token,
		NewPassword: "after-reset-pass",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "alice@example.com", Password: "after-reset-pass"})
	assert.NoError(t, err)
}

func TestAuthServiceForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	mail := &fakeMailQueue{}
	svc := newAuthService(newFakeAuthUserRepo(), mail)

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.NoError(t, err)
	assert.Empty(t, mail.jobs)
}

func TestAuthServiceResetPasswordBadToken(t *testing.T) {
	svc := newAuthService(newFakeAuthUserRepo(), nil)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{
		Token:       "bogus",
		NewPassword: "whatever-pass",
	})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceResetTokenExpires(t *testing.T) {
	repo := newFakeAuthUserRepo()
	mail := &fakeMailQueue{}
	svc := newAuthService(repo, mail)

	_, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "alice@example.com"}))
	require.Len(t, mail.jobs, 1)

	payload := mail.jobs[0].Payload.(PasswordResetEmail)
	token := strings.TrimPrefix(payload.ResetURL, "https://clinic.example.com/reset?token=")

	svc.now = func() time.Time { return time.Now().UTC().Add(16 * time.Minute) }
	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{
		Token:       token,
		NewPassword: "after-reset-pass",
	})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
