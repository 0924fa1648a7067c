package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

type fakeUserRepo struct {
	listFn          func(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	findByIDFn      func(ctx context.Context, id string) (*models.User, error)
	existsByEmailFn func(ctx context.Context, email, excludeID string) (bool, error)
	updateFn        func(ctx context.Context, user *models.User) error
	deleteFn        func(ctx context.Context, id string) error
}

func (f *fakeUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return f.listFn(ctx, filter)
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return f.existsByEmailFn(ctx, email, excludeID)
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	return f.updateFn(ctx, user)
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func strPtr(s string) *string { return &s }

func TestUserServiceListDefaultsPagination(t *testing.T) {
	repo := &fakeUserRepo{
		listFn: func(context.Context, models.UserFilter) ([]models.User, int, error) {
			return []models.User{{ID: "user-1"}}, 42, nil
		},
	}
	svc := NewUserService(repo, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestUserServiceGetMissing(t *testing.T) {
	repo := &fakeUserRepo{
		findByIDFn: func(context.Context, string) (*models.User, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceUpdateProfilePartial(t *testing.T) {
	var saved *models.User
	repo := &fakeUserRepo{
		findByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Username: "Alice", Email: "alice@example.com", Age: 30, PhoneNumber: "+911234567890"}, nil
		},
		updateFn: func(_ context.Context, user *models.User) error {
			saved = user
			return nil
		},
	}
	svc := NewUserService(repo, nil, nil)

	age := 31
	user, err := svc.UpdateProfile(context.Background(), "user-1", models.UpdateProfileRequest{Age: &age})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 31, user.Age)
	assert.Equal(t, "Alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestUserServiceUpdateProfileEmailTaken(t *testing.T) {
	repo := &fakeUserRepo{
		findByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "alice@example.com"}, nil
		},
		existsByEmailFn: func(_ context.Context, email, excludeID string) (bool, error) {
			assert.Equal(t, "bob@example.com", email)
			assert.Equal(t, "user-1", excludeID)
			return true, nil
		},
	}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), "user-1", models.UpdateProfileRequest{Email: strPtr("Bob@Example.com")})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestUserServiceUpdateProfileSameEmailSkipsCheck(t *testing.T) {
	repo := &fakeUserRepo{
		findByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "alice@example.com"}, nil
		},
		existsByEmailFn: func(context.Context, string, string) (bool, error) {
			t.Fatal("uniqueness check not expected for an unchanged email")
			return false, nil
		},
		updateFn: func(context.Context, *models.User) error { return nil },
	}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), "user-1", models.UpdateProfileRequest{Email: strPtr("ALICE@example.com")})
	assert.NoError(t, err)
}

func TestUserServiceUpdateProfileRejectsBadPhone(t *testing.T) {
	svc := NewUserService(nil, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), "user-1", models.UpdateProfileRequest{PhoneNumber: strPtr("not-a-number")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUserServiceDeleteMissing(t *testing.T) {
	repo := &fakeUserRepo{
		deleteFn: func(context.Context, string) error {
			return sql.ErrNoRows
		},
	}
	svc := NewUserService(repo, nil, nil)

	err := svc.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
