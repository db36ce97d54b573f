package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"forum_backend/internal/feature/forum/adapters"
	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/hash"
	"forum_backend/internal/platform/kv"
)

func ptr[T any](v T) *T { return &v }

func TestStore_AddUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)

	u, err := f.store.AddUser(ctx, entity.NewUser{
		Username: "demo",
		Email:    "Demo@Example.com",
		Name:     "Demo",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "hashed:password123", u.Password, "password is stored as a digest")
	assert.Equal(t, entity.RoleUser, u.Role, "role defaults to user")
	assert.True(t, u.IsActive)
	assert.Nil(t, u.LastActive)
	assert.Equal(t, f.clock.Now(), u.CreatedAt)

	byEmail, err := f.store.GetUserByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestStore_AddUserDuplicate(t *testing.T) {
	tests := []struct {
		name string
		in   entity.NewUser
	}{
		{
			name: "same username",
			in:   entity.NewUser{Username: "demo", Email: "other@example.com", Password: "password123"},
		},
		{
			name: "same email different case",
			in:   entity.NewUser{Username: "other", Email: "DEMO@example.com", Password: "password123"},
		},
		{
			name: "seeded admin username",
			in:   entity.NewUser{Username: "admin", Email: "root@example.com", Password: "password123"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			f := initialized(t)
			f.addUser(t, "demo")

			_, err := f.store.AddUser(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrDuplicateKey)

			users, err := f.store.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 3)
		})
	}
}

func TestStore_AddUserInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   entity.NewUser
	}{
		{name: "empty username", in: entity.NewUser{Email: "a@example.com", Password: "password123"}},
		{name: "username with space", in: entity.NewUser{Username: "a b", Email: "a@example.com", Password: "password123"}},
		{name: "malformed email", in: entity.NewUser{Username: "a", Email: "not-an-email", Password: "password123"}},
		{name: "short password", in: entity.NewUser{Username: "a", Email: "a@example.com", Password: "short"}},
		{name: "password over 72 bytes", in: entity.NewUser{Username: "a", Email: "a@example.com", Password: strings.Repeat("p", 80)}},
		{name: "long username", in: entity.NewUser{Username: strings.Repeat("u", 65), Email: "a@example.com", Password: "password123"}},
		{name: "long email", in: entity.NewUser{Username: "a", Email: strings.Repeat("e", 250) + "@example.com", Password: "password123"}},
		{name: "unknown role", in: entity.NewUser{Username: "a", Email: "a@example.com", Password: "password123", Role: "root"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := initialized(t)

			_, err := f.store.AddUser(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestStore_AddUserConcurrentSameUsername(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.AddUser(ctx, entity.NewUser{Username: "race", Email: "race@example.com", Password: "password123"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, domain.ErrDuplicateKey):
				duplicate++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, duplicate)
}

func TestStore_UpdateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)
	u := f.addUser(t, "demo")
	f.clock.Advance(time.Minute)

	updated, err := f.store.UpdateUser(ctx, u.ID, entity.UserPatch{
		Name:     ptr("Demo Person"),
		Email:    ptr("new@example.com"),
		Password: ptr("new-password"),
		Role:     ptr(entity.RoleModerator),
	})
	require.NoError(t, err)

	assert.Equal(t, "Demo Person", updated.Name)
	assert.Equal(t, "demo", updated.Username, "untouched fields are kept")
	assert.Equal(t, "hashed:new-password", updated.Password)
	assert.Equal(t, entity.RoleModerator, updated.Role)
	assert.Equal(t, u.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	_, err = f.store.GetUserByEmail(ctx, "demo@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound, "old email index is released")
	got, err := f.store.GetUserByEmail(ctx, "NEW@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestStore_UpdateUserErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)
	u := f.addUser(t, "demo")

	_, err := f.store.UpdateUser(ctx, "missing", entity.UserPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.store.UpdateUser(ctx, u.ID, entity.UserPatch{Username: ptr("admin")})
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	_, err = f.store.UpdateUser(ctx, u.ID, entity.UserPatch{Email: ptr("Guest@forum.local")})
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	_, err = f.store.UpdateUser(ctx, u.ID, entity.UserPatch{Role: ptr(entity.Role("root"))})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.store.UpdateUser(ctx, u.ID, entity.UserPatch{Password: ptr(strings.Repeat("p", 73))})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	got, err := f.store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got, "failed updates leave the record untouched")
}

func TestStore_DeleteUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)
	u := f.addUser(t, "demo")
	f.clock.Advance(time.Hour)

	deleted, err := f.store.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.store.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete finds nothing")

	_, err = f.store.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.store.ListUsersWithDeleted(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	last := all[2]
	assert.Equal(t, u.ID, last.ID)
	require.NotNil(t, last.DeletedAt)
	assert.Equal(t, f.clock.Now(), *last.DeletedAt)

	// uniqueness only covers live users
	again := f.addUser(t, "demo")
	assert.NotEqual(t, u.ID, again.ID)
}

func TestStore_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := initialized(t)
	u := f.addUser(t, "demo")
	inactive := f.addUser(t, "sleepy")
	_, err := f.store.UpdateUser(ctx, inactive.ID, entity.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{name: "username", login: "demo", password: "password-demo"},
		{name: "email any case", login: "DEMO@example.com", password: "password-demo"},
		{name: "wrong password", login: "demo", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", login: "ghost", password: "password-demo", wantErr: domain.ErrInvalidCredentials},
		{name: "inactive user", login: "sleepy", password: "password-sleepy", wantErr: domain.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.store.Authenticate(ctx, tt.login, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)
			require.NotNil(t, got.LastActive)
			assert.Equal(t, f.clock.Now(), *got.LastActive)
		})
	}
}

type failingHasher struct{ *fakeHasher }

func (failingHasher) Hash(string) (string, error) { return "", assert.AnError }

func TestStore_HasherErrorIsReturnedAsIs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := kv.NewMemoryBackend()
	store := usecase.NewStore(adapters.NewRepositories(b, ""), adapters.NewLocker(b, ""), failingHasher{&fakeHasher{}}, usecase.Options{})

	_, err := store.AddUser(ctx, entity.NewUser{Username: "demo", Email: "demo@example.com", Password: "password123"})
	assert.Equal(t, assert.AnError, err)
	_, err = store.UpdateUser(ctx, "u1", entity.UserPatch{Password: ptr("password123")})
	assert.Equal(t, assert.AnError, err)
	assert.Equal(t, assert.AnError, store.ResetPassword(ctx, "token", "password123"))
}

func TestStore_LongPasswordWithBcryptIsInvalidArgument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := kv.NewMemoryBackend()
	store := usecase.NewStore(adapters.NewRepositories(b, ""), adapters.NewLocker(b, ""), hash.NewBcrypt(bcrypt.MinCost), usecase.Options{})

	_, err := store.AddUser(ctx, entity.NewUser{Username: "demo", Email: "demo@example.com", Password: strings.Repeat("p", 80)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	u, err := store.AddUser(ctx, entity.NewUser{Username: "demo", Email: "demo@example.com", Password: strings.Repeat("p", 72)})
	require.NoError(t, err, "72 bytes is still accepted")
	token, err := store.IssueResetToken(ctx, u.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, store.ResetPassword(ctx, token, strings.Repeat("q", 73)), domain.ErrInvalidArgument)
}

func TestStore_SeededAdminLogsInWithBcrypt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := kv.NewMemoryBackend()
	store := usecase.NewStore(adapters.NewRepositories(b, ""), adapters.NewLocker(b, ""), hash.NewBcrypt(bcrypt.MinCost), usecase.Options{
		Seed: usecase.SeedOptions{AdminPassword: "s3cret-admin"},
	})

	u, err := store.Authenticate(ctx, "admin", "s3cret-admin")
	require.NoError(t, err, "first call initializes lazily")
	assert.Equal(t, entity.RoleAdmin, u.Role)
	assert.NotEqual(t, "s3cret-admin", u.Password)

	_, err = store.Authenticate(ctx, "guest", usecase.DefaultGuestPassword)
	assert.NoError(t, err)
}
