package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forum_backend/internal/feature/forum/adapters"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/kv"
)

// fakeHasher is a fast, deterministic Hasher that counts Hash calls.
type fakeHasher struct {
	calls atomic.Int32
}

func (h *fakeHasher) Hash(password string) (string, error) {
	h.calls.Add(1)
	return "hashed:" + password, nil
}

func (h *fakeHasher) Compare(digest, password string) error {
	if digest != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

func (h *fakeHasher) IsDigest(s string) bool {
	return strings.HasPrefix(s, "hashed:")
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingSystem counts init markers written, one per seeding pass.
type countingSystem struct {
	usecase.SystemRepository
	markers atomic.Int32
}

func (s *countingSystem) SaveMarker(ctx context.Context, m *entity.InitMarker) error {
	s.markers.Add(1)
	return s.SystemRepository.SaveMarker(ctx, m)
}

// flakyBackend fails reads or writes on demand.
type flakyBackend struct {
	kv.Backend
	failGet atomic.Bool
	failSet atomic.Bool
}

var errInjected = errors.New("connection refused")

func (b *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if b.failGet.Load() {
		return nil, fmt.Errorf("%w: get %q: %w", kv.ErrUnavailable, key, errInjected)
	}
	return b.Backend.Get(ctx, key)
}

func (b *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.failSet.Load() {
		return fmt.Errorf("%w: set %q: %w", kv.ErrUnavailable, key, errInjected)
	}
	return b.Backend.Set(ctx, key, value)
}

type fixture struct {
	store   *usecase.Store
	backend *flakyBackend
	repos   usecase.Repositories
	system  *countingSystem
	locker  *kv.Locker
	hasher  *fakeHasher
	clock   *fakeClock
}

// newFixture builds a Store over an in-memory backend. Pass a non-nil backend
// to share storage between stores.
func newFixture(t *testing.T, backend kv.Backend, opts ...func(*usecase.Options)) *fixture {
	t.Helper()

	if backend == nil {
		backend = kv.NewMemoryBackend()
	}
	f := &fixture{
		backend: &flakyBackend{Backend: backend},
		hasher:  &fakeHasher{},
		clock:   newFakeClock(),
	}
	f.repos = adapters.NewRepositories(f.backend, "")
	f.system = &countingSystem{SystemRepository: f.repos.System}
	f.repos.System = f.system
	f.locker = adapters.NewLocker(backend, "")

	o := usecase.Options{Now: f.clock.Now}
	for _, opt := range opts {
		opt(&o)
	}
	f.store = usecase.NewStore(f.repos, f.locker, f.hasher, o)
	return f
}

// initialized returns a fixture whose store is already seeded.
func initialized(t *testing.T, opts ...func(*usecase.Options)) *fixture {
	t.Helper()
	f := newFixture(t, nil, opts...)
	require.NoError(t, f.store.Initialize(context.Background(), usecase.InitOptions{IncludeSampleGroups: true}))
	return f
}

func (f *fixture) addUser(t *testing.T, username string) *entity.User {
	t.Helper()
	u, err := f.store.AddUser(context.Background(), entity.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Password: "password-" + username,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) addMeet(t *testing.T, capacity int) *entity.Meet {
	t.Helper()
	m, err := f.store.AddMeet(context.Background(), entity.Meet{Title: "meet", Capacity: capacity})
	require.NoError(t, err)
	return m
}

func (f *fixture) category(t *testing.T, name string) *entity.Category {
	t.Helper()
	cs, err := f.store.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return nil
}
