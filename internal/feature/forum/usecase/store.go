// Package usecase はforumフィーチャーのビジネスロジックを実装します。
// KVバックエンド上で初期化、各リポジトリ、リセットトークン、RSVP、統計を扱います。
package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"forum_backend/internal/feature/forum/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTokenTTL はリセットトークンの有効期間です。
	DefaultTokenTTL = time.Hour

	// DefaultOpTimeout はロック待ちを含む各操作の上限時間です。
	DefaultOpTimeout = 5 * time.Second

	tokenBytes = 32
)

// ロック名。削除中の投稿に返信が付かないよう、投稿と返信は同じロックを使います。
const (
	lockInit       = "init"
	lockUsers      = "users"
	lockCategories = "categories"
	lockPosts      = "posts"
	lockTokens     = "tokens"
	lockSettings   = "settings"
)

func meetLock(id string) string { return "meets:" + id }

// InitOptions はシード内容を指定します。
type InitOptions struct {
	IncludeSampleGroups bool
}

// SeedOptions は既定アカウントのパスワードです。
type SeedOptions struct {
	AdminPassword string
	GuestPassword string
}

// Options はストアの設定です。ゼロ値の項目には既定値が使われます。
type Options struct {
	TokenTTL  time.Duration
	OpTimeout time.Duration

	// RequireExplicitInit は遅延初期化を無効にします。
	// 未初期化のストアへの更新は domain.ErrNotInitialized になります。
	RequireExplicitInit bool

	// LazyInit は暗黙の初期化で使うシード内容です。
	LazyInit InitOptions

	// StrictZeroCapacity は定員 0 を「席なし」として扱います。既定では 0 は無制限です。
	StrictZeroCapacity bool

	Seed SeedOptions

	Sanitizer    Sanitizer
	ResetLimiter RateLimiter

	Now      func() time.Time
	NewID    func() string
	NewToken func() (string, error)
}

// Store は永続化されたフォーラムデータへの唯一の入口です。
type Store struct {
	repos  Repositories
	locker Locker
	hasher Hasher
	opts   Options

	// mu は通常の更新では共有で、初期化・強制再初期化・クリアでは排他で保持する
	mu    sync.RWMutex
	state atomic.Int32
	sf    singleflight.Group
}

// NewStore はStoreを生成します。生成直後は未初期化です。
func NewStore(repos Repositories, locker Locker, hasher Hasher, opts Options) *Store {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Seed.AdminPassword == "" {
		opts.Seed.AdminPassword = DefaultAdminPassword
	}
	if opts.Seed.GuestPassword == "" {
		opts.Seed.GuestPassword = DefaultGuestPassword
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = noopSanitizer{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.NewToken == nil {
		opts.NewToken = randomToken
	}
	return &Store{
		repos:  repos,
		locker: locker,
		hasher: hasher,
		opts:   opts,
	}
}

// randomToken は32バイトの乱数を16進文字列で返します。
func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type noopSanitizer struct{}

func (noopSanitizer) Sanitize(s string) string { return s }

func (s *Store) now() time.Time { return s.opts.Now().UTC() }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.OpTimeout)
}

// enter はストアを使える状態になった時点で共有ロックを取ります。
// 遅延初期化が有効なら先に初期化します。未初期化での読み取りは遅延初期化が無効な場合のみ許可します。
func (s *Store) enter(ctx context.Context, mutation bool) error {
	// 初期化と共有ロック取得の間にクリアが入りうるので、ロック取得後に状態を再確認する
	for attempt := 0; ; attempt++ {
		if !s.opts.RequireExplicitInit {
			if err := s.ensureInitialized(ctx, s.opts.LazyInit); err != nil {
				return err
			}
		}
		s.mu.RLock()
		if s.IsInitialized() || (!mutation && s.opts.RequireExplicitInit) {
			return nil
		}
		s.mu.RUnlock()
		if s.opts.RequireExplicitInit || attempt > 0 {
			return domain.ErrNotInitialized
		}
	}
}

// read は読み取り操作の準備をします。返された done は必ず呼ぶこと。
func (s *Store) read(ctx context.Context) (context.Context, func(), error) {
	ctx, cancel := s.withTimeout(ctx)
	if err := s.enter(ctx, false); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, func() {
		s.mu.RUnlock()
		cancel()
	}, nil
}

// snapshot は暗黙の初期化をしない read です。ステータスとエクスポート用です。
func (s *Store) snapshot(ctx context.Context) (context.Context, func()) {
	ctx, cancel := s.withTimeout(ctx)
	s.mu.RLock()
	return ctx, func() {
		s.mu.RUnlock()
		cancel()
	}
}

// mutate は共有ロックと名前付きロックを取って fn を実行します。
// fn から公開メソッドを呼んではいけません。
func (s *Store) mutate(ctx context.Context, lock string, fn func(ctx context.Context) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.enter(ctx, true); err != nil {
		return err
	}
	defer s.mu.RUnlock()

	unlock, err := s.locker.Lock(ctx, lock)
	if err != nil {
		return storageErr(err)
	}
	defer unlock()

	return storageErr(fn(ctx))
}

// domainErrs はそのまま返し、それ以外はバックエンド障害として扱います。
var domainErrs = []error{
	domain.ErrNotFound,
	domain.ErrDuplicateKey,
	domain.ErrCapacityExceeded,
	domain.ErrInvalidToken,
	domain.ErrBackendUnavailable,
	domain.ErrNotInitialized,
	domain.ErrInvalidArgument,
	domain.ErrPostLocked,
	domain.ErrRateLimited,
	domain.ErrInvalidCredentials,
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrs {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
