package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8

	// maxPasswordBytes は bcrypt が受け付ける最大バイト数です。
	maxPasswordBytes = 72

	// インデックスキーに埋め込むため、SQLのキー列に収まる長さに制限する
	maxUsernameLength = 64
	maxEmailLength    = 254

	// ユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュ
	dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalidArg("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return invalidArg("password must be at most %d bytes long", maxPasswordBytes)
	}
	return nil
}

func validateUser(u *entity.User) error {
	if u.Username == "" || strings.ContainsAny(u.Username, " \t\r\n") {
		return invalidArg("username %q is empty or contains whitespace", u.Username)
	}
	if len(u.Username) > maxUsernameLength {
		return invalidArg("username must be at most %d bytes long", maxUsernameLength)
	}
	if !strings.Contains(u.Email, "@") {
		return invalidArg("email %q is malformed", u.Email)
	}
	if len(u.Email) > maxEmailLength {
		return invalidArg("email must be at most %d bytes long", maxEmailLength)
	}
	if !u.Role.Valid() {
		return invalidArg("unknown role %q", u.Role)
	}
	return nil
}

// ListUsers は有効なユーザーをすべて返します。
func (s *Store) ListUsers(ctx context.Context) ([]*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	users, err := s.repos.Users.List(ctx)
	return users, storageErr(err)
}

// GetUser は存在しないIDに対して domain.ErrNotFound を返します。
func (s *Store) GetUser(ctx context.Context, id string) (*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	u, err := s.repos.Users.FindByID(ctx, id)
	return u, storageErr(err)
}

// GetUserByUsername はユーザー名の完全一致で検索します。
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	u, err := s.repos.Users.FindByUsername(ctx, username)
	return u, storageErr(err)
}

// GetUserByEmail は大文字小文字を区別せずにメールアドレスで検索します。
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	u, err := s.repos.Users.FindByEmail(ctx, email)
	return u, storageErr(err)
}

// AddUser はハッシュ化されたパスワードで新規ユーザーを登録します。
// ユーザー名かメールアドレスが既に使われている場合は domain.ErrDuplicateKey を返します。
func (s *Store) AddUser(ctx context.Context, in entity.NewUser) (*entity.User, error) {
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = entity.RoleUser
	}
	u := &entity.User{
		Username:      strings.TrimSpace(in.Username),
		Email:         strings.TrimSpace(in.Email),
		Name:          strings.TrimSpace(in.Name),
		Role:          role,
		IsActive:      true,
		EmailVerified: in.EmailVerified,
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}

	// bcrypt は遅いので users ロックを取る前にハッシュ化する
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u.Password = digest

	err = s.mutate(ctx, lockUsers, func(ctx context.Context) error {
		now := s.now()
		u.ID = s.opts.NewID()
		u.CreatedAt = now
		u.UpdatedAt = now
		return s.repos.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser はユーザーに patch を適用します。ユーザー名やメールアドレスを変える場合は一意性を再確認します。
// 存在しないIDには domain.ErrNotFound を返します。
func (s *Store) UpdateUser(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	var digest string
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		var err error
		if digest, err = s.hasher.Hash(*patch.Password); err != nil {
			return nil, err
		}
	}

	var updated *entity.User
	err := s.mutate(ctx, lockUsers, func(ctx context.Context) error {
		prev, err := s.repos.Users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		next := *prev
		applyUserPatch(&next, patch)
		if digest != "" {
			next.Password = digest
		}
		if err := validateUser(&next); err != nil {
			return err
		}
		next.UpdatedAt = s.now()
		if err := s.repos.Users.Update(ctx, prev, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyUserPatch(u *entity.User, p entity.UserPatch) {
	if p.Username != nil {
		u.Username = strings.TrimSpace(*p.Username)
	}
	if p.Email != nil {
		u.Email = strings.TrimSpace(*p.Email)
	}
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.LastActive != nil {
		t := p.LastActive.UTC()
		u.LastActive = &t
	}
}

// DeleteUser はユーザーを論理削除ログへ移します。存在しないIDの場合は false を返します。
func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.mutate(ctx, lockUsers, func(ctx context.Context) error {
		u, err := s.repos.Users.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.logDeleted(ctx, entity.CollectionUsers, u.ID, u); err != nil {
			return err
		}
		if err := s.repos.Users.Remove(ctx, u); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ListUsersWithDeleted は有効なユーザーの後に論理削除済みユーザーを続けて返します。
func (s *Store) ListUsersWithDeleted(ctx context.Context) ([]*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	live, err := s.repos.Users.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return withDeleted(ctx, s, entity.CollectionUsers, live, func(u *entity.User, at time.Time) { u.DeletedAt = &at })
}

// Authenticate はユーザー名またはメールアドレスとパスワードを検証し、成功時に lastActive を更新します。
// 失敗はすべて domain.ErrInvalidCredentials です。
func (s *Store) Authenticate(ctx context.Context, login, password string) (*entity.User, error) {
	u, err := s.lookupLogin(ctx, login)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	digest := dummyDigest
	if u != nil {
		digest = u.Password
	}
	compareErr := s.hasher.Compare(digest, password)
	if u == nil || compareErr != nil || !u.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	touched, err := s.TouchLastActive(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return touched, nil
}

func (s *Store) lookupLogin(ctx context.Context, login string) (*entity.User, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	login = strings.TrimSpace(login)
	u, err := s.repos.Users.FindByUsername(ctx, login)
	if errors.Is(err, domain.ErrNotFound) && strings.Contains(login, "@") {
		u, err = s.repos.Users.FindByEmail(ctx, login)
	}
	return u, storageErr(err)
}

// TouchLastActive はユーザーの lastActive を現在時刻にします。
func (s *Store) TouchLastActive(ctx context.Context, id string) (*entity.User, error) {
	now := s.now()
	return s.UpdateUser(ctx, id, entity.UserPatch{LastActive: &now})
}

// RepairPasswords はダイジェストになっていないパスワードを再ハッシュし、その件数を返します。
func (s *Store) RepairPasswords(ctx context.Context) (int, error) {
	repaired := 0
	err := s.mutate(ctx, lockUsers, func(ctx context.Context) error {
		var err error
		repaired, err = s.repairPasswords(ctx)
		return err
	})
	return repaired, err
}

// repairPasswords は再ハッシュ処理の本体です。呼び出し側は users か init のロックを保持していること。
func (s *Store) repairPasswords(ctx context.Context) (int, error) {
	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, prev := range users {
		if s.hasher.IsDigest(prev.Password) {
			continue
		}
		digest, err := s.hasher.Hash(prev.Password)
		if err != nil {
			return repaired, fmt.Errorf("user %s: %w", prev.ID, err)
		}
		next := *prev
		next.Password = digest
		next.UpdatedAt = s.now()
		if err := s.repos.Users.Update(ctx, prev, &next); err != nil {
			return repaired, err
		}
		repaired++
	}
	if repaired > 0 {
		slog.Info("repaired plaintext passwords", "count", repaired)
	}
	return repaired, nil
}
