package usecase

import (
	"context"
	"errors"
	"log/slog"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

// IssueResetToken はユーザーに一度だけ使えるパスワードリセットトークンを発行します。
func (s *Store) IssueResetToken(ctx context.Context, userID string) (string, error) {
	if s.opts.ResetLimiter != nil && !s.opts.ResetLimiter.Allow(userID) {
		return "", domain.ErrRateLimited
	}

	var token string
	err := s.mutate(ctx, lockTokens, func(ctx context.Context) error {
		if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		value, err := s.opts.NewToken()
		if err != nil {
			return err
		}
		now := s.now()
		t := &entity.ResetToken{
			Token:     value,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.opts.TokenTTL),
		}
		if err := s.repos.Tokens.Save(ctx, t); err != nil {
			return err
		}
		token = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// VerifyToken は存在し、未使用かつ期限内のトークンを返します。
// それ以外はすべて domain.ErrInvalidToken です。
func (s *Store) VerifyToken(ctx context.Context, token string) (*entity.ResetToken, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	t, err := s.validToken(ctx, token)
	return t, storageErr(err)
}

func (s *Store) validToken(ctx context.Context, token string) (*entity.ResetToken, error) {
	t, err := s.repos.Tokens.FindByID(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !t.IsValid(s.now()) {
		return nil, domain.ErrInvalidToken
	}
	return t, nil
}

// InvalidateToken はトークンを使用済みにします。未知または使用済みでもエラーにはなりません。
func (s *Store) InvalidateToken(ctx context.Context, token string) error {
	return s.mutate(ctx, lockTokens, func(ctx context.Context) error {
		t, err := s.repos.Tokens.FindByID(ctx, token)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if t.Consumed {
			return nil
		}
		t.Consumed = true
		return s.repos.Tokens.Save(ctx, t)
	})
}

// ResetPassword はトークンの持ち主のパスワードを更新し、トークンを使用済みにします。
// 同時に呼ばれてもトークンは一度しか使えません。
func (s *Store) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	return s.mutate(ctx, lockTokens, func(ctx context.Context) error {
		t, err := s.validToken(ctx, token)
		if err != nil {
			return err
		}

		// ロック順は tokens → users
		unlock, err := s.locker.Lock(ctx, lockUsers)
		if err != nil {
			return err
		}
		defer unlock()

		prev, err := s.repos.Users.FindByID(ctx, t.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		next := *prev
		next.Password = digest
		next.UpdatedAt = s.now()
		if err := s.repos.Users.Update(ctx, prev, &next); err != nil {
			return err
		}

		t.Consumed = true
		if err := s.repos.Tokens.Save(ctx, t); err != nil {
			return err
		}
		slog.Info("password reset", "user_id", t.UserID)
		return nil
	})
}

// PurgeExpiredTokens は期限切れトークンを削除し、その件数を返します。
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int, error) {
	purged := 0
	err := s.mutate(ctx, lockTokens, func(ctx context.Context) error {
		tokens, err := s.repos.Tokens.List(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		for _, t := range tokens {
			if !t.IsExpired(now) {
				continue
			}
			if err := s.repos.Tokens.Remove(ctx, t.Token); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	return purged, err
}
