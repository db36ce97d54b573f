package adapters

import (
	"context"
	"errors"
	"fmt"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/kv"
)

// userKV はユーザーをJSONレコードとして保存し、検索でスキャンしないよう
// ユーザーごとに2つのインデックスキー（ユーザー名 → ID、小文字化したメールアドレス → ID）を持ちます。
//
// 一意性は書き込み直前に確認します。書き込みは呼び出し側が users ロックで直列化します。
type userKV struct {
	records *kvCollection[entity.User]
	kv      kv.Backend
	keys    Keyspace
}

var _ usecase.UserRepository = (*userKV)(nil)

func NewUserKV(b kv.Backend, keys Keyspace) *userKV {
	return &userKV{
		records: newKVCollection(b, keys.Collection(entity.CollectionUsers), func(u *entity.User) string { return u.ID }),
		kv:      b,
		keys:    keys,
	}
}

func (r *userKV) List(ctx context.Context) ([]*entity.User, error) {
	return r.records.List(ctx)
}

func (r *userKV) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.records.FindByID(ctx, id)
}

func (r *userKV) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findByIndex(ctx, r.keys.UsernameIndex(username))
}

func (r *userKV) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findByIndex(ctx, r.keys.EmailIndex(email))
}

// findByIndex はインデックスキーからレコードを引きます。レコードが消えているエントリは存在しないものとして扱います。
func (r *userKV) findByIndex(ctx context.Context, indexKey string) (*entity.User, error) {
	id, err := r.kv.Get(ctx, indexKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.records.FindByID(ctx, string(id))
}

// claimable は indexKey を userID が使えるか（未設定、古いエントリ、または既に userID を指している）を返します。
func (r *userKV) claimable(ctx context.Context, indexKey, userID string) error {
	owner, err := r.findByIndex(ctx, indexKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner.ID != userID {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, indexKey)
	}
	return nil
}

// Create はレコードより先にインデックスを書きます。
// レコードの書き込みに失敗しても、残ったエントリは次の書き込みで再利用されます。
func (r *userKV) Create(ctx context.Context, u *entity.User) error {
	userIdx, emailIdx := r.keys.UsernameIndex(u.Username), r.keys.EmailIndex(u.Email)
	if err := r.claimable(ctx, userIdx, u.ID); err != nil {
		return err
	}
	if err := r.claimable(ctx, emailIdx, u.ID); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, userIdx, []byte(u.ID)); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, emailIdx, []byte(u.ID)); err != nil {
		return err
	}
	return r.records.Save(ctx, u)
}

func (r *userKV) Update(ctx context.Context, prev, next *entity.User) error {
	oldUserIdx, newUserIdx := r.keys.UsernameIndex(prev.Username), r.keys.UsernameIndex(next.Username)
	oldEmailIdx, newEmailIdx := r.keys.EmailIndex(prev.Email), r.keys.EmailIndex(next.Email)

	if newUserIdx != oldUserIdx {
		if err := r.claimable(ctx, newUserIdx, next.ID); err != nil {
			return err
		}
	}
	if newEmailIdx != oldEmailIdx {
		if err := r.claimable(ctx, newEmailIdx, next.ID); err != nil {
			return err
		}
	}
	if err := r.kv.Set(ctx, newUserIdx, []byte(next.ID)); err != nil {
		return err
	}
	if err := r.kv.Set(ctx, newEmailIdx, []byte(next.ID)); err != nil {
		return err
	}
	if err := r.records.Save(ctx, next); err != nil {
		return err
	}
	if newUserIdx != oldUserIdx {
		if err := r.releaseIndex(ctx, oldUserIdx, prev.ID); err != nil {
			return err
		}
	}
	if newEmailIdx != oldEmailIdx {
		if err := r.releaseIndex(ctx, oldEmailIdx, prev.ID); err != nil {
			return err
		}
	}
	return nil
}

// Remove は先にレコードを消すので、途中で失敗しても残るのは古いインデックスだけです。
func (r *userKV) Remove(ctx context.Context, u *entity.User) error {
	if err := r.records.Remove(ctx, u.ID); err != nil {
		return err
	}
	if err := r.releaseIndex(ctx, r.keys.UsernameIndex(u.Username), u.ID); err != nil {
		return err
	}
	return r.releaseIndex(ctx, r.keys.EmailIndex(u.Email), u.ID)
}

// releaseIndex は indexKey がまだ userID を指している場合だけ削除します。
func (r *userKV) releaseIndex(ctx context.Context, indexKey, userID string) error {
	owner, err := r.kv.Get(ctx, indexKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if string(owner) != userID {
		return nil
	}
	return r.kv.Delete(ctx, indexKey)
}
