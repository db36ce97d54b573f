package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/kv"
)

// kvCollection は1レコードを prefix+id のキーにJSONとして保存します。
type kvCollection[T any] struct {
	kv     kv.Backend
	prefix string
	idOf   func(*T) string
}

var _ usecase.Collection[entity.Meet] = (*kvCollection[entity.Meet])(nil)

func newKVCollection[T any](b kv.Backend, prefix string, idOf func(*T) string) *kvCollection[T] {
	return &kvCollection[T]{kv: b, prefix: prefix, idOf: idOf}
}

// FindByID はレコードが存在しない場合 domain.ErrNotFound を返します。
func (c *kvCollection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return c.load(ctx, c.prefix+id)
}

func (c *kvCollection[T]) load(ctx context.Context, key string) (*T, error) {
	data, err := c.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return v, nil
}

func (c *kvCollection[T]) Save(ctx context.Context, item *T) error {
	id := c.idOf(item)
	if id == "" {
		return fmt.Errorf("%w: record under %s has no id", domain.ErrInvalidArgument, c.prefix)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s%s: %w", c.prefix, id, err)
	}
	return c.kv.Set(ctx, c.prefix+id, data)
}

func (c *kvCollection[T]) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return c.kv.Delete(ctx, c.prefix+id)
}

// List はキー順にレコードを返します。キー一覧の取得後に削除されたレコードは読み飛ばします。
func (c *kvCollection[T]) List(ctx context.Context) ([]*T, error) {
	keys, err := c.kv.Keys(ctx, c.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(keys))
	for _, key := range keys {
		v, err := c.load(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
