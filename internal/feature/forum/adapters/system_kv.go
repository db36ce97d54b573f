package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/kv"
)

// deletedKV は論理削除ログです。削除レコード1件につき1キーを使います。
type deletedKV struct {
	kv   kv.Backend
	keys Keyspace
}

var _ usecase.DeletedRepository = (*deletedKV)(nil)

func NewDeletedKV(b kv.Backend, keys Keyspace) *deletedKV {
	return &deletedKV{kv: b, keys: keys}
}

func (r *deletedKV) Add(ctx context.Context, rec *entity.DeletedRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode deleted record: %w", err)
	}
	return r.kv.Set(ctx, r.keys.Deleted(rec.Collection, rec.ID), data)
}

// List は削除日時順にレコードを返します。
func (r *deletedKV) List(ctx context.Context, collection string) ([]*entity.DeletedRecord, error) {
	keys, err := r.kv.Keys(ctx, r.keys.DeletedPrefix(collection))
	if err != nil {
		return nil, err
	}
	out := make([]*entity.DeletedRecord, 0, len(keys))
	for _, key := range keys {
		data, err := r.kv.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rec := new(entity.DeletedRecord)
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	return out, nil
}

// systemKV は初期化マーカーを保持し、名前空間の全消去を行います。
type systemKV struct {
	kv   kv.Backend
	keys Keyspace
}

var _ usecase.SystemRepository = (*systemKV)(nil)

func NewSystemKV(b kv.Backend, keys Keyspace) *systemKV {
	return &systemKV{kv: b, keys: keys}
}

func (r *systemKV) Marker(ctx context.Context) (*entity.InitMarker, error) {
	data, err := r.kv.Get(ctx, r.keys.Marker())
	if errors.Is(err, kv.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m := new(entity.InitMarker)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode init marker: %w", err)
	}
	return m, nil
}

func (r *systemKV) SaveMarker(ctx context.Context, m *entity.InitMarker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode init marker: %w", err)
	}
	return r.kv.Set(ctx, r.keys.Marker(), data)
}

// Purge は最初にマーカーを消すので、途中で中断しても次の初期化で再シードされます。
func (r *systemKV) Purge(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.keys.Marker()); err != nil {
		return err
	}
	keys, err := r.kv.Keys(ctx, r.keys.Root())
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := r.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *systemKV) StorageType() string { return string(r.kv.Kind()) }

func (r *systemKV) BackendName() string { return r.kv.Name() }
