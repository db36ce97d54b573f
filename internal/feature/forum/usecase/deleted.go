package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forum_backend/internal/feature/forum/domain/entity"
)

// logDeleted はレコードを論理削除ログにコピーします。
// 呼び出し側は後から本体を消すので、削除に失敗してもデータは失われません。
func (s *Store) logDeleted(ctx context.Context, collection, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}
	rec := &entity.DeletedRecord{
		Collection: collection,
		ID:         id,
		DeletedAt:  s.now(),
		Data:       data,
	}
	return s.repos.Deleted.Add(ctx, rec)
}

// withDeleted は live の後ろに論理削除済みレコードを削除日時付きで追加します。
func withDeleted[T any](ctx context.Context, s *Store, collection string, live []*T, stamp func(*T, time.Time)) ([]*T, error) {
	recs, err := s.repos.Deleted.List(ctx, collection)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]*T, 0, len(live)+len(recs))
	out = append(out, live...)
	for _, rec := range recs {
		item := new(T)
		if err := json.Unmarshal(rec.Data, item); err != nil {
			return nil, storageErr(fmt.Errorf("failed to decode deleted %s %s: %w", collection, rec.ID, err))
		}
		stamp(item, rec.DeletedAt)
		out = append(out, item)
	}
	return out, nil
}

// ListDeleted は collection の論理削除ログを返します。
// collection が空の場合は全コレクション分を返します。
func (s *Store) ListDeleted(ctx context.Context, collection string) ([]*entity.DeletedRecord, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	recs, err := s.repos.Deleted.List(ctx, collection)
	return recs, storageErr(err)
}
