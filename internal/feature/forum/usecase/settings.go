package usecase

import (
	"context"
	"errors"
	"sort"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

func (s *Store) GetSettings(ctx context.Context, name string) (*entity.Settings, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	set, err := s.repos.Settings.FindByID(ctx, name)
	return set, storageErr(err)
}

// ListSettings は全設定を名前順に返します。
func (s *Store) ListSettings(ctx context.Context) ([]*entity.Settings, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	sets, err := s.repos.Settings.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Name < sets[j].Name })
	return sets, nil
}

// UpdateSettings は指定の設定に values をマージします。存在しなければ作成します。
// nil の値はそのキーを削除します。
func (s *Store) UpdateSettings(ctx context.Context, name string, values map[string]any) (*entity.Settings, error) {
	if name == "" {
		return nil, invalidArg("settings name is empty")
	}
	var updated *entity.Settings
	err := s.mutate(ctx, lockSettings, func(ctx context.Context) error {
		set, err := s.repos.Settings.FindByID(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			set = &entity.Settings{Name: name}
		} else if err != nil {
			return err
		}
		if set.Values == nil {
			set.Values = make(map[string]any, len(values))
		}
		for k, v := range values {
			if v == nil {
				delete(set.Values, k)
				continue
			}
			set.Values[k] = v
		}
		set.UpdatedAt = s.now()
		if err := s.repos.Settings.Save(ctx, set); err != nil {
			return err
		}
		updated = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
