package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

func sortCategories(cs []*entity.Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Order != cs[j].Order {
			return cs[i].Order < cs[j].Order
		}
		return cs[i].Name < cs[j].Name
	})
}

// ListCategories は有効なカテゴリを Order、名前の順に並べて返します。
func (s *Store) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	cs, err := s.repos.Categories.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	sortCategories(cs)
	return cs, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*entity.Category, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	c, err := s.repos.Categories.FindByID(ctx, id)
	return c, storageErr(err)
}

// AddCategory は新しいカテゴリを保存します。in の ID と CreatedAt は無視されます。
func (s *Store) AddCategory(ctx context.Context, in entity.Category) (*entity.Category, error) {
	c := &entity.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Order:       in.Order,
	}
	if c.Name == "" {
		return nil, invalidArg("category name is empty")
	}
	err := s.mutate(ctx, lockCategories, func(ctx context.Context) error {
		c.ID = s.opts.NewID()
		c.CreatedAt = s.now()
		return s.repos.Categories.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, patch entity.CategoryPatch) (*entity.Category, error) {
	var updated *entity.Category
	err := s.mutate(ctx, lockCategories, func(ctx context.Context) error {
		c, err := s.repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.Order != nil {
			c.Order = *patch.Order
		}
		if c.Name == "" {
			return invalidArg("category name is empty")
		}
		if err := s.repos.Categories.Save(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCategory はカテゴリを論理削除します。配下の投稿はそのまま残ります。
func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.mutate(ctx, lockCategories, func(ctx context.Context) error {
		c, err := s.repos.Categories.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.logDeleted(ctx, entity.CollectionCategories, c.ID, c); err != nil {
			return err
		}
		if err := s.repos.Categories.Remove(ctx, c.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Store) ListCategoriesWithDeleted(ctx context.Context) ([]*entity.Category, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	live, err := s.repos.Categories.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	sortCategories(live)
	return withDeleted(ctx, s, entity.CollectionCategories, live, func(c *entity.Category, at time.Time) { c.DeletedAt = &at })
}
