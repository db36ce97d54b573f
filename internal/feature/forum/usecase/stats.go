package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

const day = 24 * time.Hour

// GetStats は現在のコレクションを集計します。キャッシュはしません。
func (s *Store) GetStats(ctx context.Context) (entity.Stats, error) {
	ctx, done := s.snapshot(ctx)
	defer done()

	stats, err := s.computeStats(ctx)
	return stats, storageErr(err)
}

func (s *Store) computeStats(ctx context.Context) (entity.Stats, error) {
	now := s.now()
	stats := entity.Stats{
		UsersByRole: map[entity.Role]int{},
		GeneratedAt: now,
	}

	users, err := s.repos.Users.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list users: %w", err)
	}
	categories, err := s.repos.Categories.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list categories: %w", err)
	}
	posts, err := s.repos.Posts.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list posts: %w", err)
	}
	replies, err := s.repos.Replies.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list replies: %w", err)
	}
	meets, err := s.repos.Meets.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list meets: %w", err)
	}
	deleted, err := s.repos.Deleted.List(ctx, "")
	if err != nil {
		return stats, fmt.Errorf("failed to list deleted records: %w", err)
	}

	stats.TotalUsers = len(users)
	for _, u := range users {
		stats.UsersByRole[u.Role]++
		if u.IsActive {
			stats.ActiveUsers++
		} else {
			stats.InactiveUsers++
		}
		if now.Sub(u.CreatedAt) <= 7*day {
			stats.NewUsersLast7Days++
		}
		if u.LastActive != nil && now.Sub(*u.LastActive) <= 30*day {
			stats.ActiveUsersLast30++
		}
	}

	stats.TotalCategories = len(categories)

	authors := make(map[string]struct{})
	stats.TotalPosts = len(posts)
	for _, p := range posts {
		authors[p.AuthorID] = struct{}{}
		if p.Hidden {
			stats.HiddenPosts++
		}
		if p.Locked {
			stats.LockedPosts++
		}
		if now.Sub(p.CreatedAt) <= 30*day {
			stats.PostsLast30Days++
		}
	}
	stats.TotalReplies = len(replies)
	for _, r := range replies {
		authors[r.AuthorID] = struct{}{}
	}

	stats.TotalMeets = len(meets)
	for _, m := range meets {
		stats.TotalRSVPs += len(m.Attendees)
	}
	stats.DeletedRecords = len(deleted)

	if stats.TotalUsers > 0 {
		engaged := 0
		for _, u := range users {
			if _, ok := authors[u.ID]; ok {
				engaged++
			}
		}
		stats.EngagementRate = float64(engaged) / float64(stats.TotalUsers)
		stats.AveragePostsPerUser = float64(stats.TotalPosts) / float64(stats.TotalUsers)
	}
	return stats, nil
}

// GetAllDataWithDeleted は論理削除済みを含む全レコードを出力します。
// ストアの初期化は行いません。
func (s *Store) GetAllDataWithDeleted(ctx context.Context) (*entity.Dump, error) {
	ctx, done := s.snapshot(ctx)
	defer done()

	dump, err := s.dump(ctx)
	return dump, storageErr(err)
}

func (s *Store) dump(ctx context.Context) (*entity.Dump, error) {
	d := &entity.Dump{ExportedAt: s.now()}
	var err error

	if d.Users, err = s.repos.Users.List(ctx); err != nil {
		return nil, err
	}
	if d.Users, err = withDeleted(ctx, s, entity.CollectionUsers, d.Users, func(u *entity.User, at time.Time) { u.DeletedAt = &at }); err != nil {
		return nil, err
	}
	if d.Categories, err = s.repos.Categories.List(ctx); err != nil {
		return nil, err
	}
	sortCategories(d.Categories)
	if d.Categories, err = withDeleted(ctx, s, entity.CollectionCategories, d.Categories, func(c *entity.Category, at time.Time) { c.DeletedAt = &at }); err != nil {
		return nil, err
	}
	if d.Posts, err = s.repos.Posts.List(ctx); err != nil {
		return nil, err
	}
	if d.Posts, err = withDeleted(ctx, s, entity.CollectionPosts, d.Posts, func(p *entity.Post, at time.Time) { p.DeletedAt = &at }); err != nil {
		return nil, err
	}
	if d.Replies, err = s.repos.Replies.List(ctx); err != nil {
		return nil, err
	}
	if d.Replies, err = withDeleted(ctx, s, entity.CollectionReplies, d.Replies, func(r *entity.Reply, at time.Time) { r.DeletedAt = &at }); err != nil {
		return nil, err
	}
	if d.Meets, err = s.repos.Meets.List(ctx); err != nil {
		return nil, err
	}
	sortMeets(d.Meets)
	if d.Meets, err = withDeleted(ctx, s, entity.CollectionMeets, d.Meets, func(m *entity.Meet, at time.Time) { m.DeletedAt = &at }); err != nil {
		return nil, err
	}
	if d.Tokens, err = s.repos.Tokens.List(ctx); err != nil {
		return nil, err
	}
	if d.Settings, err = s.repos.Settings.List(ctx); err != nil {
		return nil, err
	}
	if d.Deleted, err = s.repos.Deleted.List(ctx, ""); err != nil {
		return nil, err
	}

	marker, err := s.repos.System.Marker(ctx)
	switch {
	case err == nil:
		d.Marker = marker
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return d, nil
}
