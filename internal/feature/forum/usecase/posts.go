package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

// ListPosts は条件に一致する有効な投稿を新しい順に返します。
func (s *Store) ListPosts(ctx context.Context, filter entity.PostFilter) ([]*entity.Post, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	all, err := s.repos.Posts.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	posts := all[:0]
	for _, p := range all {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if p.Hidden && !filter.IncludeHidden {
			continue
		}
		posts = append(posts, p)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	p, err := s.repos.Posts.FindByID(ctx, id)
	return p, storageErr(err)
}

// AddPost は新しい投稿を保存します。
// カテゴリと投稿者が存在している必要があり、本文はサニタイズされます。
func (s *Store) AddPost(ctx context.Context, in entity.Post) (*entity.Post, error) {
	p := &entity.Post{
		CategoryID: in.CategoryID,
		AuthorID:   in.AuthorID,
		Title:      strings.TrimSpace(in.Title),
		Body:       s.opts.Sanitizer.Sanitize(in.Body),
		Hidden:     in.Hidden,
		Locked:     in.Locked,
	}
	if p.Title == "" {
		return nil, invalidArg("post title is empty")
	}
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		if _, err := s.repos.Categories.FindByID(ctx, p.CategoryID); err != nil {
			return fmt.Errorf("category %q: %w", p.CategoryID, err)
		}
		author, err := s.repos.Users.FindByID(ctx, p.AuthorID)
		if err != nil {
			return fmt.Errorf("author %q: %w", p.AuthorID, err)
		}
		now := s.now()
		p.ID = s.opts.NewID()
		p.AuthorEmail = author.Email
		p.CreatedAt = now
		p.UpdatedAt = now
		return s.repos.Posts.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch entity.PostPatch) (*entity.Post, error) {
	var updated *entity.Post
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		p, err := s.repos.Posts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.CategoryID != nil && *patch.CategoryID != p.CategoryID {
			if _, err := s.repos.Categories.FindByID(ctx, *patch.CategoryID); err != nil {
				return fmt.Errorf("category %q: %w", *patch.CategoryID, err)
			}
			p.CategoryID = *patch.CategoryID
		}
		if patch.Title != nil {
			p.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Body != nil {
			p.Body = s.opts.Sanitizer.Sanitize(*patch.Body)
		}
		if patch.Hidden != nil {
			p.Hidden = *patch.Hidden
		}
		if patch.Locked != nil {
			p.Locked = *patch.Locked
		}
		if p.Title == "" {
			return invalidArg("post title is empty")
		}
		p.UpdatedAt = s.now()
		if err := s.repos.Posts.Save(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost は投稿を返信ごと論理削除します。
func (s *Store) DeletePost(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		p, err := s.repos.Posts.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		replies, err := s.repos.Replies.List(ctx)
		if err != nil {
			return err
		}
		for _, r := range replies {
			if r.PostID != p.ID {
				continue
			}
			if err := s.deleteReply(ctx, r); err != nil {
				return err
			}
		}
		if err := s.logDeleted(ctx, entity.CollectionPosts, p.ID, p); err != nil {
			return err
		}
		if err := s.repos.Posts.Remove(ctx, p.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Store) ListPostsWithDeleted(ctx context.Context) ([]*entity.Post, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	live, err := s.repos.Posts.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return withDeleted(ctx, s, entity.CollectionPosts, live, func(p *entity.Post, at time.Time) { p.DeletedAt = &at })
}

// ListReplies は投稿の有効な返信を古い順に返します。
func (s *Store) ListReplies(ctx context.Context, postID string) ([]*entity.Reply, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	all, err := s.repos.Replies.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	replies := all[:0]
	for _, r := range all {
		if r.PostID == postID {
			replies = append(replies, r)
		}
	}
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
	return replies, nil
}

func (s *Store) GetReply(ctx context.Context, id string) (*entity.Reply, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	r, err := s.repos.Replies.FindByID(ctx, id)
	return r, storageErr(err)
}

// AddReply は投稿に返信します。ロックされた投稿には domain.ErrPostLocked を返します。
func (s *Store) AddReply(ctx context.Context, in entity.Reply) (*entity.Reply, error) {
	r := &entity.Reply{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		Body:     s.opts.Sanitizer.Sanitize(in.Body),
	}
	if strings.TrimSpace(r.Body) == "" {
		return nil, invalidArg("reply body is empty")
	}
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		p, err := s.repos.Posts.FindByID(ctx, r.PostID)
		if err != nil {
			return fmt.Errorf("post %q: %w", r.PostID, err)
		}
		if p.Locked {
			return domain.ErrPostLocked
		}
		if _, err := s.repos.Users.FindByID(ctx, r.AuthorID); err != nil {
			return fmt.Errorf("author %q: %w", r.AuthorID, err)
		}
		now := s.now()
		r.ID = s.opts.NewID()
		r.CreatedAt = now
		r.UpdatedAt = now
		return s.repos.Replies.Save(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateReply(ctx context.Context, id string, patch entity.ReplyPatch) (*entity.Reply, error) {
	var updated *entity.Reply
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		r, err := s.repos.Replies.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Body != nil {
			r.Body = s.opts.Sanitizer.Sanitize(*patch.Body)
		}
		if strings.TrimSpace(r.Body) == "" {
			return invalidArg("reply body is empty")
		}
		r.UpdatedAt = s.now()
		if err := s.repos.Replies.Save(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteReply(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.mutate(ctx, lockPosts, func(ctx context.Context) error {
		r, err := s.repos.Replies.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.deleteReply(ctx, r); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Store) deleteReply(ctx context.Context, r *entity.Reply) error {
	if err := s.logDeleted(ctx, entity.CollectionReplies, r.ID, r); err != nil {
		return err
	}
	return s.repos.Replies.Remove(ctx, r.ID)
}

func (s *Store) ListRepliesWithDeleted(ctx context.Context) ([]*entity.Reply, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	live, err := s.repos.Replies.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return withDeleted(ctx, s, entity.CollectionReplies, live, func(r *entity.Reply, at time.Time) { r.DeletedAt = &at })
}
