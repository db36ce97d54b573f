package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

// シードするアカウントの既定パスワード。SeedOptions が空の場合に使われます。
const (
	DefaultAdminPassword = "admin12345"
	DefaultGuestPassword = "guest12345"
)

type seedUser struct {
	username string
	email    string
	name     string
	role     entity.Role
	password func(SeedOptions) string
}

var seedUsers = []seedUser{
	{
		username: "admin",
		email:    "admin@forum.local",
		name:     "Administrator",
		role:     entity.RoleAdmin,
		password: func(o SeedOptions) string { return o.AdminPassword },
	},
	{
		username: "guest",
		email:    "guest@forum.local",
		name:     "Guest",
		role:     entity.RoleUser,
		password: func(o SeedOptions) string { return o.GuestPassword },
	},
}

var seedSettings = map[string]map[string]any{
	entity.SettingsSite: {
		"title":            "Community Forum",
		"registrationOpen": true,
		"postsPerPage":     20,
	},
	entity.SettingsRewards: {
		"enabled":        false,
		"pointsPerPost":  10,
		"pointsPerReply": 5,
		"pointsPerRSVP":  2,
	},
}

var seedCategories = []entity.Category{
	{Name: "General", Description: "Anything about the community", Order: 1},
	{Name: "Announcements", Description: "News from the team", Order: 2},
	{Name: "Q&A", Description: "Ask and answer questions", Order: 3},
	{Name: "Meetups", Description: "Plan and discuss meetups", Order: 4},
	{Name: "Off-topic", Description: "Everything else", Order: 5},
}

var seedMeets = []entity.Meet{
	{Title: "Monthly community meetup", Location: "Community hall", Capacity: 20},
	{Title: "Online hangout", Location: "Video call", Capacity: 0},
}

// seed は初期レコードを書き込みます。
// 既存のレコードは残すので、失敗で中断した場合もそのまま再実行できます。
func (s *Store) seed(ctx context.Context, opts InitOptions) error {
	now := s.now()

	for _, su := range seedUsers {
		if _, err := s.repos.Users.FindByUsername(ctx, su.username); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up seed user %q: %w", su.username, err)
		}
		digest, err := s.hasher.Hash(su.password(s.opts.Seed))
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}
		u := &entity.User{
			ID:            s.opts.NewID(),
			Username:      su.username,
			Email:         su.email,
			Name:          su.name,
			Password:      digest,
			Role:          su.role,
			IsActive:      true,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repos.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", su.username, err)
		}
	}

	for name, values := range seedSettings {
		if _, err := s.repos.Settings.FindByID(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up settings %q: %w", name, err)
		}
		set := &entity.Settings{Name: name, Values: maps.Clone(values), UpdatedAt: now}
		if err := s.repos.Settings.Save(ctx, set); err != nil {
			return fmt.Errorf("failed to seed settings %q: %w", name, err)
		}
	}

	if !opts.IncludeSampleGroups {
		return nil
	}
	return s.seedSampleGroups(ctx, now)
}

func (s *Store) seedSampleGroups(ctx context.Context, now time.Time) error {
	categories, err := s.repos.Categories.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	haveCategory := make(map[string]bool, len(categories))
	for _, c := range categories {
		haveCategory[c.Name] = true
	}
	for _, sc := range seedCategories {
		if haveCategory[sc.Name] {
			continue
		}
		c := sc
		c.ID = s.opts.NewID()
		c.CreatedAt = now
		if err := s.repos.Categories.Save(ctx, &c); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
	}

	meets, err := s.repos.Meets.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list meets: %w", err)
	}
	haveMeet := make(map[string]bool, len(meets))
	for _, m := range meets {
		haveMeet[m.Title] = true
	}
	for i, sm := range seedMeets {
		if haveMeet[sm.Title] {
			continue
		}
		m := sm
		m.ID = s.opts.NewID()
		starts := now.Add(time.Duration(7*(i+1)) * 24 * time.Hour)
		m.StartsAt = &starts
		m.Attendees = []entity.Attendee{}
		m.CreatedAt = now
		m.UpdatedAt = now
		if err := s.repos.Meets.Save(ctx, &m); err != nil {
			return fmt.Errorf("failed to seed meet %q: %w", m.Title, err)
		}
	}
	return nil
}
