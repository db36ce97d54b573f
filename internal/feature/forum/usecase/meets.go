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

// seatsLeft は残り席数を返します。無制限の場合は -1 です。
func (s *Store) seatsLeft(m *entity.Meet) int {
	if m.Capacity == 0 && !s.opts.StrictZeroCapacity {
		return -1
	}
	return max(m.Capacity-len(m.Attendees), 0)
}

// ListMeets は有効なミートを開始日時順に返します。開始日時のないミートは最後です。
func (s *Store) ListMeets(ctx context.Context) ([]*entity.Meet, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	meets, err := s.repos.Meets.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	sortMeets(meets)
	return meets, nil
}

func sortMeets(ms []*entity.Meet) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i].StartsAt, ms[j].StartsAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

func (s *Store) GetMeet(ctx context.Context, id string) (*entity.Meet, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	m, err := s.repos.Meets.FindByID(ctx, id)
	return m, storageErr(err)
}

// AddMeet は参加者なしで新しいミートを保存します。
func (s *Store) AddMeet(ctx context.Context, in entity.Meet) (*entity.Meet, error) {
	m := &entity.Meet{
		Title:       strings.TrimSpace(in.Title),
		Description: s.opts.Sanitizer.Sanitize(in.Description),
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    in.StartsAt,
		Capacity:    in.Capacity,
		Attendees:   []entity.Attendee{},
	}
	if m.Title == "" {
		return nil, invalidArg("meet title is empty")
	}
	if m.Capacity < 0 {
		return nil, invalidArg("meet capacity %d is negative", m.Capacity)
	}
	now := s.now()
	m.ID = s.opts.NewID()
	m.CreatedAt = now
	m.UpdatedAt = now

	err := s.mutate(ctx, meetLock(m.ID), func(ctx context.Context) error {
		return s.repos.Meets.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMeet は patch を適用します。
// 定員を現在の参加者数より小さくすると domain.ErrCapacityExceeded を返します。
func (s *Store) UpdateMeet(ctx context.Context, id string, patch entity.MeetPatch) (*entity.Meet, error) {
	var updated *entity.Meet
	err := s.mutate(ctx, meetLock(id), func(ctx context.Context) error {
		m, err := s.repos.Meets.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			m.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			m.Description = s.opts.Sanitizer.Sanitize(*patch.Description)
		}
		if patch.Location != nil {
			m.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.StartsAt != nil {
			t := patch.StartsAt.UTC()
			m.StartsAt = &t
		}
		if patch.Capacity != nil {
			if *patch.Capacity < 0 {
				return invalidArg("meet capacity %d is negative", *patch.Capacity)
			}
			m.Capacity = *patch.Capacity
			if s.seatsLeft(m) >= 0 && m.Capacity < len(m.Attendees) {
				return domain.ErrCapacityExceeded
			}
		}
		if m.Title == "" {
			return invalidArg("meet title is empty")
		}
		m.UpdatedAt = s.now()
		if err := s.repos.Meets.Save(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteMeet(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.mutate(ctx, meetLock(id), func(ctx context.Context) error {
		m, err := s.repos.Meets.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.logDeleted(ctx, entity.CollectionMeets, m.ID, m); err != nil {
			return err
		}
		if err := s.repos.Meets.Remove(ctx, m.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (s *Store) ListMeetsWithDeleted(ctx context.Context) ([]*entity.Meet, error) {
	ctx, done, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	live, err := s.repos.Meets.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	sortMeets(live)
	return withDeleted(ctx, s, entity.CollectionMeets, live, func(m *entity.Meet, at time.Time) { m.DeletedAt = &at })
}

// RSVP は参加者をミートに追加します。
// 定員チェックと追加はミートごとのロック内で行うため、同時に呼ばれても定員を超えません。
// 既に参加済みのユーザーの場合はミートをそのまま返します。
func (s *Store) RSVP(ctx context.Context, meetID string, a entity.Attendee) (*entity.Meet, error) {
	if a.UserID == "" {
		return nil, invalidArg("attendee user id is empty")
	}
	var result *entity.Meet
	err := s.mutate(ctx, meetLock(meetID), func(ctx context.Context) error {
		m, err := s.repos.Meets.FindByID(ctx, meetID)
		if err != nil {
			return err
		}
		if m.IndexOf(a.UserID) >= 0 {
			result = m
			return nil
		}
		if s.seatsLeft(m) == 0 {
			return domain.ErrCapacityExceeded
		}
		now := s.now()
		a.RSVPedAt = now
		m.Attendees = append(m.Attendees, a)
		m.UpdatedAt = now
		if err := s.repos.Meets.Save(ctx, m); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelRSVP はユーザーの参加を取り消します。他の参加者の順序は保たれます。
// 参加していないユーザーの場合は domain.ErrNotAttending を返します。
func (s *Store) CancelRSVP(ctx context.Context, meetID, userID string) (*entity.Meet, error) {
	var result *entity.Meet
	err := s.mutate(ctx, meetLock(meetID), func(ctx context.Context) error {
		m, err := s.repos.Meets.FindByID(ctx, meetID)
		if err != nil {
			return err
		}
		i := m.IndexOf(userID)
		if i < 0 {
			return domain.ErrNotAttending
		}
		m.Attendees = append(m.Attendees[:i], m.Attendees[i+1:]...)
		m.UpdatedAt = s.now()
		if err := s.repos.Meets.Save(ctx, m); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
