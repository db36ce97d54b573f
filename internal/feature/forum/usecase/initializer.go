package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
)

// State はストアのライフサイクル状態です。
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "uninitialized"
	}
}

// State は現在の状態を返します。
func (s *Store) State() State {
	return State(s.state.Load())
}

func (s *Store) setState(st State) {
	s.state.Store(int32(st))
}

// IsInitialized はシードが完了しているかを返します。バックエンドにはアクセスしません。
func (s *Store) IsInitialized() bool {
	return s.State() == StateInitialized
}

// Initialize はストアを一度だけシードします。
// 同時に呼ばれた場合は1回のシード処理を共有し、既に初期化マーカーがあるバックエンドはシードせずにそのまま採用します。
// 別プロセスがバックエンドをクリアしていた場合は再度シードします。
func (s *Store) Initialize(ctx context.Context, opts InitOptions) error {
	if err := s.syncState(ctx); err != nil {
		return err
	}
	return s.ensureInitialized(ctx, opts)
}

// ensureInitialized は共有のシード処理に合流するか、新しく開始します。
// 処理は呼び出し元のコンテキストから切り離して実行するため、途中で諦めた呼び出し元が他の待機者を失敗させることはありません。
func (s *Store) ensureInitialized(ctx context.Context, opts InitOptions) error {
	if s.IsInitialized() {
		return nil
	}
	detached := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(lockInit, func() (any, error) {
		ctx, cancel := s.withTimeout(detached)
		defer cancel()
		return nil, s.initialize(ctx, opts)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return storageErr(ctx.Err())
	}
}

// syncState は初期化マーカーが消えていれば初期化済み状態を取り消します。
// 同じバックエンドを使う別プロセスがクリアした場合に起こります。
func (s *Store) syncState(ctx context.Context) error {
	if !s.IsInitialized() {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	gone, err := s.markerGone(ctx)
	if err != nil || !gone {
		return storageErr(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// mu を待つ間にシードが終わっている可能性がある
	gone, err = s.markerGone(ctx)
	if err != nil {
		return storageErr(err)
	}
	if gone && s.IsInitialized() {
		slog.Warn("init marker removed by another process, store will seed again",
			"backend", s.repos.System.BackendName())
		s.setState(StateUninitialized)
	}
	return nil
}

func (s *Store) markerGone(ctx context.Context) (bool, error) {
	_, err := s.repos.System.Marker(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read init marker: %w", err)
	}
	return false, nil
}

func (s *Store) initialize(ctx context.Context, opts InitOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// mu を待つ間に強制再初期化が終わっている可能性がある
	if s.IsInitialized() {
		return nil
	}
	return s.runInit(ctx, func(ctx context.Context) error {
		marker, err := s.repos.System.Marker(ctx)
		if err == nil {
			slog.Info("forum store already seeded",
				"backend", s.repos.System.BackendName(),
				"initialized_at", marker.InitializedAt)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to read init marker: %w", err)
		}
		return s.seedAndMark(ctx, opts)
	})
}

// ForceReinitialize は論理削除ログを含む全コレクションを消去し、再度シードします。
func (s *Store) ForceReinitialize(ctx context.Context, opts InitOptions) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runInit(ctx, func(ctx context.Context) error {
		if err := s.repos.System.Purge(ctx); err != nil {
			return fmt.Errorf("failed to purge store: %w", err)
		}
		return s.seedAndMark(ctx, opts)
	})
}

// ForceReinitializeWithHashedPasswords は強制再初期化を行い、保存済みパスワードがすべてダイジェストであることを保証します。
// 戻り値は置き換えた平文パスワードの件数です（消去前のデータに含まれていた件数と、シード後の修復で再ハッシュした件数の合計）。
func (s *Store) ForceReinitializeWithHashedPasswords(ctx context.Context, opts InitOptions) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := 0
	err := s.runInit(ctx, func(ctx context.Context) error {
		users, err := s.repos.Users.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range users {
			if !s.hasher.IsDigest(u.Password) {
				replaced++
			}
		}
		if err := s.repos.System.Purge(ctx); err != nil {
			return fmt.Errorf("failed to purge store: %w", err)
		}
		if err := s.seedAndMark(ctx, opts); err != nil {
			return err
		}
		repaired, err := s.repairPasswords(ctx)
		replaced += repaired
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.Info("forum store reseeded with hashed passwords", "replaced", replaced)
	return replaced, nil
}

// ClearAllData はすべてを物理削除し、ストアを未初期化状態に戻します。
func (s *Store) ClearAllData(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.locker.Lock(ctx, lockInit)
	if err != nil {
		return storageErr(err)
	}
	defer unlock()

	// 消去途中のデータを初期化済みと報告しない
	s.setState(StateUninitialized)
	if err := s.repos.System.Purge(ctx); err != nil {
		slog.Error("failed to clear forum store", "error", err)
		return storageErr(fmt.Errorf("failed to purge store: %w", err))
	}
	slog.Info("forum store cleared", "backend", s.repos.System.BackendName())
	return nil
}

// runInit はプロセス間の init ロックを取って fn を実行し、その間の状態を initializing にします。
// 呼び出し側は mu を排他的に保持していること。
func (s *Store) runInit(ctx context.Context, fn func(ctx context.Context) error) error {
	s.setState(StateInitializing)

	unlock, err := s.locker.Lock(ctx, lockInit)
	if err != nil {
		s.setState(StateUninitialized)
		return storageErr(err)
	}
	defer unlock()

	if err := fn(ctx); err != nil {
		s.setState(StateUninitialized)
		slog.Error("forum store initialization failed", "error", err)
		return storageErr(err)
	}
	s.setState(StateInitialized)
	return nil
}

func (s *Store) seedAndMark(ctx context.Context, opts InitOptions) error {
	if err := s.seed(ctx, opts); err != nil {
		return err
	}
	marker := &entity.InitMarker{
		InitializedAt:       s.now(),
		IncludeSampleGroups: opts.IncludeSampleGroups,
	}
	if err := s.repos.System.SaveMarker(ctx, marker); err != nil {
		return fmt.Errorf("failed to write init marker: %w", err)
	}
	slog.Info("forum store seeded",
		"backend", s.repos.System.BackendName(),
		"storage_type", s.repos.System.StorageType(),
		"sample_groups", opts.IncludeSampleGroups)
	return nil
}

// GetSystemStatus は初期化状態、使用中のバックエンド、最新の統計を返します。
// ストアの初期化は行いません。
func (s *Store) GetSystemStatus(ctx context.Context) (entity.SystemStatus, error) {
	if err := s.syncState(ctx); err != nil {
		return entity.SystemStatus{State: s.State().String()}, err
	}
	ctx, done := s.snapshot(ctx)
	defer done()

	status := entity.SystemStatus{
		IsInitialized: s.IsInitialized(),
		State:         s.State().String(),
		StorageType:   s.repos.System.StorageType(),
		Backend:       s.repos.System.BackendName(),
	}
	stats, err := s.computeStats(ctx)
	if err != nil {
		return status, storageErr(err)
	}
	status.Stats = stats
	return status, nil
}
