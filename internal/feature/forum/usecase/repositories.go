package usecase

import (
	"context"

	"forum_backend/internal/feature/forum/domain/entity"
)

// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。

// Collection はIDをキーとする論理コレクションへの型付きアクセスです。
type Collection[T any] interface {
	// List はコレクションの全レコードを返します。
	List(ctx context.Context) ([]*T, error)

	// FindByID は存在しない場合 domain.ErrNotFound を返します。
	FindByID(ctx context.Context, id string) (*T, error)

	// Save はレコードを作成、または上書きします。
	Save(ctx context.Context, item *T) error

	// Remove はレコードを消去します。存在しないIDでもエラーにはなりません。
	Remove(ctx context.Context, id string) error
}

// UserRepository はユーザーレコードと一意性のためのインデックスを管理します。
type UserRepository interface {
	List(ctx context.Context) ([]*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	// FindByEmail は正規化（小文字化）したメールアドレスで比較します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create は書き込み直前にユーザー名とメールアドレスの一意性を確認します。
	// 重複する場合は domain.ErrDuplicateKey を返します。
	Create(ctx context.Context, user *entity.User) error

	// Update は prev を next で置き換え、ユーザー名やメールアドレスが変わった場合はインデックスも移します。
	// 重複する場合は domain.ErrDuplicateKey を返します。
	Update(ctx context.Context, prev, next *entity.User) error

	// Remove はレコードとインデックスを消去します。
	Remove(ctx context.Context, user *entity.User) error
}

// DeletedRepository は論理削除ログです。
type DeletedRepository interface {
	Add(ctx context.Context, rec *entity.DeletedRecord) error

	// List は collection から削除されたレコードを返します。空の場合は全コレクション分です。
	List(ctx context.Context, collection string) ([]*entity.DeletedRecord, error)
}

// SystemRepository はストア全体の状態（初期化マーカーと全消去）を扱います。
type SystemRepository interface {
	// Marker は一度もシードされていない場合 domain.ErrNotFound を返します。
	Marker(ctx context.Context) (*entity.InitMarker, error)
	SaveMarker(ctx context.Context, marker *entity.InitMarker) error

	// Purge は論理削除ログとマーカーを含め、名前空間のすべてのキーを削除します。
	Purge(ctx context.Context) error

	// StorageType は "durable" か "fallback" です。
	StorageType() string
	BackendName() string
}

// Repositories はストアが持つ全コレクションをまとめたものです。
type Repositories struct {
	Users      UserRepository
	Categories Collection[entity.Category]
	Posts      Collection[entity.Post]
	Replies    Collection[entity.Reply]
	Meets      Collection[entity.Meet]
	Tokens     Collection[entity.ResetToken]
	Settings   Collection[entity.Settings]
	Deleted    DeletedRepository
	System     SystemRepository
}

// Locker は名前付きの排他ロックを提供します。
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// Hasher はパスワードをダイジェストに変換する唯一の手段です。
type Hasher interface {
	Hash(password string) (string, error)
	Compare(digest, password string) error

	// IsDigest は s がこのハッシャーで生成されたダイジェストかを返します。
	IsDigest(s string) bool
}

// Sanitizer は保存前にユーザー入力のマークアップを無害化します。
type Sanitizer interface {
	Sanitize(s string) string
}

// RateLimiter はキーごとの操作頻度を制限します。
type RateLimiter interface {
	Allow(key string) bool
}
