package adapters

import (
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/usecase"
	"forum_backend/internal/platform/kv"
)

// NewRepositories はフォーラムの全コレクションを namespace 配下で b に結び付けます。
func NewRepositories(b kv.Backend, namespace string) usecase.Repositories {
	keys := NewKeyspace(namespace)
	return usecase.Repositories{
		Users: NewUserKV(b, keys),
		Categories: newKVCollection(b, keys.Collection(entity.CollectionCategories),
			func(c *entity.Category) string { return c.ID }),
		Posts: newKVCollection(b, keys.Collection(entity.CollectionPosts),
			func(p *entity.Post) string { return p.ID }),
		Replies: newKVCollection(b, keys.Collection(entity.CollectionReplies),
			func(r *entity.Reply) string { return r.ID }),
		Meets: newKVCollection(b, keys.Collection(entity.CollectionMeets),
			func(m *entity.Meet) string { return m.ID }),
		Tokens: newKVCollection(b, keys.Collection(collTokens),
			func(t *entity.ResetToken) string { return t.Token }),
		Settings: newKVCollection(b, keys.Collection(collSettings),
			func(s *entity.Settings) string { return s.Name }),
		Deleted: NewDeletedKV(b, keys),
		System:  NewSystemKV(b, keys),
	}
}

// NewLocker は b 用のロッカーを返します。リースはデータの名前空間の外に置かれます。
func NewLocker(b kv.Backend, namespace string) *kv.Locker {
	return kv.NewLocker(b, NewKeyspace(namespace).LockPrefix(), kv.DefaultLeaseTTL)
}
