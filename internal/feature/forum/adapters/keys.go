// Package adapters はforumフィーチャーのリポジトリ実装を kv.Backend 上に提供します。
package adapters

import "forum_backend/internal/feature/forum/domain/entity"

// DefaultNamespace はフォーラムの全キーに付く接頭辞です。
const DefaultNamespace = "forum"

// エンティティ以外のコレクション接頭辞
const (
	collTokens   = "tokens"
	collSettings = "settings"
	collIndex    = "idx"
	collDeleted  = "deleted"
	collMeta     = "meta"
)

// Keyspace は永続化するキーの構成を組み立てます。
//
//	<ns>:<collection>:<id>
//	<ns>:idx:username:<username>
//	<ns>:idx:email:<lower-email>
//	<ns>:deleted:<collection>:<id>
//	<ns>:meta:initialized
type Keyspace struct {
	ns string
}

func NewKeyspace(namespace string) Keyspace {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keyspace{ns: namespace}
}

// Root はストアの全キーに共通する接頭辞です。
func (k Keyspace) Root() string { return k.ns + ":" }

// Collection はコレクションのレコードのキー接頭辞です。
func (k Keyspace) Collection(name string) string { return k.ns + ":" + name + ":" }

func (k Keyspace) UsernameIndex(username string) string {
	return k.ns + ":" + collIndex + ":username:" + username
}

func (k Keyspace) EmailIndex(email string) string {
	return k.ns + ":" + collIndex + ":email:" + entity.NormalizeEmail(email)
}

func (k Keyspace) Deleted(collection, id string) string {
	return k.DeletedPrefix(collection) + id
}

// DeletedPrefix は1コレクション分の論理削除ログの接頭辞です。collection が空なら全コレクション分です。
func (k Keyspace) DeletedPrefix(collection string) string {
	if collection == "" {
		return k.ns + ":" + collDeleted + ":"
	}
	return k.ns + ":" + collDeleted + ":" + collection + ":"
}

func (k Keyspace) Marker() string { return k.ns + ":" + collMeta + ":initialized" }

// LockPrefix はロックのリースを Root の外に置き、全消去で保持中のロックが消えないようにします。
func (k Keyspace) LockPrefix() string { return k.ns + "-lock:" }
