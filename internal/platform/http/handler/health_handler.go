// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import "github.com/gin-gonic/gin"

// StorageKindHeader は現在のストレージ種別（durable / fallback）を返すヘッダーです。
const StorageKindHeader = "X-Storage-Kind"

// StorageProbe は現在のストレージ種別を返します。
type StorageProbe func() string

// Health はサービスヘルスチェック用の /healthz エンドポイントを返します。
// HTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
// メモリフォールバックで動作している場合もプロセス自体は健全なので200を返し、
// 種別はヘッダーとボディで知らせます。
func Health(probe StorageProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		kind := ""
		if probe != nil {
			kind = probe()
			c.Header(StorageKindHeader, kind)
		}

		// すべてのGET/HEAD/OPTIONSリクエストに対して200または204を返す
		switch c.Request.Method {
		case "HEAD":
			c.Status(200)
		case "OPTIONS":
			c.Status(204)
		default:
			body := gin.H{"status": "ok"}
			if kind != "" {
				body["storage"] = kind
			}
			c.JSON(200, body)
		}
	}
}
