package router

import (
	"github.com/gin-gonic/gin"

	forumhandler "forum_backend/internal/feature/forum/transport/handler"
	platformhandler "forum_backend/internal/platform/http/handler"
	jwtmw "forum_backend/internal/platform/jwt"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth   *forumhandler.AuthHandler
	System *forumhandler.SystemHandler
	Meets  *forumhandler.MeetHandler
	Reset  *forumhandler.PasswordResetHandler
	Probe  platformhandler.StorageProbe
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	health := platformhandler.Health(h.Probe)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	// ログイン（JWT 発行）
	r.POST("/login", h.Auth.Login)
	// 初期化状態とストレージ種別
	r.GET("/status", h.System.Status)
	r.GET("/meets", h.Meets.List)
	r.GET("/meets/:id", h.Meets.Get)

	// パスワードリセット
	reset := r.Group("/password-reset")
	{
		reset.POST("/request", h.Reset.Request)
		reset.POST("/verify", h.Reset.Verify)
		reset.POST("/complete", h.Reset.Complete)
	}

	// 認証必須のルート
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired())
	{
		auth.POST("/meets/:id/rsvp", h.Meets.RSVP)
		auth.DELETE("/meets/:id/rsvp", h.Meets.CancelRSVP)
	}

	// 管理者のみ
	admin := r.Group("/admin")
	admin.Use(jwtmw.AuthRequired(), jwtmw.RequireRole("admin"))
	{
		admin.GET("/stats", h.System.Stats)
		admin.GET("/dump", h.System.Dump)
		admin.POST("/initialize", h.System.Initialize)
		admin.POST("/reinitialize", h.System.Reinitialize)
		admin.POST("/repair-passwords", h.System.RepairPasswords)
		admin.POST("/purge-tokens", h.System.PurgeTokens)
		admin.DELETE("/data", h.System.Clear)
	}

	return r
}
