package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/transport/http/dto"
)

// Authenticator はログイン認証を行うユースケースです。
// インターフェースはコンシューマー（handler）側で定義します。
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*entity.User, error)
}

// TokenGenerator は認証済みユーザーにJWTを発行します。
type TokenGenerator interface {
	GenerateToken(userID, email, role string) (string, error)
}

// AuthHandler はログインのHTTPリクエストを処理します。
type AuthHandler struct {
	auth   Authenticator
	tokens TokenGenerator
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth Authenticator, tokens TokenGenerator) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

// Login はユーザー名またはメールアドレスとパスワードで認証し、JWTを返します。
// - バリデーションエラー時は400
// - 認証失敗時は401（ユーザーの存在有無は明かさない）
// - ストレージ障害時は503
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if statusOf(err) == http.StatusServiceUnavailable {
			respondError(c, "login", err)
			return
		}
		slog.Warn("login failed", "error", err, "login", req.Login, "remote_addr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, dto.ErrorRes{Error: "invalid username or password"})
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		respondError(c, "login", err)
		return
	}
	slog.Info("user login successful", "user_id", user.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.TokenRes{Token: token})
}
