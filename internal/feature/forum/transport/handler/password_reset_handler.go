package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/transport/http/dto"
)

// ResetStore はパスワードリセットのトークン操作です。
type ResetStore interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	IssueResetToken(ctx context.Context, userID string) (string, error)
	VerifyToken(ctx context.Context, token string) (*entity.ResetToken, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// ResetNotifier は発行したトークンを利用者へ届けます。
type ResetNotifier interface {
	NotifyReset(ctx context.Context, user *entity.User, token string) error
}

// LogNotifier はメール送信の代わりに発行をログへ記録するだけのNotifierです。
// トークン自体はログに出しません。
type LogNotifier struct{}

// NotifyReset implements ResetNotifier.
func (LogNotifier) NotifyReset(_ context.Context, user *entity.User, _ string) error {
	slog.Info("password reset token issued", "user_id", user.ID)
	return nil
}

// PasswordResetHandler はパスワードリセットの3ステップを処理します。
type PasswordResetHandler struct {
	store    ResetStore
	notifier ResetNotifier
}

// NewPasswordResetHandler はPasswordResetHandlerを生成します。notifierがnilの場合はLogNotifierを使います。
func NewPasswordResetHandler(store ResetStore, notifier ResetNotifier) *PasswordResetHandler {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &PasswordResetHandler{store: store, notifier: notifier}
}

// Request はメールアドレス宛にリセットトークンを発行します。
// ユーザー列挙を防ぐため、未登録・レート制限でも202を返します。
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req dto.ResetRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("reset request validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}
	ctx := c.Request.Context()
	accepted := dto.MessageRes{Message: "if the address is registered, a reset link has been sent"}

	u, err := h.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("reset requested for unknown email", "remote_addr", c.ClientIP())
		c.JSON(http.StatusAccepted, accepted)
		return
	}
	if err != nil {
		respondError(c, "reset request", err)
		return
	}

	token, err := h.store.IssueResetToken(ctx, u.ID)
	if errors.Is(err, domain.ErrRateLimited) {
		slog.Warn("reset request rate limited", "user_id", u.ID, "remote_addr", c.ClientIP())
		c.JSON(http.StatusAccepted, accepted)
		return
	}
	if err != nil {
		respondError(c, "reset request", err)
		return
	}
	if err := h.notifier.NotifyReset(ctx, u, token); err != nil {
		respondError(c, "reset notify", err)
		return
	}
	c.JSON(http.StatusAccepted, accepted)
}

// Verify はトークンが有効かを返します。無効な理由は区別しません。
func (h *PasswordResetHandler) Verify(c *gin.Context) {
	var req dto.ResetVerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}
	t, err := h.store.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, "reset verify", err)
		return
	}
	c.JSON(http.StatusOK, dto.ResetVerifyRes{Valid: true, ExpiresAt: t.ExpiresAt})
}

// Complete はトークンを消費して新しいパスワードを設定します。
func (h *PasswordResetHandler) Complete(c *gin.Context) {
	var req dto.ResetCompleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("reset complete validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return
	}
	if err := h.store.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, "reset complete", err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: "password updated"})
}
