package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/transport/http/dto"
	"forum_backend/internal/feature/forum/usecase"
	jwtmw "forum_backend/internal/platform/jwt"
)

// SystemStore は初期化・メンテナンス系の操作です。
type SystemStore interface {
	GetSystemStatus(ctx context.Context) (entity.SystemStatus, error)
	GetStats(ctx context.Context) (entity.Stats, error)
	Initialize(ctx context.Context, opts usecase.InitOptions) error
	ForceReinitialize(ctx context.Context, opts usecase.InitOptions) error
	ForceReinitializeWithHashedPasswords(ctx context.Context, opts usecase.InitOptions) (int, error)
	RepairPasswords(ctx context.Context) (int, error)
	GetAllDataWithDeleted(ctx context.Context) (*entity.Dump, error)
	ClearAllData(ctx context.Context) error
	PurgeExpiredTokens(ctx context.Context) (int, error)
}

// SystemHandler はステータス参照と管理者向けメンテナンスを処理します。
type SystemHandler struct {
	store SystemStore
}

// NewSystemHandler はSystemHandlerを生成します。
func NewSystemHandler(store SystemStore) *SystemHandler {
	return &SystemHandler{store: store}
}

// Status は初期化状態・ストレージ種別・統計を返します。ストアを初期化しません。
func (h *SystemHandler) Status(c *gin.Context) {
	status, err := h.store.GetSystemStatus(c.Request.Context())
	if err != nil {
		respondError(c, "system status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Stats は集計値のみを返します。
func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Initialize は未初期化の場合のみシードします。
func (h *SystemHandler) Initialize(c *gin.Context) {
	opts, ok := bindInitOptions(c)
	if !ok {
		return
	}
	if err := h.store.Initialize(c.Request.Context(), opts); err != nil {
		respondError(c, "initialize", err)
		return
	}
	h.Status(c)
}

// Reinitialize は全データを消去して再シードします。
// ?repairPasswords=true の場合はパスワードの修復も行います。
func (h *SystemHandler) Reinitialize(c *gin.Context) {
	opts, ok := bindInitOptions(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if c.Query("repairPasswords") == "true" {
		n, err := h.store.ForceReinitializeWithHashedPasswords(ctx, opts)
		if err != nil {
			respondError(c, "reinitialize", err)
			return
		}
		slog.Warn("store reinitialized", "repaired", n, "admin", c.GetString(jwtmw.ContextUserID))
		c.JSON(http.StatusOK, dto.RepairRes{Repaired: n})
		return
	}

	if err := h.store.ForceReinitialize(ctx, opts); err != nil {
		respondError(c, "reinitialize", err)
		return
	}
	slog.Warn("store reinitialized", "admin", c.GetString(jwtmw.ContextUserID))
	h.Status(c)
}

// RepairPasswords は平文で保存されたパスワードをハッシュ化し直します。
func (h *SystemHandler) RepairPasswords(c *gin.Context) {
	n, err := h.store.RepairPasswords(c.Request.Context())
	if err != nil {
		respondError(c, "repair passwords", err)
		return
	}
	c.JSON(http.StatusOK, dto.RepairRes{Repaired: n})
}

// Dump は論理削除済みを含む全データを返します。
func (h *SystemHandler) Dump(c *gin.Context) {
	dump, err := h.store.GetAllDataWithDeleted(c.Request.Context())
	if err != nil {
		respondError(c, "dump", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dump)
}

// Clear は全データを物理削除します。再シードは行いません。
func (h *SystemHandler) Clear(c *gin.Context) {
	if err := h.store.ClearAllData(c.Request.Context()); err != nil {
		respondError(c, "clear", err)
		return
	}
	slog.Warn("all forum data cleared", "admin", c.GetString(jwtmw.ContextUserID))
	c.Status(http.StatusNoContent)
}

// PurgeTokens は期限切れのリセットトークンを削除します。
func (h *SystemHandler) PurgeTokens(c *gin.Context) {
	n, err := h.store.PurgeExpiredTokens(c.Request.Context())
	if err != nil {
		respondError(c, "purge tokens", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}

// bindInitOptions は省略可能なJSONボディを読み取ります。
func bindInitOptions(c *gin.Context) (usecase.InitOptions, bool) {
	var req dto.InitializeReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("init options validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request"})
		return usecase.InitOptions{}, false
	}
	return usecase.InitOptions{IncludeSampleGroups: req.IncludeSampleGroups}, true
}
