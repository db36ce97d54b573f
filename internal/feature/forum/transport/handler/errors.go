// Package handler はforumフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_backend/internal/feature/forum/domain"
	"forum_backend/internal/feature/forum/transport/http/dto"
)

// statusOf はドメインエラーをHTTPステータスに変換します。
// ErrNotAttendingはErrNotFoundを包むため先に判定します。
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAttending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateKey),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrPostLocked):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotInitialized), errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError はエラーをログに残し、ステータスに応じたJSONを返します。
// 5xxの場合は内部エラーの詳細を公開しません。
func respondError(c *gin.Context, op string, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err, "remote_addr", c.ClientIP())
		msg = http.StatusText(status)
	} else {
		slog.Warn(op+" rejected", "error", err, "remote_addr", c.ClientIP())
	}
	c.AbortWithStatusJSON(status, dto.ErrorRes{Error: msg})
}
