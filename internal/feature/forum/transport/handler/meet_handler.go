package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"forum_backend/internal/feature/forum/domain/entity"
	"forum_backend/internal/feature/forum/transport/http/dto"
	jwtmw "forum_backend/internal/platform/jwt"
)

// MeetStore はミートの参照とRSVP操作です。
type MeetStore interface {
	ListMeets(ctx context.Context) ([]*entity.Meet, error)
	GetMeet(ctx context.Context, id string) (*entity.Meet, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
	RSVP(ctx context.Context, meetID string, a entity.Attendee) (*entity.Meet, error)
	CancelRSVP(ctx context.Context, meetID, userID string) (*entity.Meet, error)
}

// MeetHandler はミート一覧と参加表明を処理します。
// 参加者のメールアドレスはレスポンスに含めません。
type MeetHandler struct {
	store MeetStore
}

// NewMeetHandler はMeetHandlerを生成します。
func NewMeetHandler(store MeetStore) *MeetHandler {
	return &MeetHandler{store: store}
}

// List は開始日時順のミート一覧を返します。
func (h *MeetHandler) List(c *gin.Context) {
	meets, err := h.store.ListMeets(c.Request.Context())
	if err != nil {
		respondError(c, "list meets", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMeetResponses(meets))
}

// Get は1件のミートを返します。
func (h *MeetHandler) Get(c *gin.Context) {
	m, err := h.store.GetMeet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get meet", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewMeetResponse(m))
}

// RSVP はログイン中のユーザーを参加者に追加します。
// 参加者名とメールはトークンではなく保存済みのユーザーから取ります。
// 満席の場合は409、既に参加済みの場合はそのまま200を返します。
func (h *MeetHandler) RSVP(c *gin.Context) {
	ctx := c.Request.Context()
	meetID := c.Param("id")

	u, err := h.store.GetUser(ctx, c.GetString(jwtmw.ContextUserID))
	if err != nil {
		respondError(c, "rsvp", err)
		return
	}
	name := u.Name
	if name == "" {
		name = u.Username
	}

	m, err := h.store.RSVP(ctx, meetID, entity.Attendee{UserID: u.ID, Name: name, Email: u.Email})
	if err != nil {
		respondError(c, "rsvp", err)
		return
	}
	slog.Info("rsvp accepted", "meet_id", meetID, "user_id", u.ID)
	c.JSON(http.StatusOK, dto.NewMeetResponse(m))
}

// CancelRSVP はログイン中のユーザーの参加を取り消します。
func (h *MeetHandler) CancelRSVP(c *gin.Context) {
	meetID := c.Param("id")
	userID := c.GetString(jwtmw.ContextUserID)

	m, err := h.store.CancelRSVP(c.Request.Context(), meetID, userID)
	if err != nil {
		respondError(c, "cancel rsvp", err)
		return
	}
	slog.Info("rsvp cancelled", "meet_id", meetID, "user_id", userID)
	c.JSON(http.StatusOK, dto.NewMeetResponse(m))
}
