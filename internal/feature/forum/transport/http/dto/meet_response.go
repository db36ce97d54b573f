package dto

import (
	"time"

	"forum_backend/internal/feature/forum/domain/entity"
)

// AttendeeResponse は参加者の公開情報です。メールアドレスは含めません。
type AttendeeResponse struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	RSVPedAt time.Time `json:"rsvpedAt"`
}

// MeetResponse はミートのレスポンスDTOです。
type MeetResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	StartsAt    *time.Time         `json:"startsAt,omitempty"`
	Capacity    int                `json:"capacity"` // 0 は無制限（ストア設定による）
	Attendees   []AttendeeResponse `json:"attendees"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewMeetResponse はエンティティから公開用のDTOを組み立てます。
func NewMeetResponse(m *entity.Meet) MeetResponse {
	attendees := make([]AttendeeResponse, 0, len(m.Attendees))
	for _, a := range m.Attendees {
		attendees = append(attendees, AttendeeResponse{UserID: a.UserID, Name: a.Name, RSVPedAt: a.RSVPedAt})
	}
	return MeetResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Location:    m.Location,
		StartsAt:    m.StartsAt,
		Capacity:    m.Capacity,
		Attendees:   attendees,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// NewMeetResponses は一覧用です。
func NewMeetResponses(ms []*entity.Meet) []MeetResponse {
	out := make([]MeetResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, NewMeetResponse(m))
	}
	return out
}
