package entity

import "time"

// Attendee is one RSVP on a meet. A user appears at most once per meet.
type Attendee struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	RSVPedAt time.Time `json:"rsvpedAt"`
}

// Meet is a community event with an optional seat limit.
type Meet struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`

	// Capacity is the seat limit. How 0 is read is a store option
	// (unlimited by default).
	Capacity int `json:"capacity"`

	// Attendees keeps RSVP order.
	Attendees []Attendee `json:"attendees"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// IndexOf returns the position of userID in the attendee list, or -1.
func (m *Meet) IndexOf(userID string) int {
	for i, a := range m.Attendees {
		if a.UserID == userID {
			return i
		}
	}
	return -1
}

// MeetPatch lists the meet fields to overwrite on update.
// Attendees change only through RSVP and cancel.
type MeetPatch struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	Capacity    *int
}
