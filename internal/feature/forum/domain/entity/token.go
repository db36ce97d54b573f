package entity

import "time"

// ResetToken is a single-use password reset token.
type ResetToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Consumed  bool      `json:"consumed"`
}

// IsExpired reports whether the token has passed its expiry at now.
func (t *ResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether the token is neither consumed nor expired at now.
func (t *ResetToken) IsValid(now time.Time) bool {
	return !t.Consumed && !t.IsExpired(now)
}
