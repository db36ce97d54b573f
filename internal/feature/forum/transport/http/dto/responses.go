package dto

import "time"

// ErrorRes is the body of every error response.
type ErrorRes struct {
	Error string `json:"error"`
}

// MessageRes is a plain acknowledgement.
type MessageRes struct {
	Message string `json:"message"`
}

// TokenRes carries a signed JWT.
type TokenRes struct {
	Token string `json:"token"`
}

// RepairRes reports how many stored passwords were rehashed.
type RepairRes struct {
	Repaired int `json:"repaired"`
}

// ResetVerifyRes reports a valid reset token without exposing its owner.
type ResetVerifyRes struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expiresAt"`
}
