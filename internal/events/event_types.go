package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered             EventType = "user_registered"
	EventPasswordResetRequested     EventType = "password_reset_requested"
	EventPasswordChanged            EventType = "password_changed"
	EventEmailVerificationRequested EventType = "email_verification_requested"
	EventEmailVerified              EventType = "email_verified"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountPayload carries the recipient of an account notification.
type AccountPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// TokenPayload carries a single-use token to deliver by email.
type TokenPayload struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
