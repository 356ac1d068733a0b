package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned when a phone number cannot be parsed.
var ErrInvalidPhone = errors.New("invalid phone number")

// User is the identity and profile snapshot shared by the API and its clients.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Phone           string    `json:"phone,omitempty"`
	Department      string    `json:"department,omitempty"`
	Position        string    `json:"position,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Role            Role      `json:"role"`
	Status          Status    `json:"status"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	PasswordHash    string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Valid reports whether u has an id and a role and status from the closed sets.
// Absent JSON fields never reach the enum decoders, so decoded users need this check.
func (u *User) Valid() bool {
	return u != nil && u.ID != "" && u.Role.IsValid() && u.Status.IsValid()
}

// Clone returns an independent copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// Equal compares the client-visible profile of two users.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID &&
		u.Email == other.Email &&
		u.FirstName == other.FirstName &&
		u.LastName == other.LastName &&
		u.Phone == other.Phone &&
		u.Department == other.Department &&
		u.Position == other.Position &&
		u.Avatar == other.Avatar &&
		u.Role == other.Role &&
		u.Status == other.Status &&
		u.IsEmailVerified == other.IsEmailVerified &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.UpdatedAt.Equal(other.UpdatedAt)
}

// NormalizeEmail trims and lower-cases an address; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone formats raw as E.164 using region as the default country.
// An empty input stays empty.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = "US"
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
