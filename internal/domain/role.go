package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a role string is outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// ErrUnknownStatus is returned when a status string is outside the closed set.
var ErrUnknownStatus = errors.New("unknown status")

// Role is the authorization role carried by a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Roles returns every valid role.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleManager}
}

// ParseRole normalizes s and rejects values outside the closed set.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin, RoleManager:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// IsValid reports whether r is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// MarshalJSON refuses to emit roles outside the closed set.
func (r Role) MarshalJSON() ([]byte, error) {
	parsed, err := ParseRole(string(r))
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(parsed))
}

// UnmarshalJSON normalizes and validates the incoming role.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Status represents lifecycle states for an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus normalizes s and rejects values outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusInactive, StatusSuspended:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// IsValid reports whether s is one of the predefined statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// MarshalJSON refuses to emit statuses outside the closed set.
func (s Status) MarshalJSON() ([]byte, error) {
	parsed, err := ParseStatus(string(s))
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(parsed))
}

// UnmarshalJSON normalizes and validates the incoming status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
