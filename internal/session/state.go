package session

import (
	"fmt"

	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// State of the session.
type State int

const (
	Initializing State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is an immutable view of the session at one point in its history.
type Snapshot struct {
	State State
	User  *domain.User
	Token string
	Epoch uint64
}

// IsAuthenticated reports whether the snapshot carries a user and token.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == Authenticated
}

// Role returns the user's role, or "" when anonymous.
func (s Snapshot) Role() domain.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.User = s.User.Clone()
	return out
}

// StartupPolicy decides whether a cached user is trusted at startup.
type StartupPolicy int

const (
	// TrustCache restores the cached user without a network call; a rejected
	// token is discovered by the first authenticated call.
	TrustCache StartupPolicy = iota
	// Revalidate confirms the cached token with the server before restoring.
	Revalidate
)

// ParseStartupPolicy maps configuration values onto policies.
func ParseStartupPolicy(s string) (StartupPolicy, error) {
	switch s {
	case "", config.StartupTrustCache:
		return TrustCache, nil
	case config.StartupRevalidate:
		return Revalidate, nil
	}
	return TrustCache, fmt.Errorf("unknown startup policy %q", s)
}
