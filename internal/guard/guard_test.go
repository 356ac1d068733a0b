package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKGhartey/task-manager-sub001/internal/credstore"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/session"
)

func authenticated(role domain.Role) session.Snapshot {
	return session.Snapshot{
		State: session.Authenticated,
		User:  &domain.User{ID: "u1", Role: role, Status: domain.StatusActive},
		Token: "tok",
		Epoch: 1,
	}
}

// ---------------------------------------------------------------------------
// Check
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	initializing := session.Snapshot{State: session.Initializing}
	anonymous := session.Snapshot{State: session.Anonymous}

	tests := []struct {
		name string
		snap session.Snapshot
		rule Rule
		want Outcome
	}{
		{"initializing public", initializing, Public, Wait},
		{"initializing protected", initializing, Authenticated, Wait},
		{"anonymous public", anonymous, Public, Allow},
		{"anonymous protected", anonymous, Authenticated, Redirect},
		{"anonymous admin", anonymous, Only(domain.RoleAdmin), Redirect},
		{"user any authenticated", authenticated(domain.RoleUser), Authenticated, Allow},
		{"user on admin", authenticated(domain.RoleUser), Only(domain.RoleAdmin), Redirect},
		{"manager on admin", authenticated(domain.RoleManager), Only(domain.RoleAdmin), Redirect},
		{"admin on admin", authenticated(domain.RoleAdmin), Only(domain.RoleAdmin), Allow},
		{"manager on manager", authenticated(domain.RoleManager), Only(domain.RoleManager), Allow},
		{"admin on shared", authenticated(domain.RoleAdmin), Only(domain.RoleAdmin, domain.RoleManager), Allow},
		{"authenticated without user", session.Snapshot{State: session.Authenticated}, Authenticated, Redirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.snap, tt.rule)
			assert.Equal(t, tt.want, got.Outcome)
			if tt.want == Redirect {
				assert.Equal(t, LoginPath, got.Target)
			} else {
				assert.Empty(t, got.Target)
			}
		})
	}
}

func TestCheck_NeverAllowsProtectedWithoutMatchingRole(t *testing.T) {
	table := DefaultTable()
	snaps := []session.Snapshot{
		{State: session.Initializing},
		{State: session.Anonymous},
		authenticated(domain.RoleUser),
		authenticated(domain.RoleManager),
		authenticated(domain.RoleAdmin),
	}
	for _, route := range table {
		for _, snap := range snaps {
			d := Check(snap, route.Rule)
			if d.Outcome != Allow || !route.Rule.RequireAuth {
				continue
			}
			require.Equal(t, session.Authenticated, snap.State, route.Prefix)
			if len(route.Rule.Roles) > 0 {
				assert.Contains(t, route.Rule.Roles, snap.User.Role, route.Prefix)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, Only(domain.RoleAdmin), table.Resolve("/admin"))
	assert.Equal(t, Only(domain.RoleAdmin), table.Resolve("/admin/users/42"))
	assert.Equal(t, Only(domain.RoleManager), table.Resolve("/Manager/"))
	assert.Equal(t, Only(domain.RoleUser), table.Resolve("dashboard?tab=tasks"))
	assert.Equal(t, Authenticated, table.Resolve("/profile"))
	assert.Equal(t, Public, table.Resolve("/login"))
	assert.Equal(t, Public, table.Resolve("/reset-password#token"))
	assert.Equal(t, Public, table.Resolve("/verify-email"))
	assert.Equal(t, Authenticated, table.Resolve("/administrator"), "prefix must match a whole segment")
	assert.Equal(t, Authenticated, table.Resolve("/somewhere-else"))
}

func TestHomeFor(t *testing.T) {
	assert.Equal(t, "/admin", HomeFor(domain.RoleAdmin))
	assert.Equal(t, "/manager", HomeFor(domain.RoleManager))
	assert.Equal(t, "/dashboard", HomeFor(domain.RoleUser))
	assert.Equal(t, LoginPath, HomeFor("guest"))

	table := DefaultTable()
	for _, role := range domain.Roles() {
		d := Check(authenticated(role), table.Resolve(HomeFor(role)))
		assert.Equal(t, Allow, d.Outcome, role)
	}
}

// ---------------------------------------------------------------------------
// Await
// ---------------------------------------------------------------------------

func TestAwait(t *testing.T) {
	t.Run("waits while initializing", func(t *testing.T) {
		ctrl := session.New(credstore.NewMemoryStore(), session.Options{})
		defer ctrl.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Equal(t, Wait, Await(ctx, ctrl, Authenticated).Outcome)
	})

	t.Run("decides after start", func(t *testing.T) {
		ctrl := session.New(credstore.NewMemoryStore(), session.Options{})
		defer ctrl.Close()
		require.NoError(t, ctrl.Start(context.Background()))

		d := Await(context.Background(), ctrl, Only(domain.RoleAdmin))
		assert.Equal(t, Redirect, d.Outcome)

		admin := &domain.User{ID: "a1", Email: "admin@x.com", Role: domain.RoleAdmin, Status: domain.StatusActive}
		require.NoError(t, ctrl.Login(context.Background(), admin, "tok"))
		assert.Equal(t, Allow, Await(context.Background(), ctrl, Only(domain.RoleAdmin)).Outcome)

		require.NoError(t, ctrl.Logout(context.Background()))
		assert.Equal(t, Redirect, Await(context.Background(), ctrl, Only(domain.RoleAdmin)).Outcome)
	})
}
