package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/credstore"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

// --- Fake API ---

type fakeAPI struct {
	mu       sync.Mutex
	users    map[string]*domain.User // by email
	tokens   map[string]string       // token -> email
	profiles []map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{
		users: map[string]*domain.User{
			"admin@x.com": {ID: "a1", Email: "admin@x.com", FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin, Status: domain.StatusActive, IsEmailVerified: true, CreatedAt: created, UpdatedAt: created},
		},
		tokens: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		api.mu.Lock()
		defer api.mu.Unlock()
		u, ok := api.users[strings.ToLower(in.Email)]
		if !ok || in.Password != "Admin123!" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "code": "INVALID_CREDENTIALS", "message": "Invalid email or password"})
			return
		}
		token := "tok-" + u.ID
		api.tokens[token] = u.Email
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": u, "token": token}})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in authclient.SignupInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		api.mu.Lock()
		defer api.mu.Unlock()
		if _, exists := api.users[in.Email]; exists {
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "code": "CONFLICT", "message": "Email already registered", "errors": map[string]any{"email": "already registered"}})
			return
		}
		u := &domain.User{ID: "u2", Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: domain.RoleUser, Status: domain.StatusActive, CreatedAt: created, UpdatedAt: created}
		api.users[in.Email] = u
		api.tokens["tok-u2"] = in.Email
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"user": u, "token": "tok-u2", "emailVerificationToken": "verify-1"}})
	})
	mux.HandleFunc("POST /auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "code": "NOT_FOUND", "message": "no such user"})
	})
	mux.HandleFunc("POST /auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Token string }
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Token != "verify-1" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "code": "INVALID_OR_EXPIRED_TOKEN", "message": "Verification link is invalid or has expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email verified"})
	})
	mux.HandleFunc("GET /auth/me", api.withUser(func(w http.ResponseWriter, r *http.Request, u *domain.User) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": u}})
	}))
	mux.HandleFunc("PUT /auth/profile", api.withUser(func(w http.ResponseWriter, r *http.Request, u *domain.User) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		api.mu.Lock()
		api.profiles = append(api.profiles, in)
		if v, ok := in["position"].(string); ok {
			u.Position = v
		}
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": u}})
	}))
	mux.HandleFunc("POST /auth/logout", api.withUser(func(w http.ResponseWriter, r *http.Request, _ *domain.User) {
		api.revoke(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) withUser(next func(http.ResponseWriter, *http.Request, *domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		email, ok := f.tokens[token]
		u := f.users[email]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "code": "UNAUTHORIZED", "message": "Token revoked"})
			return
		}
		next(w, r, u)
	}
}

func (f *fakeAPI) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// --- Harness ---

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *scriptedPrompter) Input(title string, _ bool) (string, error) {
	p.asked = append(p.asked, title)
	v, ok := p.answers[title]
	if !ok {
		return "", errNoTerminal
	}
	return v, nil
}

type harness struct {
	t        *testing.T
	baseURL  string
	store    *credstore.MemoryStore
	prompter *scriptedPrompter
}

func newHarness(t *testing.T) (*harness, *fakeAPI) {
	api, srv := newFakeAPI(t)
	return &harness{
		t:        t,
		baseURL:  srv.URL,
		store:    credstore.NewMemoryStore(),
		prompter: &scriptedPrompter{answers: map[string]string{}},
	}, api
}

// run executes one taskctl process against the shared store.
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	cfg := &config.Config{
		Client: config.ClientConfig{
			BaseURL:              h.baseURL,
			Timeout:              5 * time.Second,
			BreakerFailureRatio:  1,
			BreakerMinRequests:   100,
			BreakerOpenTimeout:   time.Second,
			BreakerCountInterval: time.Minute,
		},
		Session: config.SessionConfig{Store: config.StoreMemory, StartupPolicy: config.StartupTrustCache},
	}
	err := Run(context.Background(), Options{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Store:    h.store,
		Prompter: h.prompter,
		Out:      &out,
		Err:      &errOut,
	}, args)
	return out.String(), errOut.String(), err
}

func (h *harness) storedUser() *domain.User {
	h.t.Helper()
	entry, err := h.store.Load(context.Background())
	require.NoError(h.t, err)
	if entry.IsEmpty() {
		return nil
	}
	var u domain.User
	require.NoError(h.t, json.Unmarshal(entry.User, &u))
	return &u
}

// ---------------------------------------------------------------------------
// Sign in and navigation
// ---------------------------------------------------------------------------

func TestAdminLoginOpensAdminDashboard(t *testing.T) {
	h, _ := newHarness(t)

	out, _, err := h.run("login", "--email", "admin@x.com", "--password", "Admin123!")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, Ada Admin.")
	assert.Contains(t, out, "/admin")
	require.NotNil(t, h.storedUser())
	assert.Equal(t, domain.RoleAdmin, h.storedUser().Role)

	out, _, err = h.run("open", "/admin/users")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin dashboard")
	assert.Contains(t, out, "admin@x.com")

	_, _, err = h.run("open", "/manager")
	assert.ErrorIs(t, err, ErrAccessDenied)

	out, _, err = h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin dashboard")
}

func TestLogoutThenProtectedViewRedirects(t *testing.T) {
	h, api := newHarness(t)
	_, _, err := h.run("login", "--email", "admin@x.com", "--password", "Admin123!")
	require.NoError(t, err)

	out, _, err := h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")
	assert.Nil(t, h.storedUser())
	api.mu.Lock()
	assert.Empty(t, api.tokens, "server-side token revoked")
	api.mu.Unlock()

	out, stderr, err := h.run("open", "/admin")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, out, "redirecting to /login")
	assert.Contains(t, stderr, "access denied")

	out, _, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLoginFailureIsReportedAndNothingStored(t *testing.T) {
	h, _ := newHarness(t)

	_, stderr, err := h.run("login", "--email", "admin@x.com", "--password", "wrong-pass")
	require.Error(t, err)
	assert.True(t, authclient.IsKind(err, authclient.KindInvalidCredentials))
	assert.Contains(t, stderr, "Invalid email or password")
	assert.Nil(t, h.storedUser())
}

func TestLoginPromptsForMissingFlags(t *testing.T) {
	h, _ := newHarness(t)
	h.prompter.answers["Email"] = "admin@x.com"
	h.prompter.answers["Password"] = "Admin123!"

	_, _, err := h.run("login")
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Password"}, h.prompter.asked)
	assert.NotNil(t, h.storedUser())
}

func TestLoginWithoutTerminalRequiresFlags(t *testing.T) {
	h, _ := newHarness(t)

	_, stderr, err := h.run("login", "--password", "Admin123!")
	require.Error(t, err)
	assert.Contains(t, stderr, "--email is required")
}

func TestRejectedTokenForcesLogout(t *testing.T) {
	h, api := newHarness(t)
	_, _, err := h.run("login", "--email", "admin@x.com", "--password", "Admin123!")
	require.NoError(t, err)

	api.revoke("tok-a1")

	_, stderr, err := h.run("whoami")
	require.Error(t, err)
	assert.True(t, authclient.IsKind(err, authclient.KindUnauthenticated))
	assert.Contains(t, stderr, "Token revoked")
	assert.Nil(t, h.storedUser(), "rejected session must be cleared")
}

func TestWhoamiWhenLoggedOut(t *testing.T) {
	h, _ := newHarness(t)
	_, stderr, err := h.run("whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.Contains(t, stderr, "taskctl login")
}

// ---------------------------------------------------------------------------
// Account flows
// ---------------------------------------------------------------------------

func TestSignupVerifyAndUserDashboard(t *testing.T) {
	h, _ := newHarness(t)

	out, _, err := h.run("signup", "--first-name", "Uma", "--last-name", "User", "--email", "uma@x.com", "--password", "password1")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created for uma@x.com.")
	assert.Contains(t, out, "verify-1")
	require.NotNil(t, h.storedUser())
	assert.False(t, h.storedUser().IsEmailVerified)

	_, _, err = h.run("verify-email", "--token", "expired")
	require.Error(t, err)
	assert.True(t, authclient.IsKind(err, authclient.KindInvalidOrExpiredToken))

	out, _, err = h.run("verify-email", "--token", "verify-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Email verified")
	assert.True(t, h.storedUser().IsEmailVerified)

	out, _, err = h.run("dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "My tasks")

	_, _, err = h.run("open", "/admin")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSignupDuplicateShowsFieldErrors(t *testing.T) {
	h, _ := newHarness(t)

	_, stderr, err := h.run("signup", "--first-name", "Ada", "--last-name", "Admin", "--email", "admin@x.com", "--password", "password1")
	require.Error(t, err)
	assert.True(t, authclient.IsKind(err, authclient.KindValidation))
	assert.Contains(t, stderr, "Email already registered")
	assert.Contains(t, stderr, "already registered")
	assert.Nil(t, h.storedUser())
}

func TestSignupShortPasswordRejectedLocally(t *testing.T) {
	h, api := newHarness(t)

	_, _, err := h.run("signup", "--first-name", "Sam", "--last-name", "Short", "--email", "sam@x.com", "--password", "short")
	require.Error(t, err)
	assert.True(t, authclient.IsKind(err, authclient.KindValidation))
	api.mu.Lock()
	_, created := api.users["sam@x.com"]
	api.mu.Unlock()
	assert.False(t, created)
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	h, _ := newHarness(t)

	out, _, err := h.run("forgot-password", "--email", "nobody@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, authclient.ForgotPasswordMessage)
}

func TestProfileUpdateSendsOnlyChangedFields(t *testing.T) {
	h, api := newHarness(t)
	_, _, err := h.run("login", "--email", "admin@x.com", "--password", "Admin123!")
	require.NoError(t, err)

	out, _, err := h.run("profile", "update", "--position", "CTO")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated.")
	assert.Contains(t, out, "CTO")

	api.mu.Lock()
	require.Len(t, api.profiles, 1)
	assert.Equal(t, map[string]any{"position": "CTO"}, api.profiles[0])
	api.mu.Unlock()

	stored := h.storedUser()
	require.NotNil(t, stored)
	assert.Equal(t, "CTO", stored.Position)
}

func TestAuthenticatedCommandsRequireLogin(t *testing.T) {
	h, _ := newHarness(t)

	for _, args := range [][]string{
		{"resend-verification"},
		{"profile", "update", "--position", "x"},
		{"password", "change", "--current", "old-pass1", "--new", "new-pass1"},
	} {
		_, _, err := h.run(args...)
		assert.ErrorIs(t, err, errNotLoggedIn, strings.Join(args, " "))
	}
}

func TestRenderErrorListsFieldsInOrder(t *testing.T) {
	var buf bytes.Buffer
	renderError(&buf, &authclient.Error{
		Kind:    authclient.KindValidation,
		Message: "Validation failed",
		Fields:  map[string]string{"password": "too short", "email": "invalid"},
	})
	out := buf.String()
	assert.Contains(t, out, "Validation failed")
	assert.Less(t, strings.Index(out, "email"), strings.Index(out, "password"))
}

func TestViewName(t *testing.T) {
	assert.Equal(t, "/admin", viewName("/admin/users/1"))
	assert.Equal(t, "/dashboard", viewName("Dashboard?tab=mine"))
	assert.Equal(t, "/", viewName(""))
}
