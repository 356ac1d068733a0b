// Package authclient translates auth operations into calls against the task-manager API.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/httpclient"
)

const maxBodyBytes = 1 << 20

// ForgotPasswordMessage is returned whatever the server says about the address.
const ForgotPasswordMessage = "If an account exists for that email, a reset link has been sent."

// Doer sends HTTP requests. *httpclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is stateless; callers own the bearer token.
type Client struct {
	baseURL string
	doer    Doer
	logger  *zap.Logger
}

// New returns a client for the API at baseURL.
func New(baseURL string, doer Doer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), doer: doer, logger: logger}
}

// SignupInput carries registration fields.
type SignupInput struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	FirstName  *string `json:"firstName,omitempty"`
	LastName   *string `json:"lastName,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Avatar     *string `json:"avatar,omitempty"`
}

// AuthResult is returned by Login and Signup.
type AuthResult struct {
	User                   *domain.User `json:"user"`
	Token                  string       `json:"token"`
	ExpiresAt              time.Time    `json:"expiresAt"`
	EmailVerificationToken string       `json:"emailVerificationToken,omitempty"`
}

// Ack is the acknowledgement of an operation without a payload.
type Ack struct {
	Message string
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type resetInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenInput struct {
	Token string `json:"token" validate:"required"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type userData struct {
	User *domain.User `json:"user"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Errors  map[string]any  `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var out AuthResult
	if _, err := c.call(ctx, opLogin, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	if err := checkAuthResult(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var out AuthResult
	if _, err := c.call(ctx, opSignup, http.MethodPost, "/auth/register", "", in, &out); err != nil {
		return nil, err
	}
	if err := checkAuthResult(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a reset email. The answer never reveals whether the
// address belongs to an account.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*Ack, error) {
	in := emailInput{Email: strings.TrimSpace(email)}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := c.call(ctx, opForgotPassword, http.MethodPost, "/auth/forgot-password", "", in, nil); err != nil {
		var e *Error
		if errors.As(err, &e) && (e.Code == "NOT_FOUND" || (e.Code == "" && e.Status == http.StatusNotFound)) {
			return &Ack{Message: ForgotPasswordMessage}, nil
		}
		return nil, err
	}
	return &Ack{Message: ForgotPasswordMessage}, nil
}

// ResetPassword sets a new password using a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (*Ack, error) {
	in := resetInput{Token: strings.TrimSpace(token), Password: newPassword}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return c.ack(ctx, opResetPassword, http.MethodPost, "/auth/reset-password", "", in)
}

// VerifyEmail consumes an email verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*Ack, error) {
	in := tokenInput{Token: strings.TrimSpace(token)}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return c.ack(ctx, opVerifyEmail, http.MethodPost, "/auth/verify-email", "", in)
}

// ResendVerification sends a new verification email to the bearer's address.
func (c *Client) ResendVerification(ctx context.Context, bearer string) (*Ack, error) {
	return c.ack(ctx, opResendVerification, http.MethodPost, "/auth/resend-verification", bearer, nil)
}

// GetCurrentUser fetches the user the bearer token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context, bearer string) (*domain.User, error) {
	var out userData
	if _, err := c.call(ctx, opCurrentUser, http.MethodGet, "/auth/me", bearer, nil, &out); err != nil {
		return nil, err
	}
	if err := checkUser(out.User); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile applies profile changes and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, bearer string, in ProfileUpdate) (*domain.User, error) {
	var out userData
	if _, err := c.call(ctx, opUpdateProfile, http.MethodPut, "/auth/profile", bearer, in, &out); err != nil {
		return nil, err
	}
	if err := checkUser(out.User); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ChangePassword replaces the bearer's password.
func (c *Client) ChangePassword(ctx context.Context, bearer, current, next string) (*Ack, error) {
	in := changePasswordInput{CurrentPassword: current, NewPassword: next}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return c.ack(ctx, opChangePassword, http.MethodPost, "/auth/change-password", bearer, in)
}

// Logout asks the server to revoke the bearer token.
func (c *Client) Logout(ctx context.Context, bearer string) (*Ack, error) {
	return c.ack(ctx, opLogout, http.MethodPost, "/auth/logout", bearer, nil)
}

func (c *Client) ack(ctx context.Context, op operation, method, path, bearer string, body any) (*Ack, error) {
	msg, err := c.call(ctx, op, method, path, bearer, body, nil)
	if err != nil {
		return nil, err
	}
	return &Ack{Message: msg}, nil
}

// call performs one request and returns the envelope message. out receives data.
func (c *Client) call(ctx context.Context, op operation, method, path, bearer string, body, out any) (string, error) {
	if op.authenticated() && strings.TrimSpace(bearer) == "" {
		return "", newError(KindUnauthenticated, "You need to log in first.", nil)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", newError(KindUnknown, "", fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", newError(KindUnknown, "", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return "", c.transportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", c.transportError(op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300 && decodeErr == nil && (env.Success == nil || *env.Success)
	if !success {
		return "", c.responseError(op, resp.StatusCode, env, decodeErr)
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return "", newError(KindUnknown, "", errors.New("response has no data"))
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.logger.Warn("undecodable response", zap.String("op", string(op)), zap.Error(err))
			return "", newError(KindUnknown, "", fmt.Errorf("decode response: %w", err))
		}
	}
	return env.Message, nil
}

func (c *Client) transportError(op operation, err error) error {
	msg := ""
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		msg = "The server is temporarily unavailable. Try again shortly."
	}
	c.logger.Debug("transport failure", zap.String("op", string(op)), zap.Error(err))
	return newError(KindNetwork, msg, err)
}

func (c *Client) responseError(op operation, status int, env envelope, decodeErr error) error {
	kind, ok := kindForCode(op, env.Code)
	if !ok {
		kind = kindForStatus(op, status)
	}
	if kind == KindUnknown {
		c.logger.Warn("unexpected api failure",
			zap.String("op", string(op)),
			zap.Int("status", status),
			zap.String("code", env.Code))
	}
	e := newError(kind, env.Message, decodeErr)
	e.Status = status
	e.Code = env.Code
	if len(env.Errors) > 0 {
		e.Fields = make(map[string]string, len(env.Errors))
		for field, msg := range env.Errors {
			e.Fields[field] = fmt.Sprint(msg)
		}
	}
	return e
}

func checkAuthResult(res *AuthResult) error {
	if strings.TrimSpace(res.Token) == "" {
		return newError(KindUnknown, "", errors.New("response has no token"))
	}
	return checkUser(res.User)
}

func checkUser(u *domain.User) error {
	if u == nil || u.ID == "" {
		return newError(KindUnknown, "", errors.New("response has no user"))
	}
	if !u.Valid() {
		return newError(KindUnknown, "", errors.New("response user lacks a role or status"))
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(KindUnknown, "", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	first := verrs[0]
	e := newError(KindValidation, fmt.Sprintf("%s %s.", first.Field(), fieldMessage(first)), err)
	e.Fields = fields
	return e
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return "is invalid"
	}
}
