package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrRemoteGateway matches every failure reported by the backend or the
	// network. Callers surface these to the user as retryable.
	ErrRemoteGateway      = errors.New("remote gateway error")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrRemoteGateway }

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Patient struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type DiagnosticRequest struct {
	Patient  Patient  `json:"patient"`
	Symptoms []string `json:"symptoms"`
}

type Disease struct {
	Name        string `json:"name"`
	Probability int    `json:"probability"`
}

type DiagnosticResponse struct {
	Diseases     []Disease `json:"diseases"`
	DiagnosticID string    `json:"diagnosticId,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

type tokenKey struct{}

// WithToken returns a context whose gateway calls authenticate as the
// holder of token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token carried by ctx, if any.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the remote backend. It holds no credentials: each call
// authenticates with the token carried by its context. Requests are never
// retried; a failure is reported once and the user decides whether to try
// again.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
	now    func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		logger: logger.With().Str("component", "gateway").Logger(),
		now:    time.Now,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return nil, c.transportError("login", err)
	}
	if resp.IsError() {
		c.logger.Warn().Int("status", resp.StatusCode()).Msg("login rejected")
		return nil, &Error{
			Op:         "login",
			StatusCode: resp.StatusCode(),
			Message:    "Identifiants incorrects",
			Err:        ErrInvalidCredentials,
		}
	}

	c.logger.Info().Str("user_id", out.User.ID).Msg("logged in")
	return &out, nil
}

// Register creates an account and returns the backend's confirmation
// message. On failure the backend's own message (e.g. duplicate email) is
// carried in the returned *Error.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (string, error) {
	var ok, failed messageBody
	resp, err := c.request(ctx).
		SetBody(map[string]string{"full_name": fullName, "email": email, "password": password}).
		SetResult(&ok).
		SetError(&failed).
		Post("/auth/register")
	if err != nil {
		return "", c.transportError("register", err)
	}
	if resp.IsError() {
		msg := failed.Message
		if msg == "" {
			msg = "Erreur lors de l'inscription"
		}
		return "", &Error{Op: "register", StatusCode: resp.StatusCode(), Message: msg}
	}
	return ok.Message, nil
}

func (c *Client) SubmitDiagnostic(ctx context.Context, req DiagnosticRequest) (*DiagnosticResponse, error) {
	var out DiagnosticResponse
	resp, err := c.request(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/diagnostic")
	if err != nil {
		return nil, c.transportError("diagnostic", err)
	}
	if resp.IsError() {
		return nil, statusError("diagnostic", resp, "Erreur lors du diagnostic")
	}
	return &out, nil
}

// History returns the past diagnostic summaries exactly as the backend
// sent them.
func (c *Client) History(ctx context.Context) ([]json.RawMessage, error) {
	resp, err := c.request(ctx).Get("/history")
	if err != nil {
		return nil, c.transportError("history", err)
	}
	if resp.IsError() {
		return nil, statusError("history", resp, "Erreur lors de la récupération de l'historique")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, &Error{Op: "history", StatusCode: resp.StatusCode(), Message: "malformed response", Err: err}
	}
	return items, nil
}

func (c *Client) Statistics(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.request(ctx).Get("/statistics")
	if err != nil {
		return nil, c.transportError("statistics", err)
	}
	if resp.IsError() {
		return nil, statusError("statistics", resp, "Erreur lors de la récupération des statistiques")
	}
	body := resp.Body()
	if !json.Valid(body) {
		return nil, &Error{Op: "statistics", StatusCode: resp.StatusCode(), Message: "malformed response"}
	}
	return json.RawMessage(body), nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token := c.activeToken(ctx); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// activeToken returns the context's token unless it is a JWT whose exp
// claim has passed.
func (c *Client) activeToken(ctx context.Context) string {
	token := TokenFrom(ctx)
	if token != "" && tokenExpired(token, c.now()) {
		c.logger.Info().Msg("auth token expired, not forwarding")
		return ""
	}
	return token
}

// tokenExpired only inspects the claims; signature verification belongs
// to the backend. Opaque tokens are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func (c *Client) transportError(op string, err error) error {
	c.logger.Error().Err(err).Str("op", op).Msg("gateway request failed")
	return &Error{Op: op, Message: err.Error(), Err: err}
}

func statusError(op string, resp *resty.Response, fallback string) error {
	msg := fallback
	var body messageBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		msg = body.Message
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return &Error{Op: op, StatusCode: resp.StatusCode(), Message: msg, Err: ErrInvalidCredentials}
	}
	return &Error{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}
