package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) (*httptest.Server, *Client) {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, 5*time.Second, zerolog.Nop())
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signedToken(t *testing.T, exp time.Time) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestLogin_TokenTravelsWithContext(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			respond(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
			return
		}
		respond(w, http.StatusOK, AuthResponse{
			Token: "opaque-token",
			User:  User{ID: "1", Name: "Jean", Email: body["email"]},
		})
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(w, http.StatusOK, []map[string]any{{"id": 1}, {"id": 2}})
	})
	_, c := newTestServer(t, mux)
	ctx := context.Background()

	resp, err := c.Login(ctx, "jean@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", resp.Token)
	assert.Equal(t, "jean@example.com", resp.User.Email)

	items, err := c.History(WithToken(ctx, resp.Token))
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "Bearer opaque-token", gotAuth)

	// the client keeps nothing from the login
	_, err = c.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestLogin_BadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnauthorized, map[string]string{"message": "bad"})
	})
	_, c := newTestServer(t, mux)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.True(t, errors.Is(err, ErrRemoteGateway))

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "Identifiants incorrects", gwErr.Message)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.com" {
			respond(w, http.StatusConflict, map[string]string{"message": "Email déjà utilisé"})
			return
		}
		respond(w, http.StatusCreated, map[string]string{"message": "Inscription réussie"})
	})
	_, c := newTestServer(t, mux)
	ctx := context.Background()

	msg, err := c.Register(ctx, "Jean Dupont", "new@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Inscription réussie", msg)

	_, err = c.Register(ctx, "Jean Dupont", "taken@example.com", "pw")
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusConflict, gwErr.StatusCode)
	assert.Equal(t, "Email déjà utilisé", gwErr.Message)
}

func TestSubmitDiagnostic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/diagnostic", func(w http.ResponseWriter, r *http.Request) {
		var req DiagnosticRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jean Dupont", req.Patient.Name)
		assert.Equal(t, 35, req.Patient.Age)
		assert.Equal(t, []string{"fever", "cough"}, req.Symptoms)
		respond(w, http.StatusOK, DiagnosticResponse{
			Diseases:     []Disease{{Name: "Grippe", Probability: 70}},
			DiagnosticID: "d-1",
		})
	})
	_, c := newTestServer(t, mux)

	resp, err := c.SubmitDiagnostic(context.Background(), DiagnosticRequest{
		Patient:  Patient{Name: "Jean Dupont", Age: 35, Gender: "male"},
		Symptoms: []string{"fever", "cough"},
	})
	require.NoError(t, err)
	assert.Equal(t, "d-1", resp.DiagnosticID)
	require.Len(t, resp.Diseases, 1)
	assert.Equal(t, 70, resp.Diseases[0].Probability)
}

func TestStatistics_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/statistics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, c := newTestServer(t, mux)

	_, err := c.Statistics(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteGateway))
	assert.Contains(t, err.Error(), "statistiques")
}

func TestStatistics_PassThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/statistics", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]int{"total": 24})
	})
	_, c := newTestServer(t, mux)

	raw, err := c.Statistics(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":24}`, string(raw))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	srv.Close()

	_, err := c.History(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteGateway))
}

func TestExpiredTokenIsDropped(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(w, http.StatusOK, []any{})
	})
	_, c := newTestServer(t, mux)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.History(WithToken(ctx, signedToken(t, now.Add(-time.Minute))))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	fresh := signedToken(t, now.Add(time.Hour))
	_, err = c.History(WithToken(ctx, fresh))
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+fresh, gotAuth)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, tokenExpired("opaque", now))
	assert.False(t, tokenExpired(signedToken(t, now.Add(time.Hour)), now))
	assert.True(t, tokenExpired(signedToken(t, now.Add(-time.Hour)), now))
}
