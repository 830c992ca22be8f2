package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	loggedOut := false
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"_id": "u1", "email": "admin@example.com", "role": "admin"},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		loggedOut = true
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(r)
	defer srv.Close()

	s, err := New(srv.URL, Credentials{Mode: ModeCookie}, 5*time.Second)
	require.NoError(t, err)
	assert.Nil(t, s.User())
	assert.NotNil(t, s.HTTPClient().Jar)

	require.NoError(t, s.Init(context.Background()))
	require.True(t, s.Active())
	assert.Equal(t, "admin@example.com", s.User().Email)

	require.NoError(t, s.Teardown(context.Background()))
	assert.True(t, loggedOut)
	assert.False(t, s.Active())
}

func TestInitFailsWithoutIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := New(srv.URL, Credentials{}, time.Second)
	require.NoError(t, err)
	assert.Error(t, s.Init(context.Background()))
	assert.Nil(t, s.User())
}

func TestNTLMTransportSendsCredentials(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		u, p, ok := req.BasicAuth()
		if !ok {
			// no NTLM challenge, so the negotiator falls back to basic
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		user, pass = u, p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := New(srv.URL, Credentials{Mode: ModeNTLM, Username: `CORP\svc`, Password: "secret"}, time.Second)
	require.NoError(t, err)

	resp, err := s.HTTPClient().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, `CORP\svc`, user)
	assert.Equal(t, "secret", pass)
}

func TestUnknownMode(t *testing.T) {
	_, err := New("http://localhost", Credentials{Mode: "kerberos"}, time.Second)
	assert.Error(t, err)
}
