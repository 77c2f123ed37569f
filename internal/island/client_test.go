package island

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginStoresToken(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathLogin, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "operator", req.Username)
		assert.Equal(t, "hunter2", req.Password)

		_, _ = w.Write([]byte(`{"response": {"user": {"authentication_token": "tok-1"}}}`))
	})

	c, err := NewClient(srv.URL, Options{})
	require.NoError(t, err)
	require.NoError(t, c.Login(context.Background(), "operator", "hunter2"))
	assert.Equal(t, "tok-1", c.Token())
}

func TestLoginWithoutToken(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {}}`))
	})

	c, err := NewClient(srv.URL, Options{})
	require.NoError(t, err)
	err = c.Login(context.Background(), "u", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication token")
}

func TestFetchSendsTokenAndDecodes(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get(TokenHeader))
		assert.Equal(t, PathMachines, r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": 1, "hostname": "dc01", "network_interfaces": ["10.0.0.1/24"]}]`))
	})

	c, err := NewClient(srv.URL+"/", Options{Token: "tok"})
	require.NoError(t, err)

	var machines []struct {
		ID       int    `json:"id"`
		Hostname string `json:"hostname"`
	}
	require.NoError(t, c.Fetch(context.Background(), PathMachines, &machines))
	require.Len(t, machines, 1)
	assert.Equal(t, "dc01", machines[0].Hostname)
}

func TestFetchStatusError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	c, err := NewClient(srv.URL, Options{Token: "stale"})
	require.NoError(t, err)

	err = c.Fetch(context.Background(), PathAgents, &[]any{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)
}

func TestFetchRequiresToken(t *testing.T) {
	c, err := NewClient("https://island.lab:5000", Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Fetch(context.Background(), PathAgents, nil), ErrNotAuthenticated)
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("island.lab", Options{})
	assert.Error(t, err)
}

func TestSecurityReport(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSecurityReport, r.URL.Path)
		_, _ = w.Write([]byte(`{"glance": {"scanned_count": 3, "exploited_count": 1}}`))
	})

	c, err := NewClient(srv.URL, Options{Token: "tok"})
	require.NoError(t, err)

	r, err := c.SecurityReport(context.Background())
	require.NoError(t, err)
	assert.False(t, r.IsEmpty())
	assert.Equal(t, 3, r.Glance.ScannedCount)
}
