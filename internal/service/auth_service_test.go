package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/current" {
			http.NotFound(w, r)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_ = json.NewEncoder(w).Encode(AuthUser{ID: "u1", Name: "An", Permissions: []string{"user", PermissionAdmin}, Enabled: true})
		case "Bearer disabled":
			_ = json.NewEncoder(w).Encode(AuthUser{ID: "u2", Enabled: false})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateToken(t *testing.T) {
	srv := newAuthServer(t)
	auth := NewAuthService(srv.URL+"/", 0)

	user, err := auth.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.IsAdmin())

	_, err = auth.ValidateToken(context.Background(), "disabled")
	assert.ErrorIs(t, err, ErrUserDisabled)

	_, err = auth.ValidateToken(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthUserIsAdmin(t *testing.T) {
	assert.False(t, (&AuthUser{Permissions: []string{"user"}}).IsAdmin())
	assert.False(t, (&AuthUser{}).IsAdmin())
}
