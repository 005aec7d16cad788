package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)

	return token
}

func TestUserID(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-42"})

	userID, err := UserID("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	userID, err = UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestUserID_Invalid(t *testing.T) {
	_, err := UserID("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = UserID("Bearer not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = UserID("Bearer " + signedToken(t, jwt.MapClaims{"name": "nobody"}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPermissionClient_CanUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		assert.Equal(t, "user-1", query.Get("userId"))
		assert.Equal(t, "pg-1", query.Get("projectGroupId"))
		assert.Equal(t, "false", query.Get("affirmative"))
		assert.Equal(t, UploadRoles, query["permissions"])

		_, _ = w.Write([]byte("true"))
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewPermissionClient(server.URL, server.Client(), logger)

	granted, err := client.CanUpload(t.Context(), "user-1", "pg-1")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestPermissionClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		granted bool
		wantErr bool
	}{
		{name: "denied", status: http.StatusOK, body: "false"},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantErr: true},
		{name: "malformed body", status: http.StatusOK, body: "{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			client := NewPermissionClient(server.URL, server.Client(), logger)

			granted, err := client.CanUpload(t.Context(), "user-1", "pg-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.granted, granted)
		})
	}
}
