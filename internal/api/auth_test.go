package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haulix/relay/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestLoginHandler(t *testing.T) {
	tcases := []struct {
		name         string
		body         any
		expectedCode int
		expectCookie bool
	}{
		{
			name:         "successful login",
			body:         LoginRequest{Password: testAdminPassword},
			expectedCode: http.StatusOK,
			expectCookie: true,
		},
		{
			name:         "wrong password",
			body:         LoginRequest{Password: "guess"},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "missing password",
			body:         LoginRequest{},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "invalid json body",
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &store.MockRepository{})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, tc.body))
			app.login(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "unexpected status code")

			cookie := findCookie(rr, tokenCookieKey)
			if tc.expectCookie {
				assert.NotNil(t, cookie, "expected session cookie to be set")
				assert.NotEmpty(t, cookie.Value, "expected token in cookie")
				assert.True(t, cookie.HttpOnly, "expected HttpOnly cookie")
			} else {
				assert.Nil(t, cookie, "expected no session cookie")
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	app := newTestApp(t, &store.MockRepository{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
	app.logout(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code, "expected status code to be 204")

	cookie := findCookie(rr, tokenCookieKey)
	assert.NotNil(t, cookie, "expected cookie to be overwritten")
	assert.Empty(t, cookie.Value, "expected cookie value to be cleared")
	assert.True(t, cookie.Expires.Before(time.Now()), "expected cookie to be expired")
}

func TestIsAdminRequest(t *testing.T) {
	app := newTestApp(t, &store.MockRepository{})

	t.Run("valid admin token", func(t *testing.T) {
		token, err := app.createJwtForSession(time.Hour)
		assert.NoError(t, err, "expected token creation to succeed")

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))

		assert.True(t, app.isAdminRequest(req), "expected admin capability")
	})

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		assert.False(t, app.isAdminRequest(req), "expected no admin capability without cookie")
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(createJwtCookie("not-a-jwt", time.Hour))
		assert.False(t, app.isAdminRequest(req), "expected no admin capability for invalid token")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := app.createJwtForSession(-time.Hour)
		assert.NoError(t, err, "expected token creation to succeed")

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))

		assert.False(t, app.isAdminRequest(req), "expected no admin capability for expired token")
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other := newTestApp(t, &store.MockRepository{})
		other.signingKey = []byte("ffffffffffffffffffffffffffffffff")

		token, err := other.createJwtForSession(time.Hour)
		assert.NoError(t, err, "expected token creation to succeed")

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))

		assert.False(t, app.isAdminRequest(req), "expected signature verification to fail")
	})
}
