package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/haulix/relay/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestAdminMiddleware(t *testing.T) {
	app := newTestApp(t, &store.MockRepository{})

	var called bool
	handler := app.adminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects request without admin cookie", func(t *testing.T) {
		called = false
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/chat", nil)
		handler(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "expected status code to be 401")
		assert.False(t, called, "expected wrapped handler not to be called")
	})

	t.Run("passes request with valid admin cookie", func(t *testing.T) {
		called = false
		token, err := app.createJwtForSession(time.Hour)
		assert.NoError(t, err, "expected token creation to succeed")

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/chat", nil)
		req.AddCookie(createJwtCookie(token, time.Hour))
		handler(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
		assert.True(t, called, "expected wrapped handler to be called")
		assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store", "expected no-store cache header")
	})
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp(t, &store.MockRepository{})

	handler := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, req)
	}, "expected panic to be recovered")

	assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
	assert.Equal(t, "close", rr.Header().Get("Connection"), "expected connection close header")
}
