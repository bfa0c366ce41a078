package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottopot/internal/rng"
	"lottopot/internal/services"
)

const (
	testSecret   = "test-secret"
	testOperator = "operator"
	testDuration = 300 * time.Second
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	closer := logger.Init("handlers-test", false, false, io.Discard)
	code := m.Run()
	closer.Close()
	os.Exit(code)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	source := rng.NewHashSource("test-seed", clock.Now)
	svc := services.NewRoundService(10, testDuration, testOperator,
		clock.Now, source, services.NewAccountBook(), services.LogNotifier{})

	h := NewHTTPHandler(svc, testSecret)
	r := gin.New()
	h.RegisterPublicRoutes(r)
	callerRoutes := r.Group("/")
	callerRoutes.Use(h.AuthMiddleware())
	h.RegisterCallerRoutes(callerRoutes)
	return r, clock
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, subject))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestAuthMiddleware(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("rejects missing token", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rounds", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/rounds", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects token without subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).
			SignedString([]byte(testSecret))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/rounds", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOpenRoundEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("forbids non-operator", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rounds", "alice", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("operator opens round 1", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rounds", testOperator, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.EqualValues(t, 1, decode(t, w)["round"])
	})

	t.Run("second open conflicts while active", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/rounds", testOperator, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("round query reflects the open round", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/round", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := decode(t, w)
		assert.EqualValues(t, 1, payload["round"])
		assert.Equal(t, true, payload["active"])
		assert.EqualValues(t, 300, payload["secondsRemaining"])
	})
}

func TestBuyEntriesEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("conflicts before any round", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/entries", "alice", gin.H{"amount": 10})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	require.Equal(t, http.StatusCreated,
		doJSON(t, r, http.MethodPost, "/api/rounds", testOperator, nil).Code)

	t.Run("grants entries for exact multiples", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/entries", "alice", gin.H{"amount": 20})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.EqualValues(t, 2, decode(t, w)["entries"])
	})

	t.Run("rejects non-multiples", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/entries", "bob", gin.H{"amount": 15})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing amount", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/entries", "bob", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("snapshot lists entries in purchase order", func(t *testing.T) {
		require.Equal(t, http.StatusCreated,
			doJSON(t, r, http.MethodPost, "/api/entries", "bob", gin.H{"amount": 10}).Code)

		w := doJSON(t, r, http.MethodGet, "/api/entries", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := decode(t, w)
		assert.EqualValues(t, 3, payload["count"])
		assert.Equal(t, []any{"alice", "alice", "bob"}, payload["entries"])
	})

	t.Run("escrow equals accepted payments", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/escrow", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 30, decode(t, w)["escrow"])
	})
}

func TestDepositEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/deposits", "stranger", gin.H{"amount": 70})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 70, decode(t, w)["escrow"])

	// Deposits never grant entries.
	w = doJSON(t, r, http.MethodGet, "/api/entries", "", nil)
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestDrawEndpoint(t *testing.T) {
	r, clock := newTestRouter(t)

	require.Equal(t, http.StatusCreated,
		doJSON(t, r, http.MethodPost, "/api/rounds", testOperator, nil).Code)
	require.Equal(t, http.StatusCreated,
		doJSON(t, r, http.MethodPost, "/api/entries", "alice", gin.H{"amount": 30}).Code)

	t.Run("conflicts before the deadline", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/draw", "anyone", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	clock.Advance(testDuration)

	t.Run("pays out after the deadline", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/draw", "anyone", nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := decode(t, w)
		assert.EqualValues(t, 1, payload["round"])
		assert.Equal(t, "alice", payload["winner"])
		assert.EqualValues(t, 30, payload["prize"])
	})

	t.Run("second draw conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/draw", "anyone", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("result lookup returns the recorded winner", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/results/1", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := decode(t, w)
		assert.Equal(t, "alice", payload["winner"])
		assert.EqualValues(t, 30, payload["prize"])
	})

	t.Run("unknown round yields a null winner", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/results/99", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := decode(t, w)
		assert.Nil(t, payload["winner"])
		assert.EqualValues(t, 0, payload["prize"])
	})

	t.Run("rejects a malformed round number", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/results/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
