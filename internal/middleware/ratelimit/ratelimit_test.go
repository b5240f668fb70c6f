package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(perMinute int) (*Limiter, *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute})
	rl.now = clk.now
	return rl, clk
}

func TestAllow_WindowReset(t *testing.T) {
	rl, clk := newTestLimiter(2)

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "clients are limited independently")

	clk.t = clk.t.Add(time.Minute)
	assert.True(t, rl.Allow("1.1.1.1"))
}

func TestAllow_BlockedRequestsDoNotExtendWindow(t *testing.T) {
	rl, clk := newTestLimiter(1)

	assert.True(t, rl.Allow("a"))
	clk.t = clk.t.Add(40 * time.Second)
	assert.False(t, rl.Allow("a"))
	clk.t = clk.t.Add(20 * time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestCleanup(t *testing.T) {
	rl, clk := newTestLimiter(5)
	rl.Allow("old")
	clk.t = clk.t.Add(11 * time.Minute)
	rl.Allow("new")

	assert.Equal(t, 1, rl.CleanExpired())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	assert.Equal(t, 60, rl.requestsPerWindow)
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	h := rl.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
