package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendDistributions(r http.Handler, method, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/distributions", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetIdempotencyKey_IsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := keyContext("192.0.2.4:1", "")

	_, ok := GetIdempotencyKey(c)
	assert.False(t, ok)
	assert.False(t, IsReplay(c))

	c.Set(ctxKeyIdemKey, 123)
	_, ok = GetIdempotencyKey(c)
	assert.False(t, ok, "non-string keys read as absent")

	c.Set(ctxKeyIdemReplay, "yes")
	assert.False(t, IsReplay(c))
	c.Set(ctxKeyIdemReplay, true)
	assert.True(t, IsReplay(c))
}

func TestIdempotencyScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var scopes []string
	record := func(c *gin.Context) {
		scopes = append(scopes, IdempotencyScope(c))
		c.Status(http.StatusCreated)
	}
	r.POST("/api/v1/prompts/:id/versions", record)
	r.NoRoute(record)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/prompts/p1/versions", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/webhooks/n8n", nil))

	assert.Equal(t, []string{
		"POST /api/v1/prompts/:id/versions",
		"PUT /webhooks/n8n",
	}, scopes)
}

func TestIdempotencyValidator_Passthrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lookups := 0
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 4}, func(context.Context, string, string, string, time.Time) (bool, error) {
		lookups++
		return true, nil
	}))
	var stashed []bool
	handle := func(c *gin.Context) {
		_, ok := GetIdempotencyKey(c)
		stashed = append(stashed, ok)
		c.Status(http.StatusOK)
	}
	r.GET("/distributions", handle)
	r.POST("/distributions", handle)

	assert.Equal(t, http.StatusOK, sendDistributions(r, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusOK, sendDistributions(r, http.MethodGet, "far-too-long-for-max").Code,
		"safe methods ignore the header")

	assert.Equal(t, []bool{false, false}, stashed)
	assert.Zero(t, lookups)
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"longer than MaxLen", IdempotencyOptions{MaxLen: 8}, "send-batch-2025"},
		{"longer than the default cap", IdempotencyOptions{}, string(make([]byte, 201))},
		{"outside a custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[a-f0-9]{8}$`)}, "SEND0001"},
		{"whitespace under the default pattern", IdempotencyOptions{}, "send batch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID(), IdempotencyValidator(tt.opts, nil))
			r.POST("/distributions", func(c *gin.Context) {
				t.Error("handler must not run for a rejected key")
			})

			w := sendDistributions(r, http.MethodPost, tt.key)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "bad_idempotency_key", body["code"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestIdempotencyValidator_Lookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		lookup IdempotencyLookup
		replay bool
	}{
		{name: "no store configured"},
		{
			name:   "first send",
			lookup: func(context.Context, string, string, string, time.Time) (bool, error) { return false, nil },
		},
		{
			name:   "retried send",
			lookup: func(context.Context, string, string, string, time.Time) (bool, error) { return true, nil },
			replay: true,
		},
		{
			name:   "store failure reads as a miss",
			lookup: func(context.Context, string, string, string, time.Time) (bool, error) { return false, errors.New("connection reset") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotScope, gotKey string
			var gotAt time.Time
			lookup := tt.lookup
			if lookup != nil {
				inner := lookup
				lookup = func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
					gotUser, gotScope, gotKey, gotAt = userID, scope, key, now
					return inner(ctx, userID, scope, key, now)
				}
			}

			r := gin.New()
			r.Use(func(c *gin.Context) { c.Set(userIDKey, "u-ops"); c.Next() })
			r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
			var key string
			var replay, bypass bool
			r.POST("/distributions", func(c *gin.Context) {
				key, _ = GetIdempotencyKey(c)
				replay, bypass = IsReplay(c), IsRateBypass(c)
				c.Status(http.StatusCreated)
			})

			require.Equal(t, http.StatusCreated, sendDistributions(r, http.MethodPost, "send:2025-06-01").Code)
			assert.Equal(t, "send:2025-06-01", key)
			assert.Equal(t, tt.replay, replay)
			assert.Equal(t, tt.replay, bypass, "replays skip rate limiting")

			if tt.lookup != nil {
				assert.Equal(t, "u-ops", gotUser)
				assert.Equal(t, "POST /distributions", gotScope)
				assert.Equal(t, "send:2025-06-01", gotKey)
				assert.False(t, gotAt.IsZero())
			}
		})
	}
}

func TestIdempotencyValidator_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lookups := 0
	r := gin.New()
	r.Use(RequestID(), IdempotencyValidator(IdempotencyOptions{Routes: []string{"POST /distributions"}},
		func(context.Context, string, string, string, time.Time) (bool, error) {
			lookups++
			return true, nil
		}))
	var stashed, replayed bool
	handle := func(c *gin.Context) {
		_, stashed = GetIdempotencyKey(c)
		replayed = IsReplay(c)
		c.Status(http.StatusOK)
	}
	r.POST("/distributions", handle)
	r.PATCH("/contents/:id", handle)

	req := httptest.NewRequest(http.MethodPatch, "/contents/c-1", nil)
	req.Header.Set(HeaderIdempotencyKey, "not a key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "routes outside the list ignore the header")
	assert.False(t, stashed)
	assert.False(t, replayed)
	assert.Zero(t, lookups)

	assert.Equal(t, http.StatusBadRequest, sendDistributions(r, http.MethodPost, "not a key").Code)
	assert.Equal(t, http.StatusOK, sendDistributions(r, http.MethodPost, "send-1").Code)
	assert.True(t, stashed)
	assert.True(t, replayed)
	assert.Equal(t, 1, lookups)
}
