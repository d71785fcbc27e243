package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(secret, RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	admin, _ := IssueToken(secret, "u-admin", RoleAdmin, time.Hour)
	ops, _ := IssueToken(secret, "u-ops", RoleOperations, time.Hour)
	forged, _ := IssueToken("other-secret", "u-admin", RoleAdmin, time.Hour)
	expired, _ := IssueToken(secret, "u-admin", RoleAdmin, -time.Minute)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	testCases := []struct {
		name  string
		token string
		want  int
	}{
		{"admin", admin, http.StatusOK},
		{"wrong role", ops, http.StatusForbidden},
		{"no token", "", http.StatusUnauthorized},
		{"wrong secret", forged, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"alg none", none, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.token)
			if w.Code != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, w.Code)
			}
		})
	}

	if w := get(r, admin); w.Body.String() != "u-admin" {
		t.Errorf("Expected user id in context, got %q", w.Body.String())
	}
}

func limited(rdb *rd.Client, limit int) *gin.Engine {
	r := gin.New()
	r.GET("/x", RequireRole(secret, RoleAdmin), RedisRateLimit(rdb, limit, time.Hour, "test", zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRedisRateLimit_PerUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	defer rdb.Close()
	r := limited(rdb, 3)

	alice, _ := IssueToken(secret, "alice", RoleAdmin, time.Hour)
	bob, _ := IssueToken(secret, "bob", RoleAdmin, time.Hour)

	for i := 0; i < 3; i++ {
		if w := get(r, alice); w.Code != http.StatusOK {
			t.Fatalf("request %d: Expected 200, got %d", i+1, w.Code)
		}
	}
	if w := get(r, alice); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", w.Code)
	}
	if w := get(r, bob); w.Code != http.StatusOK {
		t.Errorf("Expected another user to have their own window, got %d", w.Code)
	}
}

func TestRedisRateLimit_FallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	r := limited(rdb, 2)
	mr.Close()

	token, _ := IssueToken(secret, "alice", RoleAdmin, time.Hour)
	for i := 0; i < 2; i++ {
		if w := get(r, token); w.Code != http.StatusOK {
			t.Fatalf("request %d: Expected 200 from local limiter, got %d", i+1, w.Code)
		}
	}
	if w := get(r, token); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected local limiter to enforce the budget, got %d", w.Code)
	}
}

func TestLocalLimiter_DropsIdleKeys(t *testing.T) {
	l := newLocalLimiter(2, time.Minute)
	start := time.Unix(1_700_000_000, 0)

	for i := 0; i < 100; i++ {
		l.allowAt(fmt.Sprintf("ip:10.0.0.%d", i), start)
	}
	if len(l.limiters) != 100 {
		t.Fatalf("Expected 100 tracked keys, got %d", len(l.limiters))
	}

	if !l.allowAt("ip:10.0.1.1", start.Add(2*time.Minute)) {
		t.Fatal("Expected a fresh key to be allowed")
	}
	if len(l.limiters) != 1 {
		t.Errorf("Expected idle keys to be dropped, got %d tracked", len(l.limiters))
	}

	now := start.Add(2 * time.Minute)
	if !l.allowAt("ip:10.0.1.1", now) {
		t.Fatal("Expected second request inside the burst to be allowed")
	}
	if l.allowAt("ip:10.0.1.1", now) {
		t.Error("Expected third request to be limited")
	}
}
