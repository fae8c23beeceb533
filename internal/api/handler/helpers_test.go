package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type testContext struct {
	DB    *gorm.DB
	Redis *redis.Client
	MR    *miniredis.Miniredis
	Cfg   *config.Config
	Clock clock.Clock
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	})

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret-key"

	return &testContext{
		DB:    db,
		Redis: rdb,
		MR:    mr,
		Cfg:   cfg,
		Clock: clock.Fixed(testNow),
	}
}

// mockAuth 模拟已登录用户
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// decodeData 将响应 data 解码到 out
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
