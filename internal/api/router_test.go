package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/api/handler"
	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/invoice"
	"github.com/qs3c/powerplan_server/internal/pkg/jwt"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metering"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/oauth"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/pkg/ws"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerEnv struct {
	engine *gin.Engine
	cfg    *config.Config
}

func setupRouter(t *testing.T) *routerEnv {
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
	cfg.JWT.Secret = "router-secret"
	log := logger.Discard()
	clk := clock.Fixed(time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC))
	m := metrics.New(nil)

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	jobRepo := repository.NewJobRepository(db)

	calc, err := billing.NewCalculator(cfg.Billing)
	require.NoError(t, err)
	billingService := service.NewBillingService(userPlanRepo, userRepo, calc, invoice.NewRenderer("$"),
		metering.NewClient("", 0), clk, m, log)

	handlers := &Handlers{
		Auth: handler.NewAuthHandler(service.NewAuthService(userRepo, cfg, log), oauth.NewStateStore(rdb)),
		User: handler.NewUserHandler(service.NewUserService(userRepo)),
		Registration: handler.NewRegistrationHandler(service.NewRegistrationService(
			userRepo, &cfg.Registration, clk, nil, nil, m, log)),
		Plan: handler.NewPlanHandler(service.NewPlanService(planRepo, time.Minute)),
		UserPlan: handler.NewUserPlanHandler(
			service.NewUserPlanService(userPlanRepo, planRepo, userRepo, clk, nil, nil, log), billingService),
		Bill: handler.NewBillHandler(billingService),
		Statement: handler.NewStatementHandler(service.NewStatementService(
			jobRepo, userPlanRepo, queue.NewQueue(rdb, cfg.Queue.StatementQueue), clk, log)),
		WebSocket: handler.NewWebSocketHandler(ws.NewHub(log), cfg.JWT.Secret, nil, log),
	}

	return &routerEnv{engine: NewRouter(handlers, m, log, cfg).Setup(), cfg: cfg}
}

func (e *routerEnv) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *routerEnv) token(t *testing.T, userID int64, role string) string {
	token, err := jwt.GenerateToken(userID, role, e.cfg.JWT.Secret, 1)
	require.NoError(t, err)
	return token
}

func code(t *testing.T, w *httptest.ResponseRecorder) int {
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestRouter_PublicPlans(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, "GET", "/api/v1/plans", "")
	assert.Equal(t, response.CodeSuccess, code(t, w))
}

func TestRouter_AuthenticatedRoutesRequireToken(t *testing.T) {
	env := setupRouter(t)

	for _, path := range []string{"/api/v1/user-plans", "/api/v1/bills/all/download", "/api/v1/bills/archive"} {
		w := env.do(t, "GET", path, "")
		assert.Equal(t, response.CodeAuthFailed, code(t, w), path)
	}
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, "GET", "/api/v1/admin/user-plans", env.token(t, 1, model.RoleCustomer))
	assert.Equal(t, response.CodePermissionDenied, code(t, w))

	w = env.do(t, "GET", "/api/v1/admin/user-plans", env.token(t, 1, model.RoleAdmin))
	assert.Equal(t, response.CodeSuccess, code(t, w))

	w = env.do(t, "GET", "/api/v1/admin/registrations", env.token(t, 1, model.RoleAdmin))
	assert.Equal(t, response.CodeSuccess, code(t, w))
}

func TestRouter_BillRoutesResolve(t *testing.T) {
	env := setupRouter(t)
	token := env.token(t, 99, model.RoleCustomer)

	// 没有订阅时合并下载返回 no plans
	w := env.do(t, "GET", "/api/v1/bills/all/download", token)
	assert.Equal(t, response.CodeNoPlans, code(t, w))

	w = env.do(t, "GET", "/api/v1/bills/5/calculation", token)
	assert.Equal(t, response.CodeResourceNotFound, code(t, w))

	w = env.do(t, "GET", "/api/v1/bills/archive", token)
	assert.Equal(t, response.CodeSuccess, code(t, w))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	env := setupRouter(t)

	env.do(t, "GET", "/api/v1/plans", "")
	w := env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "powerplan_http_requests_total"))
}
