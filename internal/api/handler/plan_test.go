package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

func setupPlanRouter(ctx *testContext) *gin.Engine {
	handler := NewPlanHandler(service.NewPlanService(repository.NewPlanRepository(ctx.DB), time.Minute))

	router := gin.New()
	router.GET("/plans", handler.List)
	router.GET("/plans/:id", handler.Get)
	router.POST("/admin/plans", handler.Create)
	router.PUT("/admin/plans/:id", handler.Update)
	router.DELETE("/admin/plans/:id", handler.Delete)
	return router
}

func TestPlanHandler_List_Filters(t *testing.T) {
	ctx := newTestContext(t)
	router := setupPlanRouter(ctx)
	testutil.TestPlan(t, ctx.DB, testutil.WithPlanName("Green Saver"), testutil.WithLocation("Springfield"))
	testutil.TestPlan(t, ctx.DB, testutil.WithPlanName("Night Owl"), testutil.WithLocation("Shelbyville"))
	testutil.TestPlan(t, ctx.DB, testutil.WithPlanName("Green Max"), testutil.WithLocation("Shelbyville"))

	w := performRequest(router, "GET", "/plans", nil)
	var plans []*model.Plan
	decodeData(t, parseResponse(t, w), &plans)
	assert.Len(t, plans, 3)

	w = performRequest(router, "GET", "/plans?name=green", nil)
	decodeData(t, parseResponse(t, w), &plans)
	assert.Len(t, plans, 2)

	w = performRequest(router, "GET", "/plans?name=GREEN&location=shelby", nil)
	decodeData(t, parseResponse(t, w), &plans)
	require.Len(t, plans, 1)
	assert.Equal(t, "Green Max", plans[0].PlanName)
}

func TestPlanHandler_Get(t *testing.T) {
	ctx := newTestContext(t)
	router := setupPlanRouter(ctx)
	plan := testutil.TestPlan(t, ctx.DB, testutil.WithPlanName("Solar"))

	w := performRequest(router, "GET", fmt.Sprintf("/plans/%d", plan.ID), nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var got model.Plan
	decodeData(t, resp, &got)
	assert.Equal(t, "Solar", got.PlanName)

	w = performRequest(router, "GET", "/plans/9999", nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestPlanHandler_AdminCRUD(t *testing.T) {
	ctx := newTestContext(t)
	router := setupPlanRouter(ctx)

	w := performRequest(router, "POST", "/admin/plans", map[string]interface{}{
		"planName": "Wind Flex",
		"location": "Capital City",
		"price":    4.25,
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var created model.Plan
	decodeData(t, resp, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, 4.25, created.Price)

	w = performRequest(router, "PUT", fmt.Sprintf("/admin/plans/%d", created.ID), map[string]interface{}{
		"planName": "Wind Flex",
		"location": "Capital City",
		"price":    5,
	})
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "GET", "/plans?name=wind", nil)
	var plans []*model.Plan
	decodeData(t, parseResponse(t, w), &plans)
	require.Len(t, plans, 1)
	assert.Equal(t, float64(5), plans[0].Price)

	w = performRequest(router, "DELETE", fmt.Sprintf("/admin/plans/%d", created.ID), nil)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "DELETE", fmt.Sprintf("/admin/plans/%d", created.ID), nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)
}

func TestPlanHandler_Create_Invalid(t *testing.T) {
	ctx := newTestContext(t)
	router := setupPlanRouter(ctx)

	// price 缺失
	w := performRequest(router, "POST", "/admin/plans", map[string]interface{}{"planName": "A", "location": "B"})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	w = performRequest(router, "POST", "/admin/plans", map[string]interface{}{"planName": "A", "location": "B", "price": -1})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}
