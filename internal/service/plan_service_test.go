package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

func price(v float64) *float64 {
	return &v
}

func TestPlanService_CRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewPlanService(repository.NewPlanRepository(db), time.Minute)

	plan, err := service.Create(&dto.PlanRequest{PlanName: " Solar ", Location: "Austin", Price: price(12.5)})
	require.NoError(t, err)
	assert.Equal(t, "Solar", plan.PlanName)

	_, err = service.Create(&dto.PlanRequest{PlanName: "Bad", Location: "Austin", Price: price(-1)})
	assert.Equal(t, ErrInvalidPrice, err)

	updated, err := service.Update(plan.ID, &dto.PlanRequest{PlanName: "Solar Plus", Location: "Austin", Price: price(14)})
	require.NoError(t, err)
	assert.InDelta(t, 14.0, updated.Price, 0.0001)

	require.NoError(t, service.Delete(plan.ID))
	_, err = service.Get(plan.ID)
	assert.Equal(t, ErrPlanNotFound, err)

	assert.Equal(t, ErrPlanNotFound, service.Delete(plan.ID))
}

func TestPlanService_List_CacheInvalidatedOnWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewPlanService(repository.NewPlanRepository(db), time.Minute)
	testutil.TestPlan(t, db, testutil.WithLocation("Austin"))

	plans, err := service.List(&dto.PlanFilter{Location: "austin"})
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	// 绕过 service 直接写库，缓存仍返回旧结果
	testutil.TestPlan(t, db, testutil.WithLocation("Austin"))
	plans, err = service.List(&dto.PlanFilter{Location: "AUSTIN"})
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	_, err = service.Create(&dto.PlanRequest{PlanName: "Wind", Location: "Austin", Price: price(3)})
	require.NoError(t, err)
	plans, err = service.List(&dto.PlanFilter{Location: "austin"})
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}
