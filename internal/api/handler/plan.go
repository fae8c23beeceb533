package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// List 套餐列表
// GET /api/v1/plans?location=xxx&name=xxx
func (h *PlanHandler) List(c *gin.Context) {
	var filter dto.PlanFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plans, err := h.planService.List(&filter)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, plans)
}

// Get 套餐详情
// GET /api/v1/plans/:id
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	plan, err := h.planService.Get(id)
	if err != nil {
		planError(c, err)
		return
	}

	response.Success(c, plan)
}

// Create 新建套餐
// POST /api/v1/admin/plans
func (h *PlanHandler) Create(c *gin.Context) {
	var req dto.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plan, err := h.planService.Create(&req)
	if err != nil {
		planError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", plan)
}

// Update 修改套餐，已有订阅保留原价格
// PUT /api/v1/admin/plans/:id
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	plan, err := h.planService.Update(id, &req)
	if err != nil {
		planError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", plan)
}

// Delete 删除套餐
// DELETE /api/v1/admin/plans/:id
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.planService.Delete(id); err != nil {
		planError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

func planError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidPrice):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
