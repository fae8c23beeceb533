package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

type UserPlanHandler struct {
	userPlanService *service.UserPlanService
	billingService  *service.BillingService
}

func NewUserPlanHandler(userPlanService *service.UserPlanService, billingService *service.BillingService) *UserPlanHandler {
	return &UserPlanHandler{
		userPlanService: userPlanService,
		billingService:  billingService,
	}
}

// Subscribe 申请订阅套餐
// POST /api/v1/user-plans
func (h *UserPlanHandler) Subscribe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.userPlanService.Subscribe(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDate):
			response.ParamError(c, err.Error())
		case errors.Is(err, billing.ErrInvalidRange):
			response.InvalidRangeError(c, err.Error())
		case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrUserNotFound):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "申请已提交", item)
}

// List 我的订阅，按状态分组
// GET /api/v1/user-plans
func (h *UserPlanHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.userPlanService.List(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// Unsubscribe 取消订阅
// DELETE /api/v1/user-plans/:id
func (h *UserPlanHandler) Unsubscribe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.userPlanService.Unsubscribe(userID, id); err != nil {
		switch {
		case errors.Is(err, service.ErrUserPlanNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrUserPlanNoAccess):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "已取消订阅", nil)
}

// Insights 本月用量概览
// GET /api/v1/user-plans/insights
func (h *UserPlanHandler) Insights(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	ins, err := h.billingService.Insights(userID)
	if err != nil {
		billingError(c, err)
		return
	}

	response.Success(c, service.ToInsightsResponse(ins))
}

// ExportInsights 导出用量概览
// GET /api/v1/user-plans/insights/export
func (h *UserPlanHandler) ExportInsights(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	name, data, err := h.billingService.ExportInsights(userID)
	if err != nil {
		billingError(c, err)
		return
	}

	response.Attachment(c, name, response.ContentTypeXLSX, data)
}

// AdminList 管理员查询订阅
// GET /api/v1/admin/user-plans?status=new
func (h *UserPlanHandler) AdminList(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", model.UserPlanStatusNew, model.UserPlanStatusApproved, model.UserPlanStatusRejected:
	default:
		response.ParamError(c, "无效的状态")
		return
	}

	items, err := h.userPlanService.AdminList(status)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Approve 审批通过订阅
// POST /api/v1/admin/user-plans/:id/approve
func (h *UserPlanHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.userPlanService.Approve(c.Request.Context(), id); err != nil {
		decisionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已通过", nil)
}

// Reject 拒绝订阅
// POST /api/v1/admin/user-plans/:id/reject
func (h *UserPlanHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.userPlanService.Reject(c.Request.Context(), id, req.Comment); err != nil {
		decisionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已拒绝", nil)
}
