package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

// RegistrationHandler 管理员审批注册申请
type RegistrationHandler struct {
	registrationService *service.RegistrationService
}

func NewRegistrationHandler(registrationService *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// ListPending 待审批注册列表
// GET /api/v1/admin/registrations?refresh=true
func (h *RegistrationHandler) ListPending(c *gin.Context) {
	items, err := h.registrationService.ListPending(c.Query("refresh") == "true")
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Approve 通过注册
// POST /api/v1/admin/registrations/:id/approve
func (h *RegistrationHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.registrationService.Approve(c.Request.Context(), id); err != nil {
		decisionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已通过", nil)
}

// Reject 拒绝注册
// POST /api/v1/admin/registrations/:id/reject
func (h *RegistrationHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.registrationService.Reject(c.Request.Context(), id, req.Comment); err != nil {
		decisionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已拒绝", nil)
}

// ApproveAll 批量通过所有待审批注册
// POST /api/v1/admin/registrations/approve-all
func (h *RegistrationHandler) ApproveAll(c *gin.Context) {
	resp, err := h.registrationService.ApproveAll(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// RejectAll 批量拒绝所有待审批注册
// POST /api/v1/admin/registrations/reject-all
func (h *RegistrationHandler) RejectAll(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.registrationService.RejectAll(c.Request.Context(), req.Comment)
	if err != nil {
		if errors.Is(err, service.ErrCommentRequired) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// decisionError 审批类操作的错误映射，注册和订阅审批共用
func decisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCommentRequired):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrUserPlanNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyDecided):
		response.InvalidStateError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
