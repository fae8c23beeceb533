package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

// StatementHandler 合并账单归档
type StatementHandler struct {
	statementService *service.StatementService
}

func NewStatementHandler(statementService *service.StatementService) *StatementHandler {
	return &StatementHandler{
		statementService: statementService,
	}
}

// Archive 提交归档任务，生成完成后通过 WebSocket 推送 bill_ready
// POST /api/v1/bills/archive?period=previous
func (h *StatementHandler) Archive(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.statementService.Archive(c.Request.Context(), userID, &q)
	if err != nil {
		billingError(c, err)
		return
	}

	response.SuccessWithMessage(c, "归档任务已提交", resp)
}

// List 归档任务列表
// GET /api/v1/bills/archive?page=1&page_size=20
func (h *StatementHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.statementService.List(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 归档任务详情
// GET /api/v1/bills/archive/:id
func (h *StatementHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.statementService.Get(userID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrJobNoAccess):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, item)
}
