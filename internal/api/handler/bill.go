package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

type BillHandler struct {
	billingService *service.BillingService
}

func NewBillHandler(billingService *service.BillingService) *BillHandler {
	return &BillHandler{
		billingService: billingService,
	}
}

// Calculate 计算单个订阅的账单
// GET /api/v1/bills/:id/calculation?period=current|previous|custom&start=&end=
func (h *BillHandler) Calculate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.billingService.Calculate(c.Request.Context(), userID, id, &q)
	if err != nil {
		billingError(c, err)
		return
	}

	response.Success(c, resp)
}

// Download 下载单个订阅的账单 PDF
// GET /api/v1/bills/:id/download
func (h *BillHandler) Download(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	doc, err := h.billingService.DownloadPlan(userID, id, &q)
	if err != nil {
		billingError(c, err)
		return
	}

	response.Attachment(c, doc.Name, response.ContentTypePDF, doc.Content)
}

// DownloadAll 下载所有已通过订阅的合并账单
// GET /api/v1/bills/all/download
func (h *BillHandler) DownloadAll(c *gin.Context) {
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

	doc, err := h.billingService.DownloadAll(userID, &q)
	if err != nil {
		billingError(c, err)
		return
	}

	response.Attachment(c, doc.Name, response.ContentTypePDF, doc.Content)
}
