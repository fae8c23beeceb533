package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

// isValidationError 注册信息格式错误
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidFullName) ||
		errors.Is(err, service.ErrInvalidPhone) ||
		errors.Is(err, service.ErrInvalidSSN) ||
		errors.Is(err, service.ErrInvalidZipCode) ||
		errors.Is(err, service.ErrWeakPassword) ||
		errors.Is(err, service.ErrPasswordMatch)
}

// billingError 计费相关错误统一映射为响应码
func billingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidRange):
		response.InvalidRangeError(c, err.Error())
	case errors.Is(err, billing.ErrEmptyInput):
		response.NoPlansError(c)
	case errors.Is(err, billing.ErrUpstreamFailure):
		response.UpstreamError(c, "")
	case errors.Is(err, billing.ErrInvalidPeriod), errors.Is(err, service.ErrInvalidDate):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserPlanNotFound), errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrUserPlanNoAccess):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrPlanNotApproved):
		response.InvalidStateError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
