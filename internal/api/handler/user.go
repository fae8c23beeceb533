package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/api/middleware"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

// UserHandler 客户资料
type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func profileError(c *gin.Context, err error) {
	switch {
	case isValidationError(err):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// GetProfile 当前客户资料，不含 SSN
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		profileError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateProfile 修改姓名、电话、地址，邮箱与 SSN 不可改
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	profile, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		profileError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", profile)
}
