package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/oauth"
	"github.com/qs3c/powerplan_server/internal/pkg/response"
	"github.com/qs3c/powerplan_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	stateStore  *oauth.StateStore
}

func NewAuthHandler(authService *service.AuthService, stateStore *oauth.StateStore) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		stateStore:  stateStore,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.DuplicateError(c, err.Error())
		case isValidationError(err):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "注册成功，请等待管理员审批", resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials),
			errors.Is(err, service.ErrAwaitingApproval),
			errors.Is(err, service.ErrRegistrationRejected):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// GithubAuth 跳转 GitHub 授权页
// GET /api/v1/auth/github?redirect=xxx
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	if !h.authService.GithubEnabled() {
		response.ParamError(c, service.ErrGithubDisabled.Error())
		return
	}

	state, err := h.stateStore.GenerateState(c.Request.Context(), c.Query("redirect"))
	if err != nil {
		if errors.Is(err, oauth.ErrUnsafeRedirect) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	c.Redirect(http.StatusFound, h.authService.GetGithubAuthURL(state))
}

// GithubCallback GitHub 授权回调
// GET /api/v1/auth/github/callback?code=xxx&state=xxx
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	redirect, err := h.stateStore.ValidateState(c.Request.Context(), c.Query("state"))
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	code := c.Query("code")
	if code == "" {
		response.ParamError(c, "缺少授权码")
		return
	}

	resp, err := h.authService.GithubCallback(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGithubDisabled):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrAwaitingApproval),
			errors.Is(err, service.ErrRegistrationRejected):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "GitHub 登录失败")
		}
		return
	}

	if redirect != "" {
		target, err := url.Parse(redirect)
		if err == nil {
			q := target.Query()
			q.Set("token", resp.Token)
			target.RawQuery = q.Encode()
			c.Redirect(http.StatusFound, target.String())
			return
		}
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}
