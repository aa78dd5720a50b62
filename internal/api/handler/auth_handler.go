package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/api/middleware"
	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Login 本地登录
// @Summary 本地用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Failure 401 {object} responses.Response
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// LoginIDM IDM(LDAP)登录
// @Summary IDM登录
// @Description 首次登录自动创建只读用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/idm [post]
func (h *AuthHandler) LoginIDM(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.authService.LoginIDM(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Refresh 刷新Token
// @Summary 刷新访问Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "刷新Token请求"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Me 当前调用方
// @Summary 当前调用方信息
// @Tags 认证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} responses.Response{data=dto.PrincipalResponse}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	resp, err := h.userService.Me(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}
