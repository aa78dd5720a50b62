package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/api/middleware"
	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Create 创建本地用户
// @Summary 创建用户
// @Tags User
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.UserCreateRequest true "用户"
// @Success 201 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, user)
}

// List 用户列表
// @Summary 用户列表
// @Tags User
// @Produce json
// @Security ApiKeyAuth
// @Param keyword query string false "用户名关键字"
// @Success 200 {object} responses.Response{data=dto.PageResponse}
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.userService.List(c.Request.Context(), &query)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, page)
}

// Get 用户详情(本人或管理员)
// @Summary 用户详情
// @Tags User
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id, middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, user)
}

// Update 更新用户
// @Summary 更新用户
// @Tags User
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param request body dto.UserUpdateRequest true "用户"
// @Success 200 {object} responses.Response{data=dto.UserResponse}
// @Router /api/v1/users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, &req, middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, user)
}

// CreateToken 创建API Token
// @Summary 创建API Token
// @Description 明文Token只在本次响应中返回
// @Tags User
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param request body dto.TokenCreateRequest true "Token"
// @Success 201 {object} responses.Response{data=dto.TokenCreateResponse}
// @Router /api/v1/users/{id}/tokens [post]
func (h *UserHandler) CreateToken(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TokenCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	token, err := h.userService.CreateToken(c.Request.Context(), id, &req, middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, token)
}

// ListTokens API Token列表
// @Summary API Token列表
// @Tags User
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} responses.Response{data=[]model.APIToken}
// @Router /api/v1/users/{id}/tokens [get]
func (h *UserHandler) ListTokens(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	tokens, err := h.userService.ListTokens(c.Request.Context(), id, middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, tokens)
}

// DeleteToken 删除API Token
// @Summary 删除API Token
// @Tags User
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param token_id path int true "Token ID"
// @Success 204
// @Router /api/v1/users/{id}/tokens/{token_id} [delete]
func (h *UserHandler) DeleteToken(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tokenID, ok := pathID(c, "token_id")
	if !ok {
		return
	}

	if err := h.userService.DeleteToken(c.Request.Context(), id, tokenID, middleware.GetPrincipal(c)); err != nil {
		responses.Error(c, err)
		return
	}

	responses.NoContent(c)
}
