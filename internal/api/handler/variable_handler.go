package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/api/middleware"
	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type VariableHandler struct {
	variableService *service.VariableService
}

func NewVariableHandler(variableService *service.VariableService) *VariableHandler {
	return &VariableHandler{variableService: variableService}
}

// Set 写入变量
// @Summary 写入变量(按key覆盖)
// @Tags Variable
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.VariableSetRequest true "变量"
// @Success 200 {object} responses.Response{data=dto.VariableResponse}
// @Router /api/v1/builds/{id}/variables [post]
func (h *VariableHandler) Set(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VariableSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	variable, err := h.variableService.Set(c.Request.Context(), buildID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, variable)
}

// List 变量列表, 敏感值掩码
// @Summary 变量列表
// @Tags Variable
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=[]dto.VariableResponse}
// @Router /api/v1/builds/{id}/variables [get]
func (h *VariableHandler) List(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.variableService.List(c.Request.Context(), buildID)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, list)
}

// Dict 变量字典
// @Summary 变量字典(敏感值掩码)
// @Tags Variable
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param required_for_resume query bool false "只看恢复必需变量"
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/builds/{id}/variables/dict [get]
func (h *VariableHandler) Dict(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VariableDictRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	dict, err := h.variableService.Dict(c.Request.Context(), buildID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, dict)
}

// Get 变量原始值
// @Summary 变量原始值
// @Description 敏感变量需要 admin 权限, 否则返回403
// @Tags Variable
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param key path string true "变量名"
// @Success 200 {object} responses.Response{data=dto.VariableResponse}
// @Failure 403 {object} responses.Response
// @Router /api/v1/builds/{id}/variables/{key} [get]
func (h *VariableHandler) Get(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	variable, err := h.variableService.Get(c.Request.Context(), buildID, c.Param("key"), middleware.GetPrincipal(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, variable)
}

// Update 部分更新变量
// @Summary 更新变量
// @Tags Variable
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param key path string true "变量名"
// @Param request body dto.VariableUpdateRequest true "变量"
// @Success 200 {object} responses.Response{data=dto.VariableResponse}
// @Router /api/v1/builds/{id}/variables/{key} [patch]
func (h *VariableHandler) Update(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VariableUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	variable, err := h.variableService.Update(c.Request.Context(), buildID, c.Param("key"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, variable)
}

// Delete 删除变量
// @Summary 删除变量
// @Tags Variable
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param key path string true "变量名"
// @Success 204
// @Router /api/v1/builds/{id}/variables/{key} [delete]
func (h *VariableHandler) Delete(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.variableService.Delete(c.Request.Context(), buildID, c.Param("key")); err != nil {
		responses.Error(c, err)
		return
	}

	responses.NoContent(c)
}
