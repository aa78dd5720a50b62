package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type StateCodeHandler struct {
	stateCodeService *service.StateCodeService
}

func NewStateCodeHandler(stateCodeService *service.StateCodeService) *StateCodeHandler {
	return &StateCodeHandler{stateCodeService: stateCodeService}
}

// Create 创建状态码
// @Summary 创建状态码
// @Description 项目内生效状态名唯一, 且最多一个生效的初始状态
// @Tags StateCode
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.StateCodeCreateRequest true "状态码"
// @Success 201 {object} responses.Response{data=model.StateCode}
// @Failure 409 {object} responses.Response
// @Router /api/v1/projects/{id}/state-codes [post]
func (h *StateCodeHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.StateCodeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sc, err := h.stateCodeService.Create(c.Request.Context(), projectID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, sc)
}

// List 状态码列表
// @Summary 状态码列表
// @Tags StateCode
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param include_inactive query bool false "包含已停用"
// @Success 200 {object} responses.Response{data=[]model.StateCode}
// @Router /api/v1/projects/{id}/state-codes [get]
func (h *StateCodeHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.StateCodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.stateCodeService.List(c.Request.Context(), projectID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, list)
}

// Get 状态码详情
// @Summary 状态码详情
// @Tags StateCode
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param state_code_id path int true "状态码ID"
// @Success 200 {object} responses.Response{data=model.StateCode}
// @Router /api/v1/projects/{id}/state-codes/{state_code_id} [get]
func (h *StateCodeHandler) Get(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "state_code_id")
	if !ok {
		return
	}

	sc, err := h.stateCodeService.Get(c.Request.Context(), projectID, id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, sc)
}

// Update 更新状态码
// @Summary 更新状态码
// @Tags StateCode
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param state_code_id path int true "状态码ID"
// @Param request body dto.StateCodeUpdateRequest true "状态码"
// @Success 200 {object} responses.Response{data=model.StateCode}
// @Router /api/v1/projects/{id}/state-codes/{state_code_id} [put]
func (h *StateCodeHandler) Update(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "state_code_id")
	if !ok {
		return
	}
	var req dto.StateCodeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	sc, err := h.stateCodeService.Update(c.Request.Context(), projectID, id, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, sc)
}

// Delete 停用状态码
// @Summary 停用状态码
// @Description 仍有未结束的构建停留在该状态时返回400
// @Tags StateCode
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param state_code_id path int true "状态码ID"
// @Success 204
// @Router /api/v1/projects/{id}/state-codes/{state_code_id} [delete]
func (h *StateCodeHandler) Delete(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "state_code_id")
	if !ok {
		return
	}

	if err := h.stateCodeService.Deactivate(c.Request.Context(), projectID, id); err != nil {
		responses.Error(c, err)
		return
	}

	responses.NoContent(c)
}
