package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type BuildHandler struct {
	buildService *service.BuildService
}

func NewBuildHandler(buildService *service.BuildService) *BuildHandler {
	return &BuildHandler{buildService: buildService}
}

// Create 创建构建
// @Summary 创建构建
// @Description 构建进入项目的初始状态, 项目没有生效的初始状态时返回404
// @Tags Build
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.BuildCreateRequest true "创建构建请求"
// @Success 201 {object} responses.Response{data=dto.BuildResponse}
// @Failure 404 {object} responses.Response
// @Router /api/v1/builds [post]
func (h *BuildHandler) Create(c *gin.Context) {
	var req dto.BuildCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	build, err := h.buildService.Create(c.Request.Context(), &req, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, build)
}

// List 构建列表
// @Summary 构建列表
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param project_id query int false "项目ID"
// @Param platform_id query int false "平台ID"
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} responses.Response{data=dto.PageResponse}
// @Router /api/v1/builds [get]
func (h *BuildHandler) List(c *gin.Context) {
	var req dto.BuildListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.buildService.List(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, page)
}

// Get 构建详情
// @Summary 构建详情
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=dto.BuildResponse}
// @Router /api/v1/builds/{id} [get]
func (h *BuildHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	build, err := h.buildService.Get(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, build)
}

// GetState 当前状态与最近10条历史
// @Summary 构建当前状态
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=dto.BuildStateResponse}
// @Router /api/v1/builds/{id}/state [get]
func (h *BuildHandler) GetState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	state, err := h.buildService.GetState(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, state)
}

// Transition 状态流转
// @Summary 状态流转
// @Description 目标状态无效/未生效或构建已结束返回400, expected_version 不匹配返回409
// @Tags Build
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.TransitionRequest true "流转请求"
// @Success 200 {object} responses.Response{data=dto.BuildStateResponse}
// @Failure 400 {object} responses.Response
// @Failure 409 {object} responses.Response
// @Router /api/v1/builds/{id}/state [post]
func (h *BuildHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	state, err := h.buildService.Transition(c.Request.Context(), id, &req, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, state)
}

// RecordFailure 标记构建失败
// @Summary 标记构建失败
// @Description 不改变当前状态指针, 已结束的构建返回400
// @Tags Build
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.FailureRequest true "失败信息"
// @Success 200 {object} responses.Response{data=dto.BuildStateResponse}
// @Router /api/v1/builds/{id}/failure [post]
func (h *BuildHandler) RecordFailure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.FailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	state, err := h.buildService.RecordFailure(c.Request.Context(), id, &req, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, state)
}

// History 完整状态历史, 时间升序
// @Summary 状态历史
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=[]dto.HistoryEntry}
// @Router /api/v1/builds/{id}/history [get]
func (h *BuildHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	history, err := h.buildService.History(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, history)
}

// CreateFailure 登记带外失败记录
// @Summary 登记失败记录
// @Tags Build
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.BuildFailureCreateRequest true "失败记录"
// @Success 201 {object} responses.Response{data=model.BuildFailure}
// @Router /api/v1/builds/{id}/failures [post]
func (h *BuildHandler) CreateFailure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BuildFailureCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	failure, err := h.buildService.CreateFailure(c.Request.Context(), id, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, failure)
}

// ListFailures 失败记录列表
// @Summary 失败记录列表
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param unresolved_only query bool false "只看未解决"
// @Success 200 {object} responses.Response{data=[]model.BuildFailure}
// @Router /api/v1/builds/{id}/failures [get]
func (h *BuildHandler) ListFailures(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BuildFailureListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	failures, err := h.buildService.ListFailures(c.Request.Context(), id, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, failures)
}

// ResolveFailure 标记失败记录已解决
// @Summary 解决失败记录
// @Tags Build
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param failure_id path int true "失败记录ID"
// @Success 200 {object} responses.Response{data=model.BuildFailure}
// @Router /api/v1/builds/{id}/failures/{failure_id} [patch]
func (h *BuildHandler) ResolveFailure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	failureID, ok := pathID(c, "failure_id")
	if !ok {
		return
	}

	failure, err := h.buildService.ResolveFailure(c.Request.Context(), id, failureID, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, failure)
}
