package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type ResumeHandler struct {
	resumeService *service.ResumeService
}

func NewResumeHandler(resumeService *service.ResumeService) *ResumeHandler {
	return &ResumeHandler{resumeService: resumeService}
}

// Context 恢复上下文
// @Summary 恢复上下文
// @Description 恢复起点、可恢复产物、变量(掩码)与恢复策略
// @Tags Resume
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=resume.Context}
// @Router /api/v1/builds/{id}/resume-context [get]
func (h *ResumeHandler) Context(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	rc, err := h.resumeService.GetContext(c.Request.Context(), buildID)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, rc)
}

// CreateRequest 发起恢复请求
// @Summary 发起恢复请求
// @Description resume_from_state 小于0或 resume_to_state 不大于 resume_from_state 返回422
// @Tags Resume
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.ResumeRequestCreateRequest true "恢复请求"
// @Success 201 {object} responses.Response{data=model.ResumeRequest}
// @Failure 422 {object} responses.Response
// @Router /api/v1/builds/{id}/resume [post]
func (h *ResumeHandler) CreateRequest(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResumeRequestCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	request, err := h.resumeService.CreateRequest(c.Request.Context(), buildID, &req, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, request)
}

// ListByBuild 构建的恢复请求
// @Summary 构建的恢复请求
// @Tags Resume
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=[]model.ResumeRequest}
// @Router /api/v1/builds/{id}/resume-requests [get]
func (h *ResumeHandler) ListByBuild(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.resumeService.ListRequests(c.Request.Context(), buildID)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, list)
}

// List 恢复请求队列
// @Summary 恢复请求队列
// @Tags Resume
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "编排状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} responses.Response{data=dto.PageResponse}
// @Router /api/v1/resume-requests [get]
func (h *ResumeHandler) List(c *gin.Context) {
	var req dto.ResumeRequestListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.resumeService.ListAllRequests(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, page)
}

// GetRequest 恢复请求详情
// @Summary 恢复请求详情
// @Tags Resume
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "恢复请求ID"
// @Success 200 {object} responses.Response{data=model.ResumeRequest}
// @Router /api/v1/resume-requests/{id} [get]
func (h *ResumeHandler) GetRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	request, err := h.resumeService.GetRequest(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, request)
}

// UpdateRequest 编排系统回写
// @Summary 更新恢复请求
// @Description 只允许修改编排字段; 进入 running 时重新打开已结束的构建
// @Tags Resume
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "恢复请求ID"
// @Param request body dto.ResumeRequestUpdateRequest true "编排字段"
// @Success 200 {object} responses.Response{data=model.ResumeRequest}
// @Router /api/v1/resume-requests/{id} [patch]
func (h *ResumeHandler) UpdateRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResumeRequestUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	request, err := h.resumeService.UpdateRequest(c.Request.Context(), id, &req, operatorOf(c))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, request)
}

// CreateResumableState 创建恢复策略
// @Summary 创建恢复策略
// @Tags ResumableState
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param request body dto.ResumableStateCreateRequest true "恢复策略"
// @Success 201 {object} responses.Response{data=model.ResumableState}
// @Failure 409 {object} responses.Response
// @Router /api/v1/projects/{id}/resumable-states [post]
func (h *ResumeHandler) CreateResumableState(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResumableStateCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	rs, err := h.resumeService.CreateResumableState(c.Request.Context(), projectID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, rs)
}

// ListResumableStates 恢复策略列表
// @Summary 恢复策略列表
// @Tags ResumableState
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param is_resumable query bool false "是否可恢复"
// @Success 200 {object} responses.Response{data=[]model.ResumableState}
// @Router /api/v1/projects/{id}/resumable-states [get]
func (h *ResumeHandler) ListResumableStates(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResumableStateListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.resumeService.ListResumableStates(c.Request.Context(), projectID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, list)
}

// GetResumableState 恢复策略详情
// @Summary 恢复策略详情
// @Tags ResumableState
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param state_code path int true "状态值"
// @Success 200 {object} responses.Response{data=model.ResumableState}
// @Router /api/v1/projects/{id}/resumable-states/{state_code} [get]
func (h *ResumeHandler) GetResumableState(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stateCode, ok := pathInt(c, "state_code")
	if !ok {
		return
	}

	rs, err := h.resumeService.GetResumableState(c.Request.Context(), projectID, stateCode)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, rs)
}

// UpdateResumableState 更新恢复策略
// @Summary 更新恢复策略
// @Tags ResumableState
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "项目ID"
// @Param state_code path int true "状态值"
// @Param request body dto.ResumableStateUpdateRequest true "恢复策略"
// @Success 200 {object} responses.Response{data=model.ResumableState}
// @Router /api/v1/projects/{id}/resumable-states/{state_code} [put]
func (h *ResumeHandler) UpdateResumableState(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	stateCode, ok := pathInt(c, "state_code")
	if !ok {
		return
	}
	var req dto.ResumableStateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	rs, err := h.resumeService.UpdateResumableState(c.Request.Context(), projectID, stateCode, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, rs)
}
