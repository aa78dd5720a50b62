package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type JobHandler struct {
	jobService *service.JobService
}

func NewJobHandler(jobService *service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// Create 登记CI任务
// @Summary 登记CI任务
// @Tags Job
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.BuildJobCreateRequest true "CI任务"
// @Success 201 {object} responses.Response{data=model.BuildJob}
// @Router /api/v1/builds/{id}/jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BuildJobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	job, err := h.jobService.Create(c.Request.Context(), buildID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, job)
}

// List CI任务列表, 最新在前
// @Summary CI任务列表
// @Tags Job
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Success 200 {object} responses.Response{data=[]model.BuildJob}
// @Router /api/v1/builds/{id}/jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}

	jobs, err := h.jobService.List(c.Request.Context(), buildID)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, jobs)
}

// Update 更新CI任务
// @Summary 更新CI任务
// @Tags Job
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param job_id path int true "任务ID"
// @Param request body dto.BuildJobUpdateRequest true "CI任务"
// @Success 200 {object} responses.Response{data=model.BuildJob}
// @Router /api/v1/builds/{id}/jobs/{job_id} [patch]
func (h *JobHandler) Update(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "job_id")
	if !ok {
		return
	}
	var req dto.BuildJobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	job, err := h.jobService.Update(c.Request.Context(), buildID, id, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, job)
}
