package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type ArtifactHandler struct {
	artifactService *service.ArtifactService
}

func NewArtifactHandler(artifactService *service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifactService: artifactService}
}

// Register 登记产物
// @Summary 登记产物
// @Description 同一构建内未删除的同名产物返回409
// @Tags Artifact
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param request body dto.ArtifactCreateRequest true "产物"
// @Success 201 {object} responses.Response{data=model.BuildArtifact}
// @Failure 409 {object} responses.Response
// @Router /api/v1/builds/{id}/artifacts [post]
func (h *ArtifactHandler) Register(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ArtifactCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	artifact, err := h.artifactService.Register(c.Request.Context(), buildID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, artifact)
}

// List 产物列表
// @Summary 产物列表
// @Tags Artifact
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param state_code query int false "状态值"
// @Param artifact_type query string false "产物类型"
// @Param is_resumable query bool false "可用于恢复"
// @Param is_final query bool false "最终产物"
// @Success 200 {object} responses.Response{data=[]model.BuildArtifact}
// @Router /api/v1/builds/{id}/artifacts [get]
func (h *ArtifactHandler) List(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ArtifactListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	list, err := h.artifactService.List(c.Request.Context(), buildID, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, list)
}

// Get 产物详情
// @Summary 产物详情
// @Tags Artifact
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param artifact_id path int true "产物ID"
// @Success 200 {object} responses.Response{data=model.BuildArtifact}
// @Router /api/v1/builds/{id}/artifacts/{artifact_id} [get]
func (h *ArtifactHandler) Get(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "artifact_id")
	if !ok {
		return
	}

	artifact, err := h.artifactService.Get(c.Request.Context(), buildID, id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, artifact)
}

// Update 更新产物
// @Summary 更新产物
// @Tags Artifact
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param artifact_id path int true "产物ID"
// @Param request body dto.ArtifactUpdateRequest true "产物"
// @Success 200 {object} responses.Response{data=model.BuildArtifact}
// @Router /api/v1/builds/{id}/artifacts/{artifact_id} [patch]
func (h *ArtifactHandler) Update(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "artifact_id")
	if !ok {
		return
	}
	var req dto.ArtifactUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	artifact, err := h.artifactService.Update(c.Request.Context(), buildID, id, &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, artifact)
}

// Delete 软删除产物
// @Summary 删除产物
// @Tags Artifact
// @Security ApiKeyAuth
// @Param id path int true "构建ID"
// @Param artifact_id path int true "产物ID"
// @Success 204
// @Router /api/v1/builds/{id}/artifacts/{artifact_id} [delete]
func (h *ArtifactHandler) Delete(c *gin.Context) {
	buildID, ok := pathID(c, "id")
	if !ok {
		return
	}
	id, ok := pathID(c, "artifact_id")
	if !ok {
		return
	}

	if err := h.artifactService.Delete(c.Request.Context(), buildID, id); err != nil {
		responses.Error(c, err)
		return
	}

	responses.NoContent(c)
}
