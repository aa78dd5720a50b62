package handler

import (
	"github.com/gin-gonic/gin"

	"buildstate/internal/dto"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

// CatalogHandler 项目/平台/系统版本/镜像类型共用的 CRUD handler
type CatalogHandler[T any, R any] struct {
	service *service.CatalogService[T, R]
}

func NewCatalogHandler[T any, R any](svc *service.CatalogService[T, R]) *CatalogHandler[T, R] {
	return &CatalogHandler[T, R]{service: svc}
}

// Create 创建
// @Summary 创建目录项(projects/platforms/os-versions/image-types)
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.ProjectRequest true "请求体随资源类型变化"
// @Success 201 {object} responses.Response
// @Router /api/v1/projects [post]
func (h *CatalogHandler[T, R]) Create(c *gin.Context) {
	req := new(R)
	if err := c.ShouldBindJSON(req); err != nil {
		bindFailed(c, err)
		return
	}

	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Created(c, item)
}

// List 分页列表
// @Summary 目录项列表
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称关键字"
// @Success 200 {object} responses.Response{data=dto.PageResponse}
// @Router /api/v1/projects [get]
func (h *CatalogHandler[T, R]) List(c *gin.Context) {
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), &query)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, page)
}

// Get 详情
// @Summary 目录项详情
// @Tags Catalog
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "ID"
// @Success 200 {object} responses.Response
// @Router /api/v1/projects/{id} [get]
func (h *CatalogHandler[T, R]) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, item)
}

// Update 更新
// @Summary 更新目录项
// @Tags Catalog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "ID"
// @Param request body dto.ProjectRequest true "请求体随资源类型变化"
// @Success 200 {object} responses.Response
// @Router /api/v1/projects/{id} [put]
func (h *CatalogHandler[T, R]) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req := new(R)
	if err := c.ShouldBindJSON(req); err != nil {
		bindFailed(c, err)
		return
	}

	item, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, item)
}

// Delete 软删除
// @Summary 删除目录项
// @Tags Catalog
// @Security ApiKeyAuth
// @Param id path int true "ID"
// @Success 204
// @Router /api/v1/projects/{id} [delete]
func (h *CatalogHandler[T, R]) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		responses.Error(c, err)
		return
	}

	responses.NoContent(c)
}
