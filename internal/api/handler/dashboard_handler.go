package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"buildstate/internal/dto"
	"buildstate/internal/pkg/database"
	"buildstate/internal/service"
	"buildstate/pkg/responses"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Summary 看板汇总
// @Summary 看板汇总
// @Tags Dashboard
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} responses.Response{data=dto.DashboardSummary}
// @Router /api/v1/dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, summary)
}

// Recent 最近状态变更
// @Summary 最近状态变更
// @Tags Dashboard
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数, 默认20"
// @Success 200 {object} responses.Response{data=[]dto.HistoryEntry}
// @Router /api/v1/dashboard/recent [get]
func (h *DashboardHandler) Recent(c *gin.Context) {
	var req dto.RecentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	recent, err := h.dashboardService.Recent(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, recent)
}

// HealthHandler 存活/就绪检查
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health 存活检查
// @Summary 存活检查
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready 就绪检查, 数据库不可用时返回503
// @Summary 就绪检查
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := database.Ping(c.Request.Context(), h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
