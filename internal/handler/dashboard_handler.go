package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/response"
	"github.com/sumicowork/HOYODB/internal/service/dashboard"
)

// DashboardHandler 后台概览
type DashboardHandler struct {
	dashboardService dashboard.DashboardService
}

func NewDashboardHandler(dashboardService dashboard.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats 统计数据与最新、最热素材
// @Summary 后台统计
// @Tags 管理-概览
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=dashboard.Overview} "获取成功"
// @Router /api/admin/dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	overview, err := h.dashboardService.Overview(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, overview)
}
