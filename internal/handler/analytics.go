package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/service"
)

// AnalyticsHandler 统计查询与点击补录处理器
type AnalyticsHandler struct {
	registry   *service.Registry
	aggregator *service.Aggregator
	recorder   *service.Recorder
}

// NewAnalyticsHandler 创建统计处理器实例
func NewAnalyticsHandler(registry *service.Registry, aggregator *service.Aggregator, recorder *service.Recorder) *AnalyticsHandler {
	return &AnalyticsHandler{registry: registry, aggregator: aggregator, recorder: recorder}
}

// RecordClickRequest 点击补录请求
type RecordClickRequest struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty"`
}

// RecordClick godoc
// @Summary 补录一次点击
// @Description 供外部协作方（二维码、预览等入口）上报经由它们发生的访问
// @Tags Analytics
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Param   request  body  RecordClickRequest  true  "点击上下文"
// @Success 201 {object} model.ClickEvent
// @Failure 403 {object} gin.H "无权操作"
// @Router /api/links/{id}/clicks [post]
func (h *AnalyticsHandler) RecordClick(c *gin.Context) {
	linkID, ok := h.ownedLinkID(c)
	if !ok {
		return
	}

	var req RecordClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	event, err := h.recorder.Record(c.Request.Context(), linkID, service.RawClick{
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Referer:   req.Referer,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GetSummary godoc
// @Summary 当前用户的统计摘要
// @Description 活跃链接数、历史总点击数（含已删链接）、最近 30 天点击数
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} service.Summary
// @Router /api/analytics/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	summary, err := h.aggregator.UserSummary(c.Request.Context(), requester.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTrends godoc
// @Summary 某链接的点击趋势
// @Description 最近 days 天内每个有点击的自然日（UTC）的点击数，日期升序
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   id    path   int  true   "链接 ID"
// @Param   days  query  int  false  "天数窗口，默认 30"
// @Success 200 {array} repository.DailyClicks
// @Failure 403 {object} gin.H "无权查看"
// @Router /api/analytics/{id}/trends [get]
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	linkID, ok := h.ownedLinkID(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days 必须在 1-365 之间"})
		return
	}

	trends, err := h.aggregator.ClickTrends(c.Request.Context(), linkID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// GetGeo godoc
// @Summary 某链接的地域分布
// @Description 按国家分组的点击数，降序，最多 10 条，未知国家归入 unknown
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Success 200 {array} repository.CountryClicks
// @Router /api/analytics/{id}/geo [get]
func (h *AnalyticsHandler) GetGeo(c *gin.Context) {
	linkID, ok := h.ownedLinkID(c)
	if !ok {
		return
	}

	rows, err := h.aggregator.GeoBreakdown(c.Request.Context(), linkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetDevices godoc
// @Summary 某链接的设备分布
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Success 200 {array} repository.DeviceClicks
// @Router /api/analytics/{id}/devices [get]
func (h *AnalyticsHandler) GetDevices(c *gin.Context) {
	linkID, ok := h.ownedLinkID(c)
	if !ok {
		return
	}

	rows, err := h.aggregator.DeviceBreakdown(c.Request.Context(), linkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetReferers godoc
// @Summary 某链接的来源分布
// @Description 按来源页分组的点击数，降序，最多 10 条，直接访问归入 direct
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Success 200 {array} repository.RefererClicks
// @Router /api/analytics/{id}/referers [get]
func (h *AnalyticsHandler) GetReferers(c *gin.Context) {
	linkID, ok := h.ownedLinkID(c)
	if !ok {
		return
	}

	rows, err := h.aggregator.RefererBreakdown(c.Request.Context(), linkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ownedLinkID 解析路径中的链接 ID 并校验所有权，失败时已写响应
func (h *AnalyticsHandler) ownedLinkID(c *gin.Context) (uint, bool) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return 0, false
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的链接 ID"})
		return 0, false
	}

	if _, err := h.registry.GetOwned(c.Request.Context(), id, requester); err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}
