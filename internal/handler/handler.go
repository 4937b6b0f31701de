package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "shortlink-platform/internal/errors"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/service"
)

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	registry   *service.Registry
	dispatcher *service.Dispatcher
}

// NewShortLinkHandler 创建处理器实例
func NewShortLinkHandler(registry *service.Registry, dispatcher *service.Dispatcher) *ShortLinkHandler {
	return &ShortLinkHandler{registry: registry, dispatcher: dispatcher}
}

// HealthCheck 健康检查
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateShortLinkRequest 缩短请求
type CreateShortLinkRequest struct {
	URL         string  `json:"url" binding:"required" example:"https://github.com/gin-gonic/gin"`
	CustomAlias *string `json:"custom_alias,omitempty" example:"my-link"`
}

// ShortLinkResponse 缩短成功的响应
type ShortLinkResponse struct {
	ID          uint    `json:"id"`
	OriginalURL string  `json:"original_url"`
	ShortCode   string  `json:"short_code"`
	ShortURL    string  `json:"short_url" example:"http://localhost:8080/1a2b3c4d"`
	CustomAlias *string `json:"custom_alias,omitempty"`
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 为一个长 URL 创建短链接，可指定自定义别名；匿名用户也可调用
// @Tags ShortLink
// @Accept  json
// @Produce  json
// @Param   request  body   CreateShortLinkRequest  true  "长链接 URL 与可选别名"
// @Success 201 {object} ShortLinkResponse "成功响应"
// @Failure 400 {object} gin.H "URL 或别名无效"
// @Failure 409 {object} gin.H "别名已被占用"
// @Router /api/shorten [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	link, err := h.registry.Create(c.Request.Context(), req.URL, req.CustomAlias, ownerIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ShortLinkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    baseURL(c) + "/" + link.ShortCode,
		CustomAlias: link.CustomAlias,
	})
}

// BulkShortenRequest 批量缩短请求
type BulkShortenRequest struct {
	URLs []BulkShortenItem `json:"urls" binding:"required,min=1"`
}

// BulkShortenItem 批量缩短的单条输入
type BulkShortenItem struct {
	URL         string  `json:"url"`
	CustomAlias *string `json:"custom_alias,omitempty"`
}

// BulkShortenResult 批量缩短的单条结果，Error 非空表示该条失败
type BulkShortenResult struct {
	ID          uint   `json:"id,omitempty"`
	OriginalURL string `json:"original_url"`
	ShortCode   string `json:"short_code,omitempty"`
	ShortURL    string `json:"short_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BulkShorten godoc
// @Summary 批量创建短链接
// @Description 逐条处理，单条失败不影响其余条目，结果顺序与输入一致
// @Tags ShortLink
// @Accept  json
// @Produce  json
// @Param   request  body   BulkShortenRequest  true  "待缩短的 URL 列表"
// @Success 200 {object} gin.H "逐条结果"
// @Failure 400 {object} gin.H "请求无效"
// @Router /api/shorten/bulk [post]
func (h *ShortLinkHandler) BulkShorten(c *gin.Context) {
	var req BulkShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	items := make([]service.BulkItem, 0, len(req.URLs))
	for _, u := range req.URLs {
		items = append(items, service.BulkItem{OriginalURL: u.URL, CustomAlias: u.CustomAlias})
	}

	results := h.registry.ShortenBulk(c.Request.Context(), items, ownerIDFrom(c))

	out := make([]BulkShortenResult, 0, len(results))
	for _, r := range results {
		item := BulkShortenResult{OriginalURL: r.OriginalURL}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			item.ID = r.ID
			item.ShortCode = r.ShortCode
			item.ShortURL = baseURL(c) + "/" + r.ShortCode
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// RedirectToOriginal godoc
// @Summary 短码重定向
// @Description 解析短码或别名并 302 跳转到原始 URL，点击事件异步记录
// @Tags ShortLink
// @Produce  json
// @Param   code  path  string  true  "短码或别名"
// @Success 302 "重定向"
// @Failure 404 {object} gin.H "链接不存在或已禁用"
// @Router /{code} [get]
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	code := c.Param("code")

	link, err := h.dispatcher.ResolveAndRedirect(c.Request.Context(), code, service.RawClick{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, link.OriginalURL)
}

// GetLinks godoc
// @Summary 当前用户的链接列表
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {array} model.ShortLink
// @Router /api/links [get]
func (h *ShortLinkHandler) GetLinks(c *gin.Context) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	links, err := h.registry.ListByOwner(c.Request.Context(), requester.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// UpdateLinkRequest 更新请求，custom_alias 缺省表示清除别名
type UpdateLinkRequest struct {
	CustomAlias *string `json:"custom_alias,omitempty"`
}

// UpdateLink godoc
// @Summary 更新链接别名
// @Description 只有链接所有者（或管理员）可以修改；别名可用性检查排除自身
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Param   request  body  UpdateLinkRequest  true  "新别名"
// @Success 200 {object} model.ShortLink
// @Failure 403 {object} gin.H "无权操作"
// @Failure 409 {object} gin.H "别名已被占用"
// @Router /api/links/{id} [put]
func (h *ShortLinkHandler) UpdateLink(c *gin.Context) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的链接 ID"})
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	// 记下旧值，更新成功后把短码和新旧别名的缓存一起清掉
	current, err := h.registry.GetOwned(c.Request.Context(), id, requester)
	if err != nil {
		respondError(c, err)
		return
	}
	staleCodes := []string{current.ShortCode}
	if current.CustomAlias != nil {
		staleCodes = append(staleCodes, *current.CustomAlias)
	}

	link, err := h.registry.Update(c.Request.Context(), id, requester, req.CustomAlias)
	if err != nil {
		respondError(c, err)
		return
	}

	h.dispatcher.InvalidateCache(c.Request.Context(), staleCodes...)
	c.JSON(http.StatusOK, link)
}

// DeleteLink godoc
// @Summary 删除链接（软删除）
// @Description 链接被置为不可用，点击历史保留；操作幂等
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce  json
// @Param   id  path  int  true  "链接 ID"
// @Success 200 {object} gin.H "删除成功"
// @Failure 403 {object} gin.H "无权操作"
// @Router /api/links/{id} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的链接 ID"})
		return
	}

	link, err := h.registry.GetOwned(c.Request.Context(), id, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.registry.SoftDelete(c.Request.Context(), id, requester); err != nil {
		respondError(c, err)
		return
	}

	staleCodes := []string{link.ShortCode}
	if link.CustomAlias != nil {
		staleCodes = append(staleCodes, *link.CustomAlias)
	}
	h.dispatcher.InvalidateCache(c.Request.Context(), staleCodes...)

	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// AliasAvailable godoc
// @Summary 检查别名是否可用
// @Tags ShortLink
// @Produce  json
// @Param   alias  path  string  true  "候选别名"
// @Success 200 {object} gin.H "available 字段表示结果"
// @Router /api/alias/{alias}/available [get]
func (h *ShortLinkHandler) AliasAvailable(c *gin.Context) {
	alias := c.Param("alias")
	available, err := h.registry.AliasAvailable(c.Request.Context(), alias)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alias": alias, "available": available})
}

// respondError 按错误分类映射 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidURL), errors.Is(err, apperrors.ErrInvalidAlias):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAliasTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在或已禁用"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "无权操作该链接"})
	case errors.Is(err, apperrors.ErrPersistence):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "存储暂时不可用，请稍后重试"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

// ownerIDFrom 已认证时返回用户 ID，匿名返回 nil
func ownerIDFrom(c *gin.Context) *string {
	requester, ok := middleware.RequesterFrom(c)
	if !ok {
		return nil
	}
	return &requester.UserID
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
