package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/service"
)

// AnalyticsSummary 返回当前管理员的站点概览。
func (a *API) AnalyticsSummary(c *gin.Context) {
	ownerID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	overview, err := a.analytics.WebsiteOverview(c.Request.Context(), ownerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// ArticleAnalytics 返回单篇文章的浏览统计。
func (a *API) ArticleAnalytics(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	stats, err := a.analytics.ArticleAnalytics(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PageAnalytics 返回某个页面路径的访问统计。
func (a *API) PageAnalytics(c *gin.Context) {
	stats, err := a.analytics.PageAnalytics(c.Request.Context(), c.Query("page"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// BlogViews 分页列出当前管理员的文章及浏览量。
func (a *API) BlogViews(c *gin.Context) {
	ownerID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		a.respondError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		a.respondError(c, err)
		return
	}

	result, err := a.analytics.ArticlesWithViewCounts(c.Request.Context(), ownerID, service.BlogViewsFilter{
		Category:    service.Ref(c.Query("category")),
		Subcategory: service.Ref(c.Query("subcategory")),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
