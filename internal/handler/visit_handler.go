package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/service"
)

// StartVisit 开始一次文章浏览。
func (a *API) StartVisit(c *gin.Context) {
	var req service.StartVisitInput
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	record, err := a.visits.Start(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}

// EndVisit 关闭会话对文章的打开浏览。
func (a *API) EndVisit(c *gin.Context) {
	var req service.EndVisitInput
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	record, err := a.visits.End(c.Request.Context(), req)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        record.ID,
		"sessionId": record.SessionID,
		"articleId": record.BlogID,
		"visitTime": record.VisitTime,
		"exitTime":  record.ExitTime,
		"duration":  record.Duration,
	})
}
