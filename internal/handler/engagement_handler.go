package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/service"
)

type commentRequest struct {
	Comment string `json:"comment"`
}

// AddComment 为文章添加评论。
func (a *API) AddComment(c *gin.Context) {
	blogID, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	var req commentRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	comment, err := a.comments.Add(c.Request.Context(), blogID, userID, req.Comment)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments 返回文章评论，最新在前。
func (a *API) ListComments(c *gin.Context) {
	blogID, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	comments, err := a.comments.List(c.Request.Context(), blogID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// DeleteComment 删除评论，仅作者或管理员可操作。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	_, claims, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.comments.Delete(c.Request.Context(), claims, id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// Subscribe 订阅邮件通讯。
func (a *API) Subscribe(c *gin.Context) {
	var req emailRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	created, err := a.engagement.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "Already subscribed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed successfully"})
}

// SubscriberCount 返回订阅总数。
func (a *API) SubscriberCount(c *gin.Context) {
	count, err := a.engagement.SubscriberCount(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// SubmitContact 保存联系表单。
func (a *API) SubmitContact(c *gin.Context) {
	var req service.ContactInput
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if _, err := a.engagement.SubmitContact(c.Request.Context(), req); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully"})
}
