package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/middleware"
	"github.com/mindfulpath/internal/security"
	"github.com/mindfulpath/internal/service"
	"github.com/mindfulpath/internal/storage"
)

type blogRequest struct {
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Tags          []string    `json:"tags"`
	Language      string      `json:"language"`
	CategoryID    service.Ref `json:"categoryId"`
	SubcategoryID service.Ref `json:"subcategoryId"`
	IsLive        *bool       `json:"isLive"`
}

type setAllLiveRequest struct {
	IsLive *bool `json:"isLive"`
}

// readBlogInput 从 JSON 或 multipart 表单读取文章字段与封面。
func readBlogInput(c *gin.Context) (service.BlogInput, *storage.File, error) {
	if c.ContentType() == gin.MIMEJSON {
		var req blogRequest
		if err := bindJSON(c, &req); err != nil {
			return service.BlogInput{}, nil, err
		}
		return service.BlogInput(req), nil, nil
	}

	isLive, err := formBool(c, "isLive")
	if err != nil {
		return service.BlogInput{}, nil, err
	}
	thumbnail, err := formFile(c, "thumbnail")
	if err != nil {
		return service.BlogInput{}, nil, err
	}
	return service.BlogInput{
		Title:         c.PostForm("title"),
		Content:       c.PostForm("content"),
		Tags:          formTags(c),
		Language:      c.PostForm("language"),
		CategoryID:    service.Ref(formValue(c, "categoryId", "category")),
		SubcategoryID: service.Ref(formValue(c, "subcategoryId", "subcategory")),
		IsLive:        isLive,
	}, thumbnail, nil
}

// CreateBlog 创建文章，封面图必填。
func (a *API) CreateBlog(c *gin.Context) {
	authorID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	input, thumbnail, err := readBlogInput(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	blog, err := a.blogs.Create(c.Request.Context(), authorID, input, thumbnail)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blog)
}

// ListBlogs 分页列出已上线文章。
func (a *API) ListBlogs(c *gin.Context) {
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
	result, err := a.blogs.List(c.Request.Context(), service.BlogFilter{
		Category:    service.Ref(c.Query("category")),
		Subcategory: service.Ref(c.Query("subcategory")),
		Language:    c.Query("language"),
		Tag:         c.Query("tag"),
		Search:      c.Query("search"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetBlog 返回文章详情，管理员可见未上线文章。
func (a *API) GetBlog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	includeHidden := security.RequireRole(middleware.ClaimsFrom(c), security.RoleAdmin) == nil
	blog, err := a.blogs.Get(c.Request.Context(), id, includeHidden)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blog)
}

// UpdateBlog 部分更新文章。
func (a *API) UpdateBlog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	input, thumbnail, err := readBlogInput(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	blog, err := a.blogs.Update(c.Request.Context(), id, input, thumbnail)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blog)
}

// DeleteBlog 删除文章及其评论。
func (a *API) DeleteBlog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.blogs.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blog deleted successfully"})
}

// SetAllLive 批量设置文章上线状态。
func (a *API) SetAllLive(c *gin.Context) {
	var req setAllLiveRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	if req.IsLive == nil {
		a.respondError(c, apperr.Field("isLive", "is required"))
		return
	}
	updated, err := a.blogs.SetAllLive(c.Request.Context(), *req.IsLive)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "All blogs updated to isLive=" + strconv.FormatBool(*req.IsLive),
		"updated": updated,
	})
}

// ToggleLike 切换当前用户的点赞状态。
func (a *API) ToggleLike(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	result, err := a.blogs.ToggleLike(c.Request.Context(), id, userID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": result.Active, "likes": result.Count})
}

// ToggleBookmark 切换当前用户的收藏状态。
func (a *API) ToggleBookmark(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	result, err := a.blogs.ToggleBookmark(c.Request.Context(), id, userID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": result.Active, "bookmarks": result.Count})
}

// SavedBlogs 返回当前用户收藏的文章。
func (a *API) SavedBlogs(c *gin.Context) {
	userID, _, err := currentUser(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	blogs, err := a.blogs.Saved(c.Request.Context(), userID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blogs": blogs})
}
