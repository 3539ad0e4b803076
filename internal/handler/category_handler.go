package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/service"
	"github.com/mindfulpath/internal/storage"
)

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type subcategoryRequest struct {
	Name string `json:"name"`
}

func readCategoryInput(c *gin.Context) (service.CategoryInput, *storage.File, error) {
	if c.ContentType() == gin.MIMEJSON {
		var req categoryRequest
		if err := bindJSON(c, &req); err != nil {
			return service.CategoryInput{}, nil, err
		}
		return service.CategoryInput(req), nil, nil
	}

	input := service.CategoryInput{Name: c.PostForm("name")}
	if description, ok := c.GetPostForm("description"); ok {
		input.Description = &description
	}
	image, err := formFile(c, "categoryImage")
	if err != nil {
		return service.CategoryInput{}, nil, err
	}
	return input, image, nil
}

// ListCategories 返回全部分类及其子分类。
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory 创建分类。
func (a *API) CreateCategory(c *gin.Context) {
	input, image, err := readCategoryInput(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	category, err := a.categories.Create(c.Request.Context(), input, image)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory 更新分类。
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	input, image, err := readCategoryInput(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	category, err := a.categories.Update(c.Request.Context(), id, input, image)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory 删除分类及其子分类。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.categories.Delete(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// CreateSubcategory 在分类下创建子分类。
func (a *API) CreateSubcategory(c *gin.Context) {
	var req subcategoryRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	sub, err := a.categories.CreateSubcategory(c.Request.Context(), service.Ref(c.Param("id")), req.Name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListSubcategories 返回分类下的子分类。
func (a *API) ListSubcategories(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	subs, err := a.categories.ListSubcategories(c.Request.Context(), id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (a *API) UpdateSubcategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	var req subcategoryRequest
	if err := bindJSON(c, &req); err != nil {
		a.respondError(c, err)
		return
	}
	sub, err := a.categories.UpdateSubcategory(c.Request.Context(), id, req.Name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (a *API) DeleteSubcategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.categories.DeleteSubcategory(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory deleted successfully"})
}
