package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/storage"
)

const uploadFolder = "uploads"

// UploadImage 上传单张图片并返回可访问的 URL。
func (a *API) UploadImage(c *gin.Context) {
	file, err := formFile(c, "file")
	if err != nil {
		a.respondError(c, err)
		return
	}
	if file == nil {
		a.respondError(c, storage.ErrEmptyFile)
		return
	}
	url, err := a.uploader.Upload(c.Request.Context(), uploadFolder, file)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "File uploaded successfully", "url": url})
}
