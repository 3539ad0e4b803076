package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/middleware"
	"github.com/mindfulpath/internal/security"
	"github.com/mindfulpath/internal/storage"
)

func (a *API) respondError(c *gin.Context, err error) {
	middleware.WriteError(c, a.logger, err)
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Field(key, "must be a valid id")
	}
	return uint(id), nil
}

// queryInt 读取整数查询参数，缺省时返回 def。
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Field(key, "must be an integer")
	}
	return value, nil
}

// currentUser 返回已认证用户的 ID。
func currentUser(c *gin.Context) (uint, *security.Claims, error) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return 0, nil, apperr.Auth("No token provided")
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, nil, apperr.Auth("Invalid token")
	}
	return id, claims, nil
}

// formFile 读取可选的上传文件，字段缺失时返回 nil。
func formFile(c *gin.Context, field string) (*storage.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.Validation("Invalid multipart form")
	}
	return storage.ReadMultipart(fh)
}

// formValue 依次读取多个候选字段名。
func formValue(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if value, ok := c.GetPostForm(key); ok {
			return value
		}
	}
	return ""
}

// formBool 解析可选的布尔字段。
func formBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetPostForm(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.Field(key, "must be true or false")
	}
	return &value, nil
}

// formTags 接受逗号分隔的字符串、重复字段或 JSON 数组；字段缺失时返回 nil。
func formTags(c *gin.Context) []string {
	values, ok := c.GetPostFormArray("tags")
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				tags = append(tags, parsed...)
				continue
			}
		}
		for _, part := range strings.Split(trimmed, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	}
	return tags
}
