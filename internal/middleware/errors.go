package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindfulpath/internal/apperr"
)

// ErrorBody 是所有错误响应的 JSON 结构。
type ErrorBody struct {
	Message string                `json:"message"`
	Errors  []apperr.FieldProblem `json:"errors,omitempty"`
}

// WriteError 将错误映射为状态码并写入响应，内部错误只记录日志不暴露原因。
func WriteError(c *gin.Context, logger *zap.Logger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(ae.Status(), ErrorBody{Message: ae.Message, Errors: ae.Fields})
}
