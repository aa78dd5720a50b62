package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgErrors "buildstate/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"` // 详细错误信息（可选）
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

// NoContent 删除成功
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 错误响应, HTTP状态码由错误类别决定
func Error(c *gin.Context, err error) {
	kind := pkgErrors.KindOf(err)
	code := pkgErrors.CodeOf(kind)

	message := err.Error()
	var appErr *pkgErrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Err != nil && kind != pkgErrors.KindInternal {
			message = appErr.Message + ": " + appErr.Err.Error()
		}
	} else if kind == pkgErrors.KindInternal {
		// 未知错误不向调用方暴露内部细节
		message = "内部服务器错误"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Kind:    string(kind),
		Message: message,
	})
}

// ErrorWithDetail 带详细信息的错误响应
func ErrorWithDetail(c *gin.Context, kind pkgErrors.Kind, message, detail string) {
	code := pkgErrors.CodeOf(kind)
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Kind:    string(kind),
		Message: message,
		Detail:  detail,
	})
}
