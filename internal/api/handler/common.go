package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"buildstate/internal/api/middleware"
	pkgErrors "buildstate/pkg/errors"
	"buildstate/pkg/responses"
	"buildstate/pkg/utils"
)

// bindFailed 参数绑定/校验失败
func bindFailed(c *gin.Context, err error) {
	responses.ErrorWithDetail(c, pkgErrors.KindInvalidArgument, "请求参数错误", utils.FormatValidationError(err))
}

// pathID 解析路径中的正整数ID, 失败时已写入响应
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		responses.ErrorWithDetail(c, pkgErrors.KindInvalidArgument, "请求参数错误", name+" 必须为正整数")
		return 0, false
	}
	return id, true
}

// pathInt 解析路径中的非负整数
func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		responses.ErrorWithDetail(c, pkgErrors.KindInvalidArgument, "请求参数错误", name+" 必须为非负整数")
		return 0, false
	}
	return v, true
}

// operatorOf 操作人名称, 写入历史与审计字段
func operatorOf(c *gin.Context) string {
	if principal := middleware.GetPrincipal(c); principal != nil {
		return principal.Name
	}
	return "anonymous"
}
