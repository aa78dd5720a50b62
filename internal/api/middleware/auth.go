package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"buildstate/internal/pkg/auth"
	"buildstate/internal/service"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
	"buildstate/pkg/responses"
)

// AuthMiddleware 认证中间件, 支持 Bearer JWT 与 X-API-Key
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *auth.Principal
		var err error

		if key := c.GetHeader(constants.HeaderAPIKey); key != "" {
			principal, err = authService.AuthenticateAPIKey(c.Request.Context(), key)
		} else {
			authHeader := c.GetHeader(constants.HeaderAuthorization)
			if authHeader == "" {
				responses.Error(c, pkgErrors.New(pkgErrors.KindUnauthorized, "缺少认证信息"))
				return
			}
			// 检查Bearer前缀
			if !strings.HasPrefix(authHeader, constants.HeaderBearerPrefix) {
				responses.Error(c, pkgErrors.New(pkgErrors.KindUnauthorized, "Authorization格式错误"))
				return
			}
			token := strings.TrimPrefix(authHeader, constants.HeaderBearerPrefix)
			principal, err = authService.AuthenticateBearer(c.Request.Context(), token)
		}
		if err != nil {
			responses.Error(c, err)
			return
		}

		c.Set(constants.ContextKeyPrincipal, principal)
		c.Next()
	}
}

// RequirePermission 权限校验, 需在 AuthMiddleware 之后使用
func RequirePermission(perm auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).Allow(perm) {
			responses.Error(c, pkgErrors.Newf(pkgErrors.KindForbidden, "缺少权限: %s", perm))
			return
		}
		c.Next()
	}
}

// GetPrincipal 当前调用方, 未认证时为 nil
func GetPrincipal(c *gin.Context) *auth.Principal {
	v, ok := c.Get(constants.ContextKeyPrincipal)
	if !ok {
		return nil
	}
	principal, _ := v.(*auth.Principal)
	return principal
}
