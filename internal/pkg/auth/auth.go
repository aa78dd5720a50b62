package auth

import (
	"strings"

	"github.com/samber/lo"

	"buildstate/pkg/constants"
)

// Role 内置角色, 与权限范围一一对应
type Role string

const (
	RoleRead  Role = constants.ScopeRead
	RoleWrite Role = constants.ScopeWrite
	RoleAdmin Role = constants.ScopeAdmin
)

// Permission 内置权限
type Permission string

const (
	PermView Permission = "*:view"

	PermStateCodeCreate Permission = "state_code:create"
	PermStateCodeUpdate Permission = "state_code:update"
	PermStateCodeDelete Permission = "state_code:delete"

	PermBuildCreate Permission = "build:create"
	PermBuildUpdate Permission = "build:update"

	PermArtifactCreate Permission = "artifact:create"
	PermArtifactDelete Permission = "artifact:delete"

	PermVariableWrite     Permission = "variable:update"
	PermVariableRevealRaw Permission = "variable:reveal"

	PermResumableCreate Permission = "resumable:create"
	PermResumableUpdate Permission = "resumable:update"
	PermResumeRequest   Permission = "resume:create"
	PermResumeUpdate    Permission = "resume:update"

	PermJobCreate Permission = "job:create"
	PermJobUpdate Permission = "job:update"

	PermCatalogWrite  Permission = "catalog:update"
	PermCatalogDelete Permission = "catalog:delete"

	PermUserManage Permission = "user:manage"
)

// RolePermissions 每个角色拥有的权限集合
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		"*",
	},
	RoleWrite: {
		"*:view",
		"build:*",
		"artifact:create",
		"variable:update",
		"resumable:*",
		"resume:*",
		"job:*",
		"state_code:create",
		"state_code:update",
		"catalog:update",
	},
	RoleRead: {
		"*:view",
	},
}

// ExpandScopes 展开权限范围层级: admin 包含 write, write 包含 read
func ExpandScopes(scopes []string) []string {
	expanded := make([]string, 0, 3)
	for _, s := range scopes {
		switch s {
		case constants.ScopeAdmin:
			expanded = append(expanded, constants.ScopeAdmin, constants.ScopeWrite, constants.ScopeRead)
		case constants.ScopeWrite:
			expanded = append(expanded, constants.ScopeWrite, constants.ScopeRead)
		case constants.ScopeRead:
			expanded = append(expanded, constants.ScopeRead)
		}
	}
	return lo.Uniq(expanded)
}

// HasScope 判断是否拥有指定范围(考虑层级)
func HasScope(scopes []string, need string) bool {
	return lo.Contains(ExpandScopes(scopes), need)
}

// ValidScope 是否为合法的范围名
func ValidScope(scope string) bool {
	return scope == constants.ScopeRead || scope == constants.ScopeWrite || scope == constants.ScopeAdmin
}

// Allow 判断一组角色是否包含所需权限，支持通配符
func Allow(roles []string, need Permission) bool {
	permissions := collectPermissions(roles)

	return len(permissions) > 0 && allow(permissions, need)
}

func collectPermissions(roles []string) []Permission {
	return lo.FlatMap(ExpandScopes(roles), func(r string, _ int) []Permission {
		return RolePermissions[Role(r)]
	})
}

func allow(have []Permission, need Permission) bool {
	reqParts := strings.Split(string(need), ":")
	for _, p := range have {
		if p == need || p == "*" {
			return true
		}
		if matchParts(strings.Split(string(p), ":"), reqParts) {
			return true
		}
	}
	return false
}

// matchParts 按段匹配, 任意段上的 * 匹配该段, 末尾的 * 匹配剩余所有段
func matchParts(allowed, required []string) bool {
	for i, part := range allowed {
		if i >= len(required) {
			return false
		}
		if part == "*" {
			if i == len(allowed)-1 {
				return true
			}
			continue
		}
		if part != required[i] {
			return false
		}
	}
	return len(allowed) == len(required)
}

// 调用方类型
const (
	PrincipalUser   = "user"
	PrincipalAPIKey = "api_key"
)

// Principal 已认证的调用方
type Principal struct {
	Kind   string   `json:"kind"`
	UserID int64    `json:"user_id,omitempty"` // 全局API Key 为 0
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// Allow 调用方是否拥有权限
func (p *Principal) Allow(need Permission) bool {
	return p != nil && Allow(p.Scopes, need)
}

// HasScope 调用方是否拥有范围(考虑层级)
func (p *Principal) HasScope(scope string) bool {
	return p != nil && HasScope(p.Scopes, scope)
}

// IsAdmin 是否管理员
func (p *Principal) IsAdmin() bool {
	return p.HasScope(constants.ScopeAdmin)
}

// IsUser 是否为指定用户本人
func (p *Principal) IsUser(userID int64) bool {
	return p != nil && p.Kind == PrincipalUser && p.UserID == userID
}
