package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandScopes(t *testing.T) {
	assert.ElementsMatch(t, []string{"admin", "write", "read"}, ExpandScopes([]string{"admin"}))
	assert.ElementsMatch(t, []string{"write", "read"}, ExpandScopes([]string{"write", "read"}))
	assert.Empty(t, ExpandScopes([]string{"root"}))
}

func TestAllow(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		need   Permission
		want   bool
	}{
		{"只读可查看", []string{"read"}, "build:view", true},
		{"只读不能流转", []string{"read"}, PermBuildUpdate, false},
		{"写可以流转", []string{"write"}, PermBuildUpdate, true},
		{"写可以登记产物", []string{"write"}, PermArtifactCreate, true},
		{"写不能删除产物", []string{"write"}, PermArtifactDelete, false},
		{"写不能读取敏感变量", []string{"write"}, PermVariableRevealRaw, false},
		{"写不能删除目录数据", []string{"write"}, PermCatalogDelete, false},
		{"管理员全部允许", []string{"admin"}, PermVariableRevealRaw, true},
		{"无范围", nil, "build:view", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.scopes, tt.need))
		})
	}
}

func TestPrincipal(t *testing.T) {
	var nobody *Principal
	assert.False(t, nobody.Allow(PermView))
	assert.False(t, nobody.IsAdmin())

	user := &Principal{Kind: PrincipalUser, UserID: 7, Scopes: []string{"write"}}
	assert.True(t, user.IsUser(7))
	assert.False(t, user.IsUser(8))
	assert.True(t, user.HasScope("read"))
	assert.False(t, user.IsAdmin())

	key := &Principal{Kind: PrincipalAPIKey, Scopes: []string{"admin"}}
	assert.False(t, key.IsUser(0))
	assert.True(t, key.IsAdmin())
}
