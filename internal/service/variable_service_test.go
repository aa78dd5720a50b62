package service

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/pkg/auth"
	"buildstate/internal/pkg/crypto"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

var (
	reader = &auth.Principal{Kind: auth.PrincipalAPIKey, Name: "reader", Scopes: []string{constants.ScopeRead}}
	admin  = &auth.Principal{Kind: auth.PrincipalAPIKey, Name: "root", Scopes: []string{constants.ScopeAdmin}}
)

func TestVariableSetUpserts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "vm_id", VariableValue: "vm-1"})
	require.NoError(t, err)
	saved, err := env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{
		VariableKey:         "vm_id",
		VariableValue:       "vm-2",
		IsRequiredForResume: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "vm-2", saved.VariableValue)
	assert.Equal(t, constants.VariableTypeString, saved.VariableType)

	var count int64
	require.NoError(t, env.db.Model(&model.BuildVariable{}).Where("build_id = ?", build.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = env.variables.Set(ctx, 404, &dto.VariableSetRequest{VariableKey: "k"})
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestVariableMasking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "region", VariableValue: "eu-west-1", IsRequiredForResume: true})
	require.NoError(t, err)
	masked, err := env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "password", VariableValue: "hunter2", IsSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, constants.MaskedValue, masked.VariableValue)

	list, err := env.variables.List(ctx, build.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	values := lo.SliceToMap(list, func(v *dto.VariableResponse) (string, string) { return v.VariableKey, v.VariableValue })
	assert.Equal(t, map[string]string{"region": "eu-west-1", "password": constants.MaskedValue}, values)

	dict, err := env.variables.Dict(ctx, build.ID, &dto.VariableDictRequest{})
	require.NoError(t, err)
	assert.Equal(t, values, dict)

	required, err := env.variables.Dict(ctx, build.ID, &dto.VariableDictRequest{RequiredForResume: lo.ToPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"region": "eu-west-1"}, required)

	_, err = env.variables.Get(ctx, build.ID, "password", reader)
	assertKind(t, err, pkgErrors.KindForbidden)

	raw, err := env.variables.Get(ctx, build.ID, "password", admin)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", raw.VariableValue)

	plain, err := env.variables.Get(ctx, build.ID, "region", reader)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", plain.VariableValue)
}

func TestVariableEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	cipher, err := crypto.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	svc := NewVariableService(env.repos, cipher, zap.NewNop())

	_, err = svc.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "token", VariableValue: "s3cr3t", IsSensitive: true})
	require.NoError(t, err)

	var stored model.BuildVariable
	require.NoError(t, env.db.Where("build_id = ? AND variable_key = ?", build.ID, "token").First(&stored).Error)
	assert.True(t, stored.Encrypted)
	assert.NotEqual(t, "s3cr3t", stored.VariableValue)

	raw, err := svc.Get(ctx, build.ID, "token", admin)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", raw.VariableValue)

	// 取消敏感标记后以明文存储
	_, err = svc.Update(ctx, build.ID, "token", &dto.VariableUpdateRequest{IsSensitive: lo.ToPtr(false)})
	require.NoError(t, err)
	require.NoError(t, env.db.Where("build_id = ? AND variable_key = ?", build.ID, "token").First(&stored).Error)
	assert.False(t, stored.Encrypted)
	assert.Equal(t, "s3cr3t", stored.VariableValue)

	// 没有密钥的服务无法读取密文
	_, err = svc.Update(ctx, build.ID, "token", &dto.VariableUpdateRequest{IsSensitive: lo.ToPtr(true)})
	require.NoError(t, err)
	_, err = env.variables.Get(ctx, build.ID, "token", admin)
	assertKind(t, err, pkgErrors.KindInternal)
}

func TestVariableUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "disk_gb", VariableValue: "40", VariableType: "number"})
	require.NoError(t, err)

	updated, err := env.variables.Update(ctx, build.ID, "disk_gb", &dto.VariableUpdateRequest{
		VariableValue: lo.ToPtr("80"),
		SetAtState:    lo.ToPtr(20),
	})
	require.NoError(t, err)
	assert.Equal(t, "80", updated.VariableValue)
	assert.Equal(t, "number", updated.VariableType)
	assert.Equal(t, 20, *updated.SetAtState)

	list, err := env.variables.List(ctx, build.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.variables.Delete(ctx, build.ID, "disk_gb"))
	_, err = env.variables.Get(ctx, build.ID, "disk_gb", admin)
	assertKind(t, err, pkgErrors.KindNotFound)

	_, err = env.variables.Update(ctx, build.ID, "missing", &dto.VariableUpdateRequest{})
	assertKind(t, err, pkgErrors.KindNotFound)
}
