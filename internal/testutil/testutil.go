// Package testutil 单测公共夹具: 内存 sqlite 与项目/状态码种子数据
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildstate/internal/model"
	"buildstate/internal/pkg/config"
	"buildstate/internal/pkg/database"
)

// NewDB 每个测试独立的内存库, 已完成迁移
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:      "sqlite",
		Database:    ":memory:",
		LogLevel:    "silent",
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// State 种子状态定义
type State struct {
	Name    string
	Code    int
	Initial bool
	Final   bool
	Error   bool
}

// DefaultStates 典型的镜像构建流程
var DefaultStates = []State{
	{Name: "init", Code: 0, Initial: true},
	{Name: "packer-running", Code: 10},
	{Name: "packer-done", Code: 20},
	{Name: "publish", Code: 30},
	{Name: "done", Code: 100, Final: true},
	{Name: "broken", Code: 90, Error: true},
}

// Seed 项目及其状态码
type Seed struct {
	Project *model.Project
	States  map[string]*model.StateCode
}

// SeedProject 创建项目和状态码, states 为空时使用 DefaultStates
func SeedProject(t testing.TB, db *gorm.DB, name string, states ...State) *Seed {
	t.Helper()
	if len(states) == 0 {
		states = DefaultStates
	}
	ctx := context.Background()

	project := &model.Project{Name: name}
	require.NoError(t, db.WithContext(ctx).Create(project).Error)

	seed := &Seed{Project: project, States: map[string]*model.StateCode{}}
	for _, s := range states {
		sc := &model.StateCode{
			ProjectID: project.ID,
			Name:      s.Name,
			Code:      s.Code,
			IsInitial: s.Initial,
			IsFinal:   s.Final,
			IsError:   s.Error,
			StartTime: time.Now().UTC(),
		}
		require.NoError(t, db.WithContext(ctx).Create(sc).Error)
		seed.States[s.Name] = sc
	}
	return seed
}
