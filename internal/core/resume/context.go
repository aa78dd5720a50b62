package resume

import (
	"context"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"buildstate/internal/model"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// StateRef 状态引用, 同时给出名称和数值状态
type StateRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Context 编排系统恢复构建所需的全部信息
type Context struct {
	BuildID              int64                  `json:"build_id"`
	Status               string                 `json:"status"`
	Version              int64                  `json:"version"`
	CurrentState         *StateRef              `json:"current_state"`
	LastSuccessfulState  *StateRef              `json:"last_successful_state"`
	FailedState          *StateRef              `json:"failed_state"`
	ResumeFromState      *StateRef              `json:"resume_from_state"`
	Artifacts            []*model.BuildArtifact `json:"artifacts"`
	Variables            map[string]string      `json:"variables"`
	ResumableStateConfig *model.ResumableState  `json:"resumable_state_config"`
}

// Builder 只读聚合, 不做任何写入
type Builder struct {
	repos *repository.Repositories
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{repos: repository.New(db)}
}

// Build 组装构建的恢复上下文
func (b *Builder) Build(ctx context.Context, buildID int64) (*Context, error) {
	build, err := b.repos.Builds.FindByID(ctx, buildID, repository.WithPreload("CurrentStateCode"))
	if err != nil {
		return nil, err
	}

	result := &Context{
		BuildID:      build.ID,
		Status:       build.Status,
		Version:      build.Version,
		CurrentState: refOf(build.CurrentStateCode),
	}

	lastCompleted, err := b.latest(ctx, buildID, constants.StateStatusCompleted)
	if err != nil {
		return nil, err
	}
	lastFailed, err := b.latest(ctx, buildID, constants.StateStatusFailed, constants.StateStatusError)
	if err != nil {
		return nil, err
	}
	if lastCompleted != nil {
		result.LastSuccessfulState = refOf(lastCompleted.StateCode)
	}
	if lastFailed != nil {
		result.FailedState = refOf(lastFailed.StateCode)
	}
	result.ResumeFromState = resumeFrom(result.CurrentState, lastFailed)

	result.Artifacts, err = b.repos.Artifacts.ListByBuild(ctx, buildID, repository.ArtifactFilter{IsResumable: lo.ToPtr(true)})
	if err != nil {
		return nil, err
	}
	if result.Artifacts == nil {
		result.Artifacts = []*model.BuildArtifact{}
	}

	variables, err := b.repos.Variables.ListByBuild(ctx, buildID)
	if err != nil {
		return nil, err
	}
	result.Variables = MaskedDict(variables)

	if result.CurrentState != nil {
		cfg, err := b.repos.ResumableStates.FindByProjectAndCode(ctx, build.ProjectID, result.CurrentState.Code)
		switch {
		case err == nil:
			result.ResumableStateConfig = cfg
		case !pkgErrors.IsKind(err, pkgErrors.KindNotFound):
			return nil, err
		}
	}

	return result, nil
}

func (b *Builder) latest(ctx context.Context, buildID int64, statuses ...string) (*model.BuildState, error) {
	state, err := b.repos.BuildStates.LatestWithStatus(ctx, buildID, statuses...)
	if err != nil {
		if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return state, nil
}

// resumeFrom 存在失败记录时从失败状态恢复, 与之后是否有成功记录无关; 否则从当前指针恢复
func resumeFrom(current *StateRef, lastFailed *model.BuildState) *StateRef {
	if lastFailed == nil {
		return current
	}
	return refOf(lastFailed.StateCode)
}

// MaskedDict 变量投影为 key->value, 敏感变量替换为固定掩码
func MaskedDict(variables []*model.BuildVariable) map[string]string {
	return lo.Associate(variables, func(v *model.BuildVariable) (string, string) {
		return v.VariableKey, MaskedValue(v)
	})
}

// MaskedValue 单个变量的展示值
func MaskedValue(v *model.BuildVariable) string {
	if v.IsSensitive {
		return constants.MaskedValue
	}
	return v.VariableValue
}

func refOf(sc *model.StateCode) *StateRef {
	if sc == nil {
		return nil
	}
	return &StateRef{ID: sc.ID, Name: sc.Name, Code: sc.Code}
}
