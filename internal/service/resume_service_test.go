package service

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildstate/internal/dto"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

func TestResumableStateCRUD(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	projectID := env.seed.Project.ID

	req := &dto.ResumableStateCreateRequest{
		StateCode:         lo.ToPtr(10),
		ResumeStrategy:    constants.ResumeStrategyFromArtifact,
		RequiredArtifacts: []string{"vm-snapshot"},
		RequiredVariables: []string{"vm_id"},
	}
	rs, err := env.resume.CreateResumableState(ctx, projectID, req)
	require.NoError(t, err)
	assert.True(t, rs.IsResumable)

	_, err = env.resume.CreateResumableState(ctx, projectID, req)
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = env.resume.CreateResumableState(ctx, 404, req)
	assertKind(t, err, pkgErrors.KindNotFound)

	updated, err := env.resume.UpdateResumableState(ctx, projectID, 10, &dto.ResumableStateUpdateRequest{
		IsResumable:    lo.ToPtr(false),
		ResumeStrategy: lo.ToPtr(constants.ResumeStrategyRerunState),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsResumable)
	assert.Equal(t, constants.ResumeStrategyRerunState, updated.ResumeStrategy)

	got, err := env.resume.GetResumableState(ctx, projectID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"vm-snapshot"}, []string(got.RequiredArtifacts))

	list, err := env.resume.ListResumableStates(ctx, projectID, &dto.ResumableStateListRequest{IsResumable: lo.ToPtr(true)})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestResumeRequestValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	tests := []struct {
		name string
		req  *dto.ResumeRequestCreateRequest
		kind pkgErrors.Kind
	}{
		{"缺少起始状态", &dto.ResumeRequestCreateRequest{}, pkgErrors.KindInvalidArgument},
		{"起始状态为负", &dto.ResumeRequestCreateRequest{ResumeFromState: lo.ToPtr(-1)}, pkgErrors.KindInvalidArgument},
		{"目标不大于起始", &dto.ResumeRequestCreateRequest{ResumeFromState: lo.ToPtr(20), ResumeToState: lo.ToPtr(20)}, pkgErrors.KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resume.CreateRequest(ctx, build.ID, tt.req, "ops")
			assertKind(t, err, tt.kind)
		})
	}

	_, err := env.resume.CreateRequest(ctx, 404, &dto.ResumeRequestCreateRequest{ResumeFromState: lo.ToPtr(0)}, "ops")
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestResumeRequestReopensBuild(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.builds.Transition(ctx, build.ID, &dto.TransitionRequest{StateName: "packer-done"}, "ci")
	require.NoError(t, err)
	_, err = env.builds.RecordFailure(ctx, build.ID, &dto.FailureRequest{ErrorMessage: "publish timeout"}, "ci")
	require.NoError(t, err)

	request, err := env.resume.CreateRequest(ctx, build.ID, &dto.ResumeRequestCreateRequest{
		ResumeFromState: lo.ToPtr(10),
		ResumeToState:   lo.ToPtr(100),
		ResumeReason:    lo.ToPtr("retry packer"),
		RequestSource:   lo.ToPtr("manual"),
	}, "ops")
	require.NoError(t, err)
	assert.Equal(t, constants.OrchestrationPending, request.OrchestrationStatus)
	assert.Equal(t, "ops", request.RequestedBy)

	// 登记请求本身不改变构建
	got, err := env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusFailed, got.Status)

	_, err = env.resume.UpdateRequest(ctx, request.ID, &dto.ResumeRequestUpdateRequest{
		OrchestrationStatus: lo.ToPtr(constants.OrchestrationTriggered),
		OrchestrationJobID:  lo.ToPtr("jenkins-42"),
	}, "orchestrator")
	require.NoError(t, err)
	got, err = env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusFailed, got.Status)

	updated, err := env.resume.UpdateRequest(ctx, request.ID, &dto.ResumeRequestUpdateRequest{
		OrchestrationStatus: lo.ToPtr(constants.OrchestrationRunning),
	}, "orchestrator")
	require.NoError(t, err)
	assert.Equal(t, "jenkins-42", *updated.OrchestrationJobID)

	got, err = env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusRunning, got.Status)
	assert.Nil(t, got.EndTime)
	assert.Equal(t, "packer-running", got.CurrentState.Name)

	history, err := env.builds.History(ctx, build.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "Build resumed from state 10", *last.Message)
	assert.Equal(t, "orchestrator", last.CreatedBy)

	requests, err := env.resume.ListRequests(ctx, build.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	page, err := env.resume.ListAllRequests(ctx, &dto.ResumeRequestListRequest{Status: constants.OrchestrationRunning})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestResumeRequestReopenIsAtomic(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.builds.RecordFailure(ctx, build.ID, &dto.FailureRequest{ErrorMessage: "disk full"}, "ci")
	require.NoError(t, err)
	request, err := env.resume.CreateRequest(ctx, build.ID, &dto.ResumeRequestCreateRequest{ResumeFromState: lo.ToPtr(10)}, "ops")
	require.NoError(t, err)

	// 历史写入失败, 请求与构建都不应变化
	const hook = "test:fail_build_states"
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == "build_states" {
			_ = tx.AddError(errors.New("history unavailable"))
		}
	}))
	running := &dto.ResumeRequestUpdateRequest{OrchestrationStatus: lo.ToPtr(constants.OrchestrationRunning)}
	_, err = env.resume.UpdateRequest(ctx, request.ID, running, "orchestrator")
	require.Error(t, err)

	got, err := env.resume.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrchestrationPending, got.OrchestrationStatus)
	b, err := env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusFailed, b.Status)

	// 重试后构建被重新打开
	require.NoError(t, env.db.Callback().Create().Remove(hook))
	_, err = env.resume.UpdateRequest(ctx, request.ID, running, "orchestrator")
	require.NoError(t, err)
	b, err = env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BuildStatusRunning, b.Status)
	assert.Equal(t, "packer-running", b.CurrentState.Name)
}

func TestResumeContextThroughService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	_, err := env.builds.Transition(ctx, build.ID, &dto.TransitionRequest{StateName: "packer-running"}, "ci")
	require.NoError(t, err)
	_, err = env.artifacts.Register(ctx, build.ID, snapshotRequest("vm-snapshot", 10))
	require.NoError(t, err)
	_, err = env.variables.Set(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "vm_password", VariableValue: "p", IsSensitive: true})
	require.NoError(t, err)
	_, err = env.builds.RecordFailure(ctx, build.ID, &dto.FailureRequest{ErrorMessage: "timeout"}, "ci")
	require.NoError(t, err)

	rc, err := env.resume.GetContext(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, "packer-running", rc.ResumeFromState.Name)
	require.Len(t, rc.Artifacts, 1)
	assert.Equal(t, constants.MaskedValue, rc.Variables["vm_password"])
}
