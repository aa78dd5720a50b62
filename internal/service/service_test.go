package service

import (
	"context"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/core/buildstate"
	"buildstate/internal/dto"
	"buildstate/internal/pkg/config"
	"buildstate/internal/repository"
	"buildstate/internal/testutil"
	pkgErrors "buildstate/pkg/errors"
)

type testEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	sm    *buildstate.StateMachine
	seed  *testutil.Seed

	builds    *BuildService
	artifacts *ArtifactService
	variables *VariableService
	resume    *ResumeService
	jobs      *JobService
	states    *StateCodeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zap.NewNop()
	sm := buildstate.NewStateMachine(db, nil, logger)
	repos := repository.New(db)

	return &testEnv{
		db:        db,
		repos:     repos,
		sm:        sm,
		seed:      testutil.SeedProject(t, db, "windows-images"),
		builds:    NewBuildService(db, sm, logger),
		artifacts: NewArtifactService(db, logger),
		variables: NewVariableService(repos, nil, logger),
		resume:    NewResumeService(db, sm, nil, logger),
		jobs:      NewJobService(repos, logger),
		states:    NewStateCodeService(db, config.PolicyConfig{StateStep: 5, MaxState: 100}, logger),
	}
}

func (e *testEnv) newBuild(t *testing.T) *dto.BuildResponse {
	t.Helper()
	build, err := e.builds.Create(context.Background(), &dto.BuildCreateRequest{ProjectID: e.seed.Project.ID}, "ci")
	require.NoError(t, err)
	return build
}

func assertKind(t *testing.T, err error, kind pkgErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, pkgErrors.KindOf(err), "err: %v", err)
}

// lockedTables 记录带行锁(FOR UPDATE)的查询涉及的表
func lockedTables(t *testing.T, db *gorm.DB) func() []string {
	t.Helper()
	var mu sync.Mutex
	var tables []string
	const name = "test:record_locks"
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			mu.Lock()
			tables = append(tables, tx.Statement.Table)
			mu.Unlock()
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove(name) })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

func TestBuildServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	build := env.newBuild(t)
	assert.Equal(t, "init", build.CurrentState.Name)
	assert.Equal(t, "ci", build.CreatedBy)

	state, err := env.builds.Transition(ctx, build.ID, &dto.TransitionRequest{StateName: "packer-running", Message: "go"}, "ci")
	require.NoError(t, err)
	assert.Equal(t, "packer-running", state.CurrentState.Name)
	require.Len(t, state.History, 2)
	// 最新在前
	assert.Equal(t, "packer-running", state.History[0].State.Name)

	state, err = env.builds.RecordFailure(ctx, build.ID, &dto.FailureRequest{
		ErrorMessage:    "timeout",
		ExpectedVersion: lo.ToPtr(state.Version),
	}, "ci")
	require.NoError(t, err)
	assert.Equal(t, "failed", state.Status)
	assert.Equal(t, "packer-running", state.CurrentState.Name)

	history, err := env.builds.History(ctx, build.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "timeout", *history[2].ErrorMessage)

	_, err = env.builds.Transition(ctx, build.ID, &dto.TransitionRequest{StateName: "done"}, "ci")
	assertKind(t, err, pkgErrors.KindInvalidState)
}

func TestBuildServiceCreateChecksReferences(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.builds.Create(context.Background(), &dto.BuildCreateRequest{ProjectID: 999}, "ci")
	assertKind(t, err, pkgErrors.KindNotFound)

	_, err = env.builds.Create(context.Background(), &dto.BuildCreateRequest{
		ProjectID:  env.seed.Project.ID,
		PlatformID: lo.ToPtr(int64(7)),
	}, "ci")
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestBuildServiceList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.newBuild(t)
	env.newBuild(t)
	_, err := env.builds.Transition(ctx, first.ID, &dto.TransitionRequest{StateName: "done"}, "ci")
	require.NoError(t, err)

	page, err := env.builds.List(ctx, &dto.BuildListRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	items := page.Items.([]*dto.BuildResponse)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)
}

func TestBuildServiceOutOfBandFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)

	failure, err := env.builds.CreateFailure(ctx, build.ID, &dto.BuildFailureCreateRequest{ErrorMessage: "retry 1 failed"})
	require.NoError(t, err)
	assert.Equal(t, env.seed.States["init"].ID, failure.StateCodeID)

	got, err := env.builds.Get(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)

	resolved, err := env.builds.ResolveFailure(ctx, build.ID, failure.ID, "ops")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)

	open, err := env.builds.ListFailures(ctx, build.ID, &dto.BuildFailureListRequest{UnresolvedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestStateCodeService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	projectID := env.seed.Project.ID

	_, err := env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "packer-running", Code: 15})
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "second-init", Code: 1, IsInitial: true})
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "bad", Code: 50, IsFinal: true, IsError: true})
	assertKind(t, err, pkgErrors.KindInvalidArgument)

	// 停用后同名状态可以重新创建
	require.NoError(t, env.states.Deactivate(ctx, projectID, env.seed.States["publish"].ID))
	sc, err := env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "publish", Code: 35})
	require.NoError(t, err)
	assert.True(t, sc.IsActive())

	active, err := env.states.List(ctx, projectID, &dto.StateCodeListRequest{})
	require.NoError(t, err)
	all, err := env.states.List(ctx, projectID, &dto.StateCodeListRequest{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)
}

func TestStateCodeWritesLockProject(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	projectID := env.seed.Project.ID
	locks := lockedTables(t, env.db)

	sc, err := env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "smoke-test", Code: 40})
	require.NoError(t, err)
	assert.Equal(t, []string{"projects"}, locks())

	_, err = env.states.Update(ctx, projectID, sc.ID, &dto.StateCodeUpdateRequest{Name: lo.ToPtr("smoke")})
	require.NoError(t, err)
	assert.Equal(t, []string{"projects", "projects"}, locks())

	// 并发创建同名状态只有一个成功
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.states.Create(ctx, projectID, &dto.StateCodeCreateRequest{Name: "sign", Code: 45})
		}(i)
	}
	wg.Wait()
	succeeded := lo.CountBy(errs, func(err error) bool { return err == nil })
	assert.Equal(t, 1, succeeded)
	for _, err := range errs {
		if err != nil {
			assertKind(t, err, pkgErrors.KindConflict)
		}
	}
}

func TestStateCodeStepPolicy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	strict := NewStateCodeService(env.db, config.PolicyConfig{EnforceStateStep: true, StateStep: 5, MaxState: 100}, zap.NewNop())

	_, err := strict.Create(ctx, env.seed.Project.ID, &dto.StateCodeCreateRequest{Name: "odd", Code: 12})
	assertKind(t, err, pkgErrors.KindInvalidArgument)
	_, err = strict.Create(ctx, env.seed.Project.ID, &dto.StateCodeCreateRequest{Name: "too-big", Code: 105})
	assertKind(t, err, pkgErrors.KindInvalidArgument)
	_, err = strict.Create(ctx, env.seed.Project.ID, &dto.StateCodeCreateRequest{Name: "ok", Code: 45})
	require.NoError(t, err)
}

func TestJobServiceParentChain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	build := env.newBuild(t)
	other := env.newBuild(t)

	parent, err := env.jobs.Create(ctx, build.ID, &dto.BuildJobCreateRequest{Platform: "concourse", JobName: lo.ToPtr("bake")})
	require.NoError(t, err)
	assert.Equal(t, "pending", parent.Status)

	child, err := env.jobs.Create(ctx, build.ID, &dto.BuildJobCreateRequest{
		Platform:         "concourse",
		IsResumeJob:      true,
		ResumedFromState: lo.ToPtr(10),
		ParentJobID:      lo.ToPtr(parent.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, *child.ParentJobID)

	_, err = env.jobs.Create(ctx, other.ID, &dto.BuildJobCreateRequest{Platform: "jenkins", ParentJobID: lo.ToPtr(parent.ID)})
	assertKind(t, err, pkgErrors.KindInvalidArgument)
	_, err = env.jobs.Create(ctx, build.ID, &dto.BuildJobCreateRequest{Platform: "jenkins", ParentJobID: lo.ToPtr(int64(999))})
	assertKind(t, err, pkgErrors.KindInvalidArgument)

	done, err := env.jobs.Update(ctx, build.ID, child.ID, &dto.BuildJobUpdateRequest{Status: lo.ToPtr("succeeded")})
	require.NoError(t, err)
	assert.Equal(t, "succeeded", done.Status)

	_, err = env.jobs.Update(ctx, other.ID, child.ID, &dto.BuildJobUpdateRequest{})
	assertKind(t, err, pkgErrors.KindNotFound)

	jobs, err := env.jobs.List(ctx, build.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
