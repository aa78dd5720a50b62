package resume

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/core/buildstate"
	"buildstate/internal/model"
	"buildstate/internal/testutil"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

func newFixture(t *testing.T) (*gorm.DB, *buildstate.StateMachine, *testutil.Seed, *model.Build) {
	t.Helper()
	db := testutil.NewDB(t)
	seed := testutil.SeedProject(t, db, "ubuntu-images")
	sm := buildstate.NewStateMachine(db, nil, zap.NewNop())
	build, err := sm.CreateBuild(context.Background(), &model.Build{ProjectID: seed.Project.ID})
	require.NoError(t, err)
	return db, sm, seed, build
}

func addArtifact(t *testing.T, db *gorm.DB, buildID int64, name string, state int, resumable bool) {
	t.Helper()
	require.NoError(t, db.Create(&model.BuildArtifact{
		BuildID:      buildID,
		StateCode:    state,
		ArtifactName: name,
		ArtifactType: "snapshot",
		IsResumable:  resumable,
	}).Error)
}

func TestBuildContextScenario(t *testing.T) {
	ctx := context.Background()
	db, sm, seed, build := newFixture(t)

	_, err := sm.Transition(ctx, build.ID, "packer-running")
	require.NoError(t, err)
	addArtifact(t, db, build.ID, "vm-snapshot", 10, true)
	_, err = sm.RecordFailure(ctx, build.ID, buildstate.FailureDetail{ErrorMessage: "timeout"})
	require.NoError(t, err)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)

	running := seed.States["packer-running"]
	assert.Equal(t, constants.BuildStatusFailed, rc.Status)
	require.NotNil(t, rc.FailedState)
	assert.Equal(t, running.ID, rc.FailedState.ID)
	require.NotNil(t, rc.ResumeFromState)
	assert.Equal(t, running.ID, rc.ResumeFromState.ID)
	assert.Equal(t, 10, rc.ResumeFromState.Code)
	assert.Nil(t, rc.LastSuccessfulState)
	require.Len(t, rc.Artifacts, 1)
	assert.Equal(t, "vm-snapshot", rc.Artifacts[0].ArtifactName)
	assert.Nil(t, rc.ResumableStateConfig)
}

func TestBuildContextWithoutFailure(t *testing.T) {
	ctx := context.Background()
	db, sm, seed, build := newFixture(t)
	_, err := sm.Transition(ctx, build.ID, "packer-done")
	require.NoError(t, err)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Nil(t, rc.FailedState)
	assert.Equal(t, seed.States["packer-done"].ID, rc.ResumeFromState.ID)
	assert.Empty(t, rc.Artifacts)
	assert.Empty(t, rc.Variables)
}

func TestBuildContextCompletedAfterFailure(t *testing.T) {
	ctx := context.Background()
	db, _, seed, build := newFixture(t)

	base := time.Now().UTC()
	rows := []*model.BuildState{
		{BuildID: build.ID, StateCodeID: seed.States["packer-running"].ID, Status: constants.StateStatusFailed, StartTime: base, CreatedAt: base.Add(time.Second)},
		{BuildID: build.ID, StateCodeID: seed.States["packer-done"].ID, Status: constants.StateStatusCompleted, StartTime: base, CreatedAt: base.Add(2 * time.Second)},
	}
	require.NoError(t, db.Create(&rows).Error)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, seed.States["packer-running"].ID, rc.FailedState.ID)
	assert.Equal(t, seed.States["packer-done"].ID, rc.LastSuccessfulState.ID)
	// 之后的成功记录不影响恢复起点
	assert.Equal(t, seed.States["packer-running"].ID, rc.ResumeFromState.ID)
}

func TestBuildContextAfterReopenAndCompletion(t *testing.T) {
	ctx := context.Background()
	db, sm, seed, build := newFixture(t)

	_, err := sm.Transition(ctx, build.ID, "packer-running")
	require.NoError(t, err)
	_, err = sm.RecordFailure(ctx, build.ID, buildstate.FailureDetail{ErrorMessage: "timeout"})
	require.NoError(t, err)
	_, err = sm.Reopen(ctx, build.ID, 10)
	require.NoError(t, err)
	_, err = sm.Transition(ctx, build.ID, "done")
	require.NoError(t, err)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, seed.States["done"].ID, rc.CurrentState.ID)
	assert.Equal(t, seed.States["done"].ID, rc.LastSuccessfulState.ID)
	assert.Equal(t, seed.States["packer-running"].ID, rc.FailedState.ID)
	assert.Equal(t, rc.FailedState, rc.ResumeFromState)
}

func TestBuildContextFailedAfterCompleted(t *testing.T) {
	ctx := context.Background()
	db, _, seed, build := newFixture(t)

	base := time.Now().UTC()
	rows := []*model.BuildState{
		{BuildID: build.ID, StateCodeID: seed.States["packer-running"].ID, Status: constants.StateStatusCompleted, StartTime: base, CreatedAt: base.Add(time.Second)},
		{BuildID: build.ID, StateCodeID: seed.States["packer-done"].ID, Status: constants.StateStatusError, StartTime: base, CreatedAt: base.Add(2 * time.Second)},
	}
	require.NoError(t, db.Create(&rows).Error)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, seed.States["packer-running"].ID, rc.LastSuccessfulState.ID)
	assert.Equal(t, seed.States["packer-done"].ID, rc.FailedState.ID)
	assert.Equal(t, rc.FailedState, rc.ResumeFromState)
}

func TestBuildContextArtifactOrder(t *testing.T) {
	ctx := context.Background()
	db, _, _, build := newFixture(t)

	addArtifact(t, db, build.ID, "state10", 10, true)
	addArtifact(t, db, build.ID, "state5-first", 5, true)
	addArtifact(t, db, build.ID, "state5-second", 5, true)
	addArtifact(t, db, build.ID, "not-resumable", 1, false)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(rc.Artifacts))
	for _, a := range rc.Artifacts {
		names = append(names, a.ArtifactName)
	}
	assert.Equal(t, []string{"state5-first", "state5-second", "state10"}, names)
}

func TestBuildContextSkipsDeletedArtifacts(t *testing.T) {
	ctx := context.Background()
	db, _, _, build := newFixture(t)
	addArtifact(t, db, build.ID, "old", 10, true)
	require.NoError(t, db.Where("artifact_name = ?", "old").Delete(&model.BuildArtifact{}).Error)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Empty(t, rc.Artifacts)
}

func TestBuildContextVariablesAndConfig(t *testing.T) {
	ctx := context.Background()
	db, _, seed, build := newFixture(t)

	require.NoError(t, db.Create([]*model.BuildVariable{
		{BuildID: build.ID, VariableKey: "vm_id", VariableValue: "vm-42", VariableType: "string"},
		{BuildID: build.ID, VariableKey: "admin_password", VariableValue: "hunter2", VariableType: "string", IsSensitive: true},
	}).Error)
	require.NoError(t, db.Create(&model.ResumableState{
		ProjectID:      seed.Project.ID,
		StateCode:      0,
		IsResumable:    true,
		ResumeStrategy: constants.ResumeStrategyRerunState,
	}).Error)

	rc, err := NewBuilder(db).Build(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"vm_id": "vm-42", "admin_password": constants.MaskedValue}, rc.Variables)
	require.NotNil(t, rc.ResumableStateConfig)
	assert.Equal(t, constants.ResumeStrategyRerunState, rc.ResumableStateConfig.ResumeStrategy)
}

func TestBuildContextNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewBuilder(db).Build(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, pkgErrors.IsKind(err, pkgErrors.KindNotFound))
}

func TestResumeFrom(t *testing.T) {
	current := &StateRef{ID: 1, Name: "init", Code: 0}
	failed := &model.BuildState{ID: 2, StateCode: &model.StateCode{ID: 5, Name: "packer-running", Code: 10}}

	got := resumeFrom(current, nil)
	assert.Equal(t, current, got)

	got = resumeFrom(current, failed)
	require.NotNil(t, got)
	assert.Equal(t, int64(5), got.ID)
	assert.Equal(t, 10, got.Code)
}

func TestMaskedDictProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("敏感变量永远不暴露原值", prop.ForAll(
		func(keys []string, values []string, sensitive []bool) bool {
			if len(values) == 0 || len(sensitive) == 0 {
				return true
			}
			vars := make([]*model.BuildVariable, 0, len(keys))
			for i, k := range keys {
				vars = append(vars, &model.BuildVariable{
					VariableKey:   k,
					VariableValue: values[i%len(values)],
					IsSensitive:   sensitive[i%len(sensitive)],
				})
			}
			dict := MaskedDict(vars)
			for _, v := range vars {
				got, ok := dict[v.VariableKey]
				if !ok {
					return false
				}
				// 同名变量取最后一个
				last := v
				for _, other := range vars {
					if other.VariableKey == v.VariableKey {
						last = other
					}
				}
				if last.IsSensitive && got != constants.MaskedValue {
					return false
				}
				if !last.IsSensitive && got != last.VariableValue {
					return false
				}
			}
			return len(dict) <= len(vars)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOfN(3, gen.AlphaString()),
		gen.SliceOfN(3, gen.Bool()),
	))

	properties.TestingRun(t)
}
