package repository

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"buildstate/internal/model"
	"buildstate/internal/testutil"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

type RepositorySuite struct {
	suite.Suite
	ctx   context.Context
	db    *gorm.DB
	repos *Repositories
	seed  *testutil.Seed
	build *model.Build
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.repos = New(s.db)
	s.seed = testutil.SeedProject(s.T(), s.db, "ubuntu-images")

	s.build = &model.Build{
		ProjectID:          s.seed.Project.ID,
		CurrentStateCodeID: s.seed.States["init"].ID,
		Status:             constants.BuildStatusRunning,
		StartTime:          time.Now().UTC(),
		Version:            1,
	}
	s.Require().NoError(s.repos.Builds.Create(s.ctx, s.build))
}

func (s *RepositorySuite) TestBuildVersionedUpdate() {
	rows, err := s.repos.Builds.UpdateVersioned(s.ctx, s.build.ID, 1, map[string]interface{}{
		"current_state_code_id": s.seed.States["packer-running"].ID,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), rows)

	// 旧版本号不再命中
	rows, err = s.repos.Builds.UpdateVersioned(s.ctx, s.build.ID, 1, map[string]interface{}{
		"current_state_code_id": s.seed.States["packer-done"].ID,
	})
	s.Require().NoError(err)
	s.Zero(rows)

	got, err := s.repos.Builds.FindByID(s.ctx, s.build.ID, WithPreload("CurrentStateCode"))
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.Equal("packer-running", got.CurrentStateCode.Name)
}

func (s *RepositorySuite) TestBuildNotFound() {
	_, err := s.repos.Builds.FindByID(s.ctx, 404)
	s.Equal(pkgErrors.KindNotFound, pkgErrors.KindOf(err))
}

func (s *RepositorySuite) TestBuildList() {
	other := &model.Build{
		ProjectID:          s.seed.Project.ID,
		CurrentStateCodeID: s.seed.States["broken"].ID,
		Status:             constants.BuildStatusFailed,
		StartTime:          time.Now().UTC(),
		Version:            1,
	}
	s.Require().NoError(s.repos.Builds.Create(s.ctx, other))

	list, total, err := s.repos.Builds.List(s.ctx, BuildFilter{Status: constants.BuildStatusFailed}, Page{Limit: 10})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(list, 1)
	s.Equal(other.ID, list[0].ID)

	_, total, err = s.repos.Builds.List(s.ctx, BuildFilter{ProjectID: lo.ToPtr(s.seed.Project.ID)}, Page{Limit: 1})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func (s *RepositorySuite) TestArtifactSoftDelete() {
	artifact := &model.BuildArtifact{BuildID: s.build.ID, StateCode: 10, ArtifactName: "disk", ArtifactType: "disk_image"}
	s.Require().NoError(s.repos.Artifacts.Create(s.ctx, artifact))

	found, err := s.repos.Artifacts.FindActiveByName(s.ctx, s.build.ID, "disk")
	s.Require().NoError(err)
	s.Equal(artifact.ID, found.ID)

	s.Require().NoError(s.repos.Artifacts.SoftDelete(s.ctx, artifact.ID))
	_, err = s.repos.Artifacts.FindActiveByName(s.ctx, s.build.ID, "disk")
	s.Equal(pkgErrors.KindNotFound, pkgErrors.KindOf(err))

	// 软删除后同名产物可再次登记
	again := &model.BuildArtifact{BuildID: s.build.ID, StateCode: 20, ArtifactName: "disk", ArtifactType: "disk_image"}
	s.Require().NoError(s.repos.Artifacts.Create(s.ctx, again))

	err = s.repos.Artifacts.SoftDelete(s.ctx, artifact.ID)
	s.Equal(pkgErrors.KindNotFound, pkgErrors.KindOf(err))

	count, err := s.repos.Artifacts.CountActive(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *RepositorySuite) TestArtifactExpiry() {
	now := time.Now().UTC()
	expired := &model.BuildArtifact{BuildID: s.build.ID, ArtifactName: "old", ArtifactType: "snapshot", ExpiresAt: lo.ToPtr(now.Add(-time.Hour))}
	fresh := &model.BuildArtifact{BuildID: s.build.ID, ArtifactName: "new", ArtifactType: "snapshot", ExpiresAt: lo.ToPtr(now.Add(time.Hour))}
	forever := &model.BuildArtifact{BuildID: s.build.ID, ArtifactName: "keep", ArtifactType: "snapshot"}
	for _, a := range []*model.BuildArtifact{expired, fresh, forever} {
		s.Require().NoError(s.repos.Artifacts.Create(s.ctx, a))
	}

	rows, err := s.repos.Artifacts.SoftDeleteExpired(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), rows)

	list, err := s.repos.Artifacts.ListByBuild(s.ctx, s.build.ID, ArtifactFilter{})
	s.Require().NoError(err)
	names := lo.Map(list, func(a *model.BuildArtifact, _ int) string { return a.ArtifactName })
	s.ElementsMatch([]string{"new", "keep"}, names)
}

func (s *RepositorySuite) TestVariableUpsert() {
	first, err := s.repos.Variables.Upsert(s.ctx, &model.BuildVariable{BuildID: s.build.ID, VariableKey: "ami_id", VariableValue: "ami-1", VariableType: "string"})
	s.Require().NoError(err)

	second, err := s.repos.Variables.Upsert(s.ctx, &model.BuildVariable{BuildID: s.build.ID, VariableKey: "ami_id", VariableValue: "ami-2", VariableType: "string"})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal("ami-2", second.VariableValue)

	list, err := s.repos.Variables.ListByBuild(s.ctx, s.build.ID)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.repos.Variables.Delete(s.ctx, s.build.ID, "ami_id"))
	_, err = s.repos.Variables.FindByKey(s.ctx, s.build.ID, "ami_id")
	s.Equal(pkgErrors.KindNotFound, pkgErrors.KindOf(err))
}

func (s *RepositorySuite) TestStateCodeLookups() {
	initial, err := s.repos.StateCodes.FindActiveInitial(s.ctx, s.seed.Project.ID)
	s.Require().NoError(err)
	s.Equal("init", initial.Name)

	byCode, err := s.repos.StateCodes.FindActiveByCode(s.ctx, s.seed.Project.ID, 20)
	s.Require().NoError(err)
	s.Equal("packer-done", byCode.Name)

	all, err := s.repos.StateCodes.List(s.ctx, s.seed.Project.ID, false)
	s.Require().NoError(err)
	s.Len(all, len(testutil.DefaultStates))
}
