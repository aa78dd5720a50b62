package repository

import (
	"gorm.io/gorm"

	"buildstate/internal/model"
)

// Repositories 聚合全部仓储, 便于在事务内整体重建
type Repositories struct {
	StateCodes      StateCodeRepository
	Builds          BuildRepository
	BuildStates     BuildStateRepository
	Failures        BuildFailureRepository
	Artifacts       ArtifactRepository
	Variables       VariableRepository
	ResumableStates ResumableStateRepository
	ResumeRequests  ResumeRequestRepository
	Jobs            BuildJobRepository
	Projects        CatalogRepository[model.Project]
	Platforms       CatalogRepository[model.Platform]
	OSVersions      CatalogRepository[model.OSVersion]
	ImageTypes      CatalogRepository[model.ImageType]
	Users           UserRepository
	APITokens       APITokenRepository
}

// New 基于同一个连接(或事务)创建全部仓储
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		StateCodes:      NewStateCodeRepository(db),
		Builds:          NewBuildRepository(db),
		BuildStates:     NewBuildStateRepository(db),
		Failures:        NewBuildFailureRepository(db),
		Artifacts:       NewArtifactRepository(db),
		Variables:       NewVariableRepository(db),
		ResumableStates: NewResumableStateRepository(db),
		ResumeRequests:  NewResumeRequestRepository(db),
		Jobs:            NewBuildJobRepository(db),
		Projects:        NewCatalogRepository[model.Project](db, "项目"),
		Platforms:       NewCatalogRepository[model.Platform](db, "平台"),
		OSVersions:      NewCatalogRepository[model.OSVersion](db, "系统版本"),
		ImageTypes:      NewCatalogRepository[model.ImageType](db, "镜像类型"),
		Users:           NewUserRepository(db),
		APITokens:       NewAPITokenRepository(db),
	}
}
