package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	pkgErrors "buildstate/pkg/errors"
)

// ArtifactService 构建产物登记, 只管理元数据
type ArtifactService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewArtifactService(db *gorm.DB, logger *zap.Logger) *ArtifactService {
	return &ArtifactService{
		db:     db,
		repos:  repository.New(db),
		logger: logger,
	}
}

// Register 登记产物, 同一构建内未删除的同名产物返回 Conflict
func (s *ArtifactService) Register(ctx context.Context, buildID int64, req *dto.ArtifactCreateRequest) (*model.BuildArtifact, error) {
	artifact := &model.BuildArtifact{
		BuildID:           buildID,
		StateCode:         *req.StateCode,
		ArtifactName:      req.ArtifactName,
		ArtifactType:      req.ArtifactType,
		ArtifactPath:      req.ArtifactPath,
		StorageBackend:    req.StorageBackend,
		StorageRegion:     req.StorageRegion,
		StorageBucket:     req.StorageBucket,
		StorageKey:        req.StorageKey,
		SizeBytes:         req.SizeBytes,
		Checksum:          req.Checksum,
		ChecksumAlgorithm: req.ChecksumAlgorithm,
		IsResumable:       req.IsResumable,
		IsFinal:           req.IsFinal,
		ExpiresAt:         req.ExpiresAt,
		Metadata:          req.Metadata,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)
		// 锁住构建行, 同一构建的登记串行执行, 名称检查与插入之间不会插入同名产物
		if _, err := repos.Builds.FindByID(ctx, buildID, repository.WithLock()); err != nil {
			return err
		}
		if err := checkArtifactName(ctx, repos.Artifacts, buildID, artifact.ArtifactName, 0); err != nil {
			return err
		}
		return repos.Artifacts.Create(ctx, artifact)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("产物已登记",
		zap.Int64("build_id", buildID),
		zap.String("artifact", artifact.ArtifactName),
		zap.Int("state_code", artifact.StateCode),
		zap.Bool("resumable", artifact.IsResumable))
	return artifact, nil
}

// List 未删除产物, 按 (state_code, created_at) 升序
func (s *ArtifactService) List(ctx context.Context, buildID int64, req *dto.ArtifactListRequest) ([]*model.BuildArtifact, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.repos.Artifacts.ListByBuild(ctx, buildID, repository.ArtifactFilter{
		IsResumable:  req.IsResumable,
		IsFinal:      req.IsFinal,
		StateCode:    req.StateCode,
		ArtifactType: req.ArtifactType,
	})
}

// Get 查询单个产物, 必须属于该构建
func (s *ArtifactService) Get(ctx context.Context, buildID, id int64) (*model.BuildArtifact, error) {
	artifact, err := s.repos.Artifacts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if artifact.BuildID != buildID {
		return nil, pkgErrors.New(pkgErrors.KindNotFound, "产物不存在")
	}
	return artifact, nil
}

// Update 更新产物元数据, 改名时重新校验唯一性
func (s *ArtifactService) Update(ctx context.Context, buildID, id int64, req *dto.ArtifactUpdateRequest) (*model.BuildArtifact, error) {
	var artifact *model.BuildArtifact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewArtifactRepository(tx)

		var err error
		artifact, err = repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if artifact.BuildID != buildID {
			return pkgErrors.New(pkgErrors.KindNotFound, "产物不存在")
		}

		if req.ArtifactName != nil && *req.ArtifactName != artifact.ArtifactName {
			if _, err := repository.NewBuildRepository(tx).FindByID(ctx, buildID, repository.WithLock()); err != nil {
				return err
			}
			if err := checkArtifactName(ctx, repo, buildID, *req.ArtifactName, artifact.ID); err != nil {
				return err
			}
			artifact.ArtifactName = *req.ArtifactName
		}
		applyArtifactUpdate(artifact, req)

		if err := tx.WithContext(ctx).Save(artifact).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.KindInternal, "更新产物失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Delete 软删除产物, 不删除存储对象
func (s *ArtifactService) Delete(ctx context.Context, buildID, id int64) error {
	if _, err := s.Get(ctx, buildID, id); err != nil {
		return err
	}
	if err := s.repos.Artifacts.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("产物已删除", zap.Int64("build_id", buildID), zap.Int64("artifact_id", id))
	return nil
}

// SweepExpired 软删除已过期产物, 由定时任务调用
func (s *ArtifactService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repos.Artifacts.SoftDeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("已清理过期产物", zap.Int64("count", count))
	}
	return count, nil
}

func checkArtifactName(ctx context.Context, repo repository.ArtifactRepository, buildID int64, name string, selfID int64) error {
	existing, err := repo.FindActiveByName(ctx, buildID, name)
	switch {
	case err == nil && existing.ID != selfID:
		return pkgErrors.Newf(pkgErrors.KindConflict, "产物 '%s' 已存在", name)
	case err != nil && !pkgErrors.IsKind(err, pkgErrors.KindNotFound):
		return err
	}
	return nil
}

func applyArtifactUpdate(a *model.BuildArtifact, req *dto.ArtifactUpdateRequest) {
	if req.ArtifactType != nil {
		a.ArtifactType = *req.ArtifactType
	}
	if req.ArtifactPath != nil {
		a.ArtifactPath = req.ArtifactPath
	}
	if req.StorageBackend != nil {
		a.StorageBackend = req.StorageBackend
	}
	if req.StorageRegion != nil {
		a.StorageRegion = req.StorageRegion
	}
	if req.StorageBucket != nil {
		a.StorageBucket = req.StorageBucket
	}
	if req.StorageKey != nil {
		a.StorageKey = req.StorageKey
	}
	if req.SizeBytes != nil {
		a.SizeBytes = req.SizeBytes
	}
	if req.Checksum != nil {
		a.Checksum = req.Checksum
	}
	if req.ChecksumAlgorithm != nil {
		a.ChecksumAlgorithm = req.ChecksumAlgorithm
	}
	if req.IsResumable != nil {
		a.IsResumable = *req.IsResumable
	}
	if req.IsFinal != nil {
		a.IsFinal = *req.IsFinal
	}
	if req.ExpiresAt != nil {
		a.ExpiresAt = req.ExpiresAt
	}
	if req.Metadata != nil {
		a.Metadata = req.Metadata
	}
}
