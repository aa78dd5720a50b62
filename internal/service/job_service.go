package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// JobService 构建关联的外部CI任务
type JobService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewJobService(repos *repository.Repositories, logger *zap.Logger) *JobService {
	return &JobService{repos: repos, logger: logger}
}

// Create 登记CI任务, parent_job_id 必须属于同一构建
func (s *JobService) Create(ctx context.Context, buildID int64, req *dto.BuildJobCreateRequest) (*model.BuildJob, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	if req.ParentJobID != nil {
		if err := s.checkParent(ctx, buildID, *req.ParentJobID); err != nil {
			return nil, err
		}
	}

	job := &model.BuildJob{
		BuildID:          buildID,
		Platform:         req.Platform,
		PipelineName:     req.PipelineName,
		JobName:          req.JobName,
		JobURL:           req.JobURL,
		JobID:            req.JobID,
		BuildNumber:      req.BuildNumber,
		TriggeredBy:      req.TriggeredBy,
		TriggerSource:    req.TriggerSource,
		Status:           lo.Ternary(req.Status == "", constants.JobStatusPending, req.Status),
		IsResumeJob:      req.IsResumeJob,
		ResumedFromState: req.ResumedFromState,
		ParentJobID:      req.ParentJobID,
		StartedAt:        req.StartedAt,
	}
	if err := s.repos.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("CI任务已登记",
		zap.Int64("build_id", buildID),
		zap.Int64("job_id", job.ID),
		zap.String("platform", job.Platform),
		zap.Bool("resume_job", job.IsResumeJob))
	return job, nil
}

// List 构建的CI任务, 最新在前
func (s *JobService) List(ctx context.Context, buildID int64) ([]*model.BuildJob, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.repos.Jobs.ListByBuild(ctx, buildID)
}

// Update 更新CI任务状态与链接
func (s *JobService) Update(ctx context.Context, buildID, id int64, req *dto.BuildJobUpdateRequest) (*model.BuildJob, error) {
	job, err := s.repos.Jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.BuildID != buildID {
		return nil, pkgErrors.New(pkgErrors.KindNotFound, "CI任务不存在")
	}

	if req.JobURL != nil {
		job.JobURL = req.JobURL
	}
	if req.JobID != nil {
		job.JobID = req.JobID
	}
	if req.BuildNumber != nil {
		job.BuildNumber = req.BuildNumber
	}
	if req.Status != nil {
		job.Status = *req.Status
	}
	if req.StartedAt != nil {
		job.StartedAt = req.StartedAt
	}
	if req.CompletedAt != nil {
		job.CompletedAt = req.CompletedAt
	}

	if err := s.repos.Jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) checkParent(ctx context.Context, buildID, parentID int64) error {
	parent, err := s.repos.Jobs.FindByID(ctx, parentID)
	if err != nil {
		if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
			return pkgErrors.New(pkgErrors.KindInvalidArgument, "parent_job_id 不存在")
		}
		return err
	}
	if parent.BuildID != buildID {
		return pkgErrors.New(pkgErrors.KindInvalidArgument, "parent_job_id 不属于该构建")
	}
	return nil
}
