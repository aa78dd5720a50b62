package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/core/buildstate"
	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	pkgErrors "buildstate/pkg/errors"
)

// stateHistoryLimit GET /builds/{id}/state 返回的历史条数
const stateHistoryLimit = 10

// BuildService 构建记录与状态流转
type BuildService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	sm     *buildstate.StateMachine
	logger *zap.Logger
}

func NewBuildService(db *gorm.DB, sm *buildstate.StateMachine, logger *zap.Logger) *BuildService {
	return &BuildService{
		db:     db,
		repos:  repository.New(db),
		sm:     sm,
		logger: logger,
	}
}

// Create 创建构建, 进入项目初始状态
func (s *BuildService) Create(ctx context.Context, req *dto.BuildCreateRequest, operator string) (*dto.BuildResponse, error) {
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	build := &model.Build{
		ProjectID:   req.ProjectID,
		PlatformID:  req.PlatformID,
		OSVersionID: req.OSVersionID,
		ImageTypeID: req.ImageTypeID,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	created, err := s.sm.CreateBuild(ctx, build, buildstate.WithOperator(operator))
	if err != nil {
		return nil, err
	}
	return dto.NewBuildResponse(created), nil
}

// checkReferences 校验引用的目录数据存在
func (s *BuildService) checkReferences(ctx context.Context, req *dto.BuildCreateRequest) error {
	checks := []struct {
		id     *int64
		label  string
		exists func(context.Context, int64) (bool, error)
	}{
		{lo.ToPtr(req.ProjectID), "项目", s.repos.Projects.Exists},
		{req.PlatformID, "平台", s.repos.Platforms.Exists},
		{req.OSVersionID, "系统版本", s.repos.OSVersions.Exists},
		{req.ImageTypeID, "镜像类型", s.repos.ImageTypes.Exists},
	}
	for _, check := range checks {
		if check.id == nil {
			continue
		}
		ok, err := check.exists(ctx, *check.id)
		if err != nil {
			return err
		}
		if !ok {
			return pkgErrors.Newf(pkgErrors.KindNotFound, "%s %d 不存在", check.label, *check.id)
		}
	}
	return nil
}

// Get 获取构建详情
func (s *BuildService) Get(ctx context.Context, id int64) (*dto.BuildResponse, error) {
	build, err := s.repos.Builds.FindByID(ctx, id, repository.WithPreload("CurrentStateCode"))
	if err != nil {
		return nil, err
	}
	return dto.NewBuildResponse(build), nil
}

// List 分页查询构建
func (s *BuildService) List(ctx context.Context, req *dto.BuildListRequest) (*dto.PageResponse, error) {
	builds, total, err := s.repos.Builds.List(ctx, repository.BuildFilter{
		ProjectID:   req.ProjectID,
		PlatformID:  req.PlatformID,
		Status:      req.Status,
		StateCodeID: req.StateCodeID,
		Keyword:     req.Keyword,
	}, repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()})
	if err != nil {
		return nil, err
	}

	items := lo.Map(builds, func(b *model.Build, _ int) *dto.BuildResponse {
		return dto.NewBuildResponse(b)
	})
	return dto.NewPageResponse(items, total, req.GetPage(), req.GetPageSize()), nil
}

// Transition 推进构建状态, 返回新追加的历史
func (s *BuildService) Transition(ctx context.Context, id int64, req *dto.TransitionRequest, operator string) (*dto.BuildStateResponse, error) {
	opts := []buildstate.TransitionOption{
		buildstate.WithOperator(operator),
		buildstate.WithMessage(req.Message),
		buildstate.WithMetadata(req.Metadata),
	}
	if req.ExpectedVersion != nil {
		opts = append(opts, buildstate.WithExpectedVersion(*req.ExpectedVersion))
	}

	if _, err := s.sm.Transition(ctx, id, req.StateName, opts...); err != nil {
		return nil, err
	}
	return s.GetState(ctx, id)
}

// RecordFailure 在当前状态上标记构建失败
func (s *BuildService) RecordFailure(ctx context.Context, id int64, req *dto.FailureRequest, operator string) (*dto.BuildStateResponse, error) {
	opts := []buildstate.TransitionOption{
		buildstate.WithOperator(operator),
		buildstate.WithMessage(req.Message),
	}
	if req.ExpectedVersion != nil {
		opts = append(opts, buildstate.WithExpectedVersion(*req.ExpectedVersion))
	}

	_, err := s.sm.RecordFailure(ctx, id, buildstate.FailureDetail{
		ErrorMessage: req.ErrorMessage,
		ErrorCode:    req.ErrorCode,
		Metadata:     req.Metadata,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return s.GetState(ctx, id)
}

// GetState 当前状态与最近历史(新的在前)
func (s *BuildService) GetState(ctx context.Context, id int64) (*dto.BuildStateResponse, error) {
	build, err := s.repos.Builds.FindByID(ctx, id, repository.WithPreload("CurrentStateCode"))
	if err != nil {
		return nil, err
	}
	history, err := s.repos.BuildStates.ListByBuild(ctx, id)
	if err != nil {
		return nil, err
	}

	recent := make([]*model.BuildState, 0, stateHistoryLimit)
	for i := len(history) - 1; i >= 0 && len(recent) < stateHistoryLimit; i-- {
		recent = append(recent, history[i])
	}

	return &dto.BuildStateResponse{
		BuildID:      build.ID,
		CurrentState: dto.NewStateRef(build.CurrentStateCode),
		Status:       build.Status,
		Version:      build.Version,
		History:      lo.Map(recent, func(h *model.BuildState, _ int) *dto.HistoryEntry { return dto.NewHistoryEntry(h) }),
	}, nil
}

// History 完整历史(旧的在前)
func (s *BuildService) History(ctx context.Context, id int64) ([]*dto.HistoryEntry, error) {
	if _, err := s.repos.Builds.FindByID(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.repos.BuildStates.ListByBuild(ctx, id)
	if err != nil {
		return nil, err
	}
	return lo.Map(history, func(h *model.BuildState, _ int) *dto.HistoryEntry { return dto.NewHistoryEntry(h) }), nil
}

// CreateFailure 登记带外失败, 不改变构建状态
func (s *BuildService) CreateFailure(ctx context.Context, id int64, req *dto.BuildFailureCreateRequest) (*model.BuildFailure, error) {
	build, err := s.repos.Builds.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stateCodeID := build.CurrentStateCodeID
	if req.StateCodeID != nil {
		sc, err := s.repos.StateCodes.FindByID(ctx, *req.StateCodeID)
		if err != nil {
			return nil, err
		}
		if sc.ProjectID != build.ProjectID {
			return nil, pkgErrors.New(pkgErrors.KindInvalidArgument, "状态码不属于构建所在项目")
		}
		stateCodeID = sc.ID
	}

	failure := &model.BuildFailure{
		BuildID:      id,
		StateCodeID:  stateCodeID,
		ErrorMessage: req.ErrorMessage,
		ErrorCode:    req.ErrorCode,
		Source:       req.Source,
		Metadata:     req.Metadata,
	}
	if err := s.repos.Failures.Create(ctx, failure); err != nil {
		return nil, err
	}

	s.logger.Warn("登记构建失败记录", zap.Int64("build_id", id), zap.String("error", req.ErrorMessage))
	return failure, nil
}

// ListFailures 失败记录列表
func (s *BuildService) ListFailures(ctx context.Context, id int64, req *dto.BuildFailureListRequest) ([]*model.BuildFailure, error) {
	if _, err := s.repos.Builds.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repos.Failures.ListByBuild(ctx, id, req.UnresolvedOnly)
}

// ResolveFailure 标记失败记录已解决
func (s *BuildService) ResolveFailure(ctx context.Context, buildID, failureID int64, operator string) (*model.BuildFailure, error) {
	failure, err := s.repos.Failures.FindByID(ctx, failureID)
	if err != nil {
		return nil, err
	}
	if failure.BuildID != buildID {
		return nil, pkgErrors.New(pkgErrors.KindNotFound, "失败记录不存在")
	}
	if failure.Resolved {
		return failure, nil
	}
	if err := s.repos.Failures.Resolve(ctx, failureID, operator, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repos.Failures.FindByID(ctx, failureID)
}
