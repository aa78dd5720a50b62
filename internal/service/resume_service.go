package service

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"buildstate/internal/adapter/notification"
	"buildstate/internal/core/buildstate"
	"buildstate/internal/core/resume"
	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// ResumeService 恢复策略、恢复上下文与恢复请求
type ResumeService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	builder  *resume.Builder
	sm       *buildstate.StateMachine
	notifier notification.Notifier
	logger   *zap.Logger
}

func NewResumeService(db *gorm.DB, sm *buildstate.StateMachine, notifier notification.Notifier, logger *zap.Logger) *ResumeService {
	return &ResumeService{
		db:       db,
		repos:    repository.New(db),
		builder:  resume.NewBuilder(db),
		sm:       sm,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateResumableState 创建项目级恢复策略, (project, state_code) 重复返回 Conflict
func (s *ResumeService) CreateResumableState(ctx context.Context, projectID int64, req *dto.ResumableStateCreateRequest) (*model.ResumableState, error) {
	if ok, err := s.repos.Projects.Exists(ctx, projectID); err != nil {
		return nil, err
	} else if !ok {
		return nil, pkgErrors.New(pkgErrors.KindNotFound, "项目不存在")
	}

	rs := &model.ResumableState{
		ProjectID:            projectID,
		StateCode:            *req.StateCode,
		IsResumable:          lo.FromPtrOr(req.IsResumable, true),
		ResumeStrategy:       req.ResumeStrategy,
		RequiredArtifacts:    req.RequiredArtifacts,
		RequiredVariables:    req.RequiredVariables,
		ResumeCommand:        req.ResumeCommand,
		ResumeTimeoutSeconds: req.ResumeTimeoutSeconds,
		Description:          req.Description,
		Notes:                req.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewResumableStateRepository(tx)
		_, err := repo.FindByProjectAndCode(ctx, projectID, rs.StateCode)
		switch {
		case err == nil:
			return pkgErrors.Newf(pkgErrors.KindConflict, "状态 %d 的恢复策略已存在", rs.StateCode)
		case !pkgErrors.IsKind(err, pkgErrors.KindNotFound):
			return err
		}
		return repo.Create(ctx, rs)
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// ListResumableStates 按 state_code 升序
func (s *ResumeService) ListResumableStates(ctx context.Context, projectID int64, req *dto.ResumableStateListRequest) ([]*model.ResumableState, error) {
	list, err := s.repos.ResumableStates.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if req != nil && req.IsResumable != nil {
		list = lo.Filter(list, func(rs *model.ResumableState, _ int) bool {
			return rs.IsResumable == *req.IsResumable
		})
	}
	return list, nil
}

// GetResumableState 按 state_code 查询
func (s *ResumeService) GetResumableState(ctx context.Context, projectID int64, stateCode int) (*model.ResumableState, error) {
	return s.repos.ResumableStates.FindByProjectAndCode(ctx, projectID, stateCode)
}

// UpdateResumableState 部分更新恢复策略
func (s *ResumeService) UpdateResumableState(ctx context.Context, projectID int64, stateCode int, req *dto.ResumableStateUpdateRequest) (*model.ResumableState, error) {
	rs, err := s.repos.ResumableStates.FindByProjectAndCode(ctx, projectID, stateCode)
	if err != nil {
		return nil, err
	}

	if req.IsResumable != nil {
		rs.IsResumable = *req.IsResumable
	}
	if req.ResumeStrategy != nil {
		rs.ResumeStrategy = *req.ResumeStrategy
	}
	if req.RequiredArtifacts != nil {
		rs.RequiredArtifacts = req.RequiredArtifacts
	}
	if req.RequiredVariables != nil {
		rs.RequiredVariables = req.RequiredVariables
	}
	if req.ResumeCommand != nil {
		rs.ResumeCommand = req.ResumeCommand
	}
	if req.ResumeTimeoutSeconds != nil {
		rs.ResumeTimeoutSeconds = req.ResumeTimeoutSeconds
	}
	if req.Description != nil {
		rs.Description = req.Description
	}
	if req.Notes != nil {
		rs.Notes = req.Notes
	}

	if err := s.repos.ResumableStates.Update(ctx, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// GetContext 构建恢复上下文
func (s *ResumeService) GetContext(ctx context.Context, buildID int64) (*resume.Context, error) {
	return s.builder.Build(ctx, buildID)
}

// CreateRequest 登记恢复请求, 状态为 pending, 由外部编排系统推进
func (s *ResumeService) CreateRequest(ctx context.Context, buildID int64, req *dto.ResumeRequestCreateRequest, operator string) (*model.ResumeRequest, error) {
	if req.ResumeFromState == nil || *req.ResumeFromState < 0 {
		return nil, pkgErrors.New(pkgErrors.KindInvalidArgument, "resume_from_state 不能小于0")
	}
	if req.ResumeToState != nil && *req.ResumeToState <= *req.ResumeFromState {
		return nil, pkgErrors.New(pkgErrors.KindInvalidArgument, "resume_to_state 必须大于 resume_from_state")
	}
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}

	request := &model.ResumeRequest{
		BuildID:             buildID,
		ResumeFromState:     *req.ResumeFromState,
		ResumeToState:       req.ResumeToState,
		ResumeReason:        req.ResumeReason,
		RequestedBy:         operator,
		RequestSource:       req.RequestSource,
		OrchestrationStatus: constants.OrchestrationPending,
		Metadata:            req.Metadata,
	}
	if err := s.repos.ResumeRequests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("已登记恢复请求",
		zap.Int64("build_id", buildID),
		zap.Int64("request_id", request.ID),
		zap.Int("from_state", request.ResumeFromState),
		zap.String("requested_by", operator))

	if s.notifier != nil {
		go func(ctx context.Context) {
			if err := s.notifier.SendResumeNotification(ctx, request, lo.FromPtr(req.ResumeReason)); err != nil {
				s.logger.Warn("恢复请求通知发送失败", zap.Int64("request_id", request.ID), zap.Error(err))
			}
		}(context.WithoutCancel(ctx))
	}

	return request, nil
}

// ListRequests 构建的恢复请求, 最新在前
func (s *ResumeService) ListRequests(ctx context.Context, buildID int64) ([]*model.ResumeRequest, error) {
	if _, err := s.repos.Builds.FindByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.repos.ResumeRequests.ListByBuild(ctx, buildID)
}

// ListAllRequests 全局恢复请求队列, 可按编排状态过滤
func (s *ResumeService) ListAllRequests(ctx context.Context, req *dto.ResumeRequestListRequest) (*dto.PageResponse, error) {
	list, total, err := s.repos.ResumeRequests.List(ctx, req.Status, repository.Page{
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPageResponse(list, total, req.GetPage(), req.GetPageSize()), nil
}

// GetRequest 查询恢复请求
func (s *ResumeService) GetRequest(ctx context.Context, id int64) (*model.ResumeRequest, error) {
	return s.repos.ResumeRequests.FindByID(ctx, id)
}

// UpdateRequest 编排系统回写进度
//
// 编排状态没有严格流转; 进入 running 时对应构建回到 running(已结束的构建被重新打开)。
// 请求更新与重新打开在同一事务内, 任一失败都不落库。
func (s *ResumeService) UpdateRequest(ctx context.Context, id int64, req *dto.ResumeRequestUpdateRequest, operator string) (*model.ResumeRequest, error) {
	var request *model.ResumeRequest
	var previous string
	var reopened func() (*model.Build, error)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewResumeRequestRepository(tx)

		var err error
		request, err = repo.FindByID(ctx, id, repository.WithLock())
		if err != nil {
			return err
		}
		previous = request.OrchestrationStatus
		applyRequestUpdate(request, req)

		if err := repo.Update(ctx, request); err != nil {
			return err
		}

		if previous != constants.OrchestrationRunning && request.OrchestrationStatus == constants.OrchestrationRunning {
			reopened, err = s.sm.ReopenTx(ctx, tx, request.BuildID, request.ResumeFromState,
				buildstate.WithOperator(operator))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reopened != nil {
		if _, err := reopened(); err != nil {
			return nil, err
		}
	}

	s.logger.Info("恢复请求已更新",
		zap.Int64("request_id", id),
		zap.String("from", previous),
		zap.String("to", request.OrchestrationStatus))
	return request, nil
}

// applyRequestUpdate 只允许修改编排字段
func applyRequestUpdate(request *model.ResumeRequest, req *dto.ResumeRequestUpdateRequest) {
	if req.OrchestrationJobID != nil {
		request.OrchestrationJobID = req.OrchestrationJobID
	}
	if req.OrchestrationJobURL != nil {
		request.OrchestrationJobURL = req.OrchestrationJobURL
	}
	if req.OrchestrationStatus != nil {
		request.OrchestrationStatus = *req.OrchestrationStatus
	}
	if req.TriggeredAt != nil {
		request.TriggeredAt = req.TriggeredAt
	}
	if req.CompletedAt != nil {
		request.CompletedAt = req.CompletedAt
	}
	if req.ErrorMessage != nil {
		request.ErrorMessage = req.ErrorMessage
	}
}
