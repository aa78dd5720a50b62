package service

import (
	"context"

	"github.com/samber/lo"

	"buildstate/internal/dto"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
)

const defaultRecentLimit = 20

// DashboardService 看板统计, 只读
type DashboardService struct {
	repos *repository.Repositories
}

func NewDashboardService(repos *repository.Repositories) *DashboardService {
	return &DashboardService{repos: repos}
}

// Summary 按状态/平台/当前状态汇总
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	byStatus, err := s.repos.Builds.CountByStatus(ctx, nil)
	if err != nil {
		return nil, err
	}
	byPlatform, err := s.repos.Builds.CountByPlatform(ctx)
	if err != nil {
		return nil, err
	}
	byState, err := s.repos.Builds.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.repos.ResumeRequests.CountByStatus(ctx, constants.OrchestrationPending)
	if err != nil {
		return nil, err
	}
	artifacts, err := s.repos.Artifacts.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	summary := &dto.DashboardSummary{
		ByStatus: map[string]int64{
			constants.BuildStatusRunning:   0,
			constants.BuildStatusCompleted: 0,
			constants.BuildStatusFailed:    0,
		},
		ByPlatform:            lo.Map(byPlatform, toGroupCount),
		ByState:               lo.Map(byState, toGroupCount),
		PendingResumeRequests: pending,
		ActiveArtifacts:       artifacts,
	}
	for _, c := range byStatus {
		summary.ByStatus[c.Status] = c.Count
		summary.TotalBuilds += c.Count
	}
	return summary, nil
}

// Recent 最近的状态变更, 最新在前
func (s *DashboardService) Recent(ctx context.Context, req *dto.RecentRequest) ([]*dto.HistoryEntry, error) {
	limit := defaultRecentLimit
	if req != nil && req.Limit > 0 {
		limit = req.Limit
	}
	states, err := s.repos.BuildStates.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(states, func(st *model.BuildState, _ int) *dto.HistoryEntry {
		return dto.NewHistoryEntry(st)
	}), nil
}

func toGroupCount(c repository.KeyCount, _ int) dto.GroupCount {
	return dto.GroupCount{Key: c.Name, Count: c.Count}
}
