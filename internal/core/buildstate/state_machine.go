package buildstate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"buildstate/internal/adapter/notification"
	"buildstate/internal/model"
	"buildstate/internal/repository"
	"buildstate/pkg/constants"
	pkgErrors "buildstate/pkg/errors"
)

// StateMachine 构建状态机
//
// 所有写操作在单个事务中同时更新构建行与追加历史行;
// 构建行更新以 version 为条件, 并发写入时后到者得到 Conflict。
type StateMachine struct {
	db       *gorm.DB
	logger   *zap.Logger
	notifier notification.Notifier
	now      func() time.Time
}

func NewStateMachine(db *gorm.DB, notifier notification.Notifier, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		db:       db,
		logger:   logger,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBuild 创建构建, 指向项目的初始状态
func (sm *StateMachine) CreateBuild(ctx context.Context, build *model.Build, opts ...TransitionOption) (*model.Build, error) {
	option := newOptions(opts)
	var initial *model.StateCode

	err := sm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		var err error
		initial, err = repos.StateCodes.FindActiveInitial(ctx, build.ProjectID)
		if err != nil {
			return err
		}

		now := sm.now()
		build.CurrentStateCodeID = initial.ID
		build.Status = constants.BuildStatusRunning
		build.StartTime = now
		build.EndTime = nil
		build.Version = 1
		build.CreatedBy = option.operator
		if option.SideEffect != nil {
			option.SideEffect(build)
		}
		if err := repos.Builds.Create(ctx, build); err != nil {
			return err
		}

		message := option.message
		if message == "" {
			message = "Build created"
		}
		return repos.BuildStates.Create(ctx, &model.BuildState{
			BuildID:     build.ID,
			StateCodeID: initial.ID,
			Status:      constants.StateStatusRunning,
			Message:     &message,
			Metadata:    toJSONMap(option.metadata),
			StartTime:   now,
			CreatedBy:   option.operator,
		})
	})
	if err != nil {
		return nil, err
	}

	build.CurrentStateCode = initial
	sm.logger.Info("构建已创建",
		zap.Int64("build_id", build.ID),
		zap.Int64("project_id", build.ProjectID),
		zap.String("state", initial.Name))

	sm.after(ctx, notification.NotifyBuildStarted, &notification.BuildEvent{
		Build:    build,
		ToState:  initial.Name,
		Operator: option.operator,
		Message:  option.message,
	})
	return build, nil
}

// Transition 将构建推进到项目内名为 stateName 的生效状态
func (sm *StateMachine) Transition(ctx context.Context, buildID int64, stateName string, opts ...TransitionOption) (*model.Build, error) {
	option := newOptions(opts)
	log := sm.logger.With(zap.Int64("build_id", buildID))

	var build *model.Build
	var from, to *model.StateCode

	err := sm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		// 1. 重新加载最新状态
		var err error
		build, err = repos.Builds.FindByID(ctx, buildID, repository.WithLock(), repository.WithPreload("CurrentStateCode"))
		if err != nil {
			return err
		}
		from = build.CurrentStateCode

		// 2. 检查是否允许
		if err := checkVersion(build, option); err != nil {
			return err
		}
		if build.IsTerminal() {
			// 只能通过恢复请求重新打开
			return pkgErrors.ErrBuildTerminal
		}
		to, err = repos.StateCodes.FindActiveByName(ctx, build.ProjectID, stateName)
		if err != nil {
			if pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
				return pkgErrors.Newf(pkgErrors.KindInvalidState, "项目中不存在生效的状态: %s", stateName)
			}
			return err
		}

		// 3. 计算新状态
		now := sm.now()
		status := statusFor(to)
		updates := map[string]interface{}{
			"current_state_code_id": to.ID,
			"status":                status,
			"updated_at":            now,
		}
		if status != constants.BuildStatusRunning {
			updates["end_time"] = now
		}
		if option.SideEffect != nil {
			option.SideEffect(build)
			if build.Metadata != nil {
				updates["metadata"] = build.Metadata
			}
		}

		// 4. 乐观锁更新
		if err := sm.updateVersioned(ctx, repos, build, updates); err != nil {
			return err
		}

		message := option.message
		return repos.BuildStates.Create(ctx, &model.BuildState{
			BuildID:     build.ID,
			StateCodeID: to.ID,
			Status:      status,
			Message:     optionalString(message),
			Metadata:    toJSONMap(option.metadata),
			StartTime:   now,
			CreatedBy:   option.operator,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info(fmt.Sprintf("[Build SM: %d] 状态变更成功: %s -> %s", buildID, stateNameOf(from), to.Name),
		zap.String("status", build.Status))

	build, err = sm.reload(ctx, buildID)
	if err != nil {
		return nil, err
	}

	sm.after(ctx, notifyTypeFor(build.Status), &notification.BuildEvent{
		Build:     build,
		FromState: stateNameOf(from),
		ToState:   to.Name,
		Operator:  option.operator,
		Message:   option.message,
	})
	return build, nil
}

// RecordFailure 在当前状态上将构建标记为失败, 不移动状态指针
func (sm *StateMachine) RecordFailure(ctx context.Context, buildID int64, detail FailureDetail, opts ...TransitionOption) (*model.Build, error) {
	option := newOptions(opts)

	var build *model.Build
	err := sm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)

		var err error
		build, err = repos.Builds.FindByID(ctx, buildID, repository.WithLock())
		if err != nil {
			return err
		}
		if err := checkVersion(build, option); err != nil {
			return err
		}
		if build.IsTerminal() {
			return pkgErrors.ErrBuildTerminal
		}

		now := sm.now()
		if err := sm.updateVersioned(ctx, repos, build, map[string]interface{}{
			"status":     constants.BuildStatusFailed,
			"end_time":   now,
			"updated_at": now,
		}); err != nil {
			return err
		}

		message := option.message
		if message == "" {
			message = "Build failed"
		}
		return repos.BuildStates.Create(ctx, &model.BuildState{
			BuildID:      build.ID,
			StateCodeID:  build.CurrentStateCodeID,
			Status:       constants.StateStatusFailed,
			Message:      &message,
			ErrorMessage: optionalString(detail.ErrorMessage),
			ErrorCode:    detail.ErrorCode,
			Metadata:     toJSONMap(detail.Metadata),
			StartTime:    now,
			CreatedBy:    option.operator,
		})
	})
	if err != nil {
		return nil, err
	}

	sm.logger.Warn("构建已标记失败",
		zap.Int64("build_id", buildID),
		zap.String("error", detail.ErrorMessage))

	build, err = sm.reload(ctx, buildID)
	if err != nil {
		return nil, err
	}

	state := stateNameOf(build.CurrentStateCode)
	sm.after(ctx, notification.NotifyBuildFailed, &notification.BuildEvent{
		Build:     build,
		FromState: state,
		ToState:   state,
		Operator:  option.operator,
		Message:   detail.ErrorMessage,
	})
	return build, nil
}

// Reopen 恢复执行时重新打开已结束的构建
func (sm *StateMachine) Reopen(ctx context.Context, buildID int64, fromCode int, opts ...TransitionOption) (*model.Build, error) {
	var committed func() (*model.Build, error)
	err := sm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		committed, err = sm.ReopenTx(ctx, tx, buildID, fromCode, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return committed()
}

// ReopenTx 在调用方事务内重新打开构建, 事务提交后调用返回的函数(重新加载并发送通知)
//
// 构建回到 running 并清空 end_time; 若项目中存在 code 等于 fromCode 的生效状态, 指针移到该状态,
// 否则保持不变。未结束的构建同样按此规则移动指针并追加一条 running 历史。
func (sm *StateMachine) ReopenTx(ctx context.Context, tx *gorm.DB, buildID int64, fromCode int, opts ...TransitionOption) (func() (*model.Build, error), error) {
	option := newOptions(opts)
	repos := repository.New(tx)

	build, err := repos.Builds.FindByID(ctx, buildID, repository.WithLock(), repository.WithPreload("CurrentStateCode"))
	if err != nil {
		return nil, err
	}
	from := build.CurrentStateCode
	if err := checkVersion(build, option); err != nil {
		return nil, err
	}

	target := build.CurrentStateCodeID
	if sc, err := repos.StateCodes.FindActiveByCode(ctx, build.ProjectID, fromCode); err == nil {
		target = sc.ID
	} else if !pkgErrors.IsKind(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	now := sm.now()
	if err := sm.updateVersioned(ctx, repos, build, map[string]interface{}{
		"current_state_code_id": target,
		"status":                constants.BuildStatusRunning,
		"end_time":              nil,
		"updated_at":            now,
	}); err != nil {
		return nil, err
	}

	message := option.message
	if message == "" {
		message = fmt.Sprintf("Build resumed from state %d", fromCode)
	}
	if err := repos.BuildStates.Create(ctx, &model.BuildState{
		BuildID:     build.ID,
		StateCodeID: target,
		Status:      constants.StateStatusRunning,
		Message:     &message,
		Metadata:    toJSONMap(option.metadata),
		StartTime:   now,
		CreatedBy:   option.operator,
	}); err != nil {
		return nil, err
	}

	return func() (*model.Build, error) {
		build, err := sm.reload(ctx, buildID)
		if err != nil {
			return nil, err
		}
		sm.logger.Info("构建已恢复执行", zap.Int64("build_id", buildID), zap.Int("from_state", fromCode))

		sm.after(ctx, notification.NotifyBuildReopened, &notification.BuildEvent{
			Build:     build,
			FromState: stateNameOf(from),
			ToState:   stateNameOf(build.CurrentStateCode),
			Operator:  option.operator,
			Message:   option.message,
		})
		return build, nil
	}, nil
}

func (sm *StateMachine) updateVersioned(ctx context.Context, repos *repository.Repositories, build *model.Build, updates map[string]interface{}) error {
	affected, err := repos.Builds.UpdateVersioned(ctx, build.ID, build.Version, updates)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgErrors.ErrVersionConflict
	}
	build.Version++
	return nil
}

func (sm *StateMachine) reload(ctx context.Context, buildID int64) (*model.Build, error) {
	return repository.NewBuildRepository(sm.db).FindByID(ctx, buildID, repository.WithPreload("CurrentStateCode"))
}

// after 事务提交后发送通知, 不影响调用结果
func (sm *StateMachine) after(ctx context.Context, notifyType notification.NotificationType, event *notification.BuildEvent) {
	if sm.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := sm.notifier.SendBuildNotification(detached, notifyType, event); err != nil {
			sm.logger.Warn("发送构建通知失败", zap.Int64("build_id", event.Build.ID), zap.Error(err))
		}
	}()
}

func checkVersion(build *model.Build, option *TransitionOptions) error {
	if option.expectedVersion != nil && *option.expectedVersion != build.Version {
		return pkgErrors.Newf(pkgErrors.KindConflict, "版本不一致: 期望 %d, 当前 %d", *option.expectedVersion, build.Version)
	}
	return nil
}

// statusFor 目标状态决定构建状态: final -> completed, error -> failed, 其余 running
func statusFor(sc *model.StateCode) string {
	switch {
	case sc.IsFinal:
		return constants.BuildStatusCompleted
	case sc.IsError:
		return constants.BuildStatusFailed
	default:
		return constants.BuildStatusRunning
	}
}

func notifyTypeFor(status string) notification.NotificationType {
	switch status {
	case constants.BuildStatusCompleted:
		return notification.NotifyBuildCompleted
	case constants.BuildStatusFailed:
		return notification.NotifyBuildFailed
	default:
		return notification.NotifyStateTransition
	}
}

func stateNameOf(sc *model.StateCode) string {
	if sc == nil {
		return ""
	}
	return sc.Name
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toJSONMap(m map[string]interface{}) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}
