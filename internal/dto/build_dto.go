package dto

import (
	"time"

	"buildstate/internal/model"
)

// BuildCreateRequest 创建构建
type BuildCreateRequest struct {
	ProjectID   int64                  `json:"project_id" binding:"required,min=1"`
	PlatformID  *int64                 `json:"platform_id" binding:"omitempty,min=1"`
	OSVersionID *int64                 `json:"os_version_id" binding:"omitempty,min=1"`
	ImageTypeID *int64                 `json:"image_type_id" binding:"omitempty,min=1"`
	Description *string                `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// BuildListRequest 构建列表
type BuildListRequest struct {
	PageQuery
	ProjectID   *int64 `form:"project_id"`
	PlatformID  *int64 `form:"platform_id"`
	StateCodeID *int64 `form:"state_code_id"`
	Status      string `form:"status" binding:"omitempty,oneof=running completed failed"`
}

// TransitionRequest 状态流转
type TransitionRequest struct {
	StateName       string                 `json:"state_name" binding:"required,max=100"`
	Message         string                 `json:"message"`
	Metadata        map[string]interface{} `json:"metadata"`
	ExpectedVersion *int64                 `json:"expected_version" binding:"omitempty,min=1"`
}

// FailureRequest 标记构建失败
type FailureRequest struct {
	ErrorMessage    string                 `json:"error_message" binding:"required"`
	ErrorCode       *string                `json:"error_code" binding:"omitempty,max=100"`
	Message         string                 `json:"message"`
	Metadata        map[string]interface{} `json:"metadata"`
	ExpectedVersion *int64                 `json:"expected_version" binding:"omitempty,min=1"`
}

// StateRef 状态引用
type StateRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code int    `json:"code"`
}

// BuildResponse 构建详情
type BuildResponse struct {
	ID           int64                  `json:"id"`
	ProjectID    int64                  `json:"project_id"`
	PlatformID   *int64                 `json:"platform_id"`
	OSVersionID  *int64                 `json:"os_version_id"`
	ImageTypeID  *int64                 `json:"image_type_id"`
	Description  *string                `json:"description"`
	CurrentState *StateRef              `json:"current_state"`
	Status       string                 `json:"status"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      *time.Time             `json:"end_time"`
	Version      int64                  `json:"version"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedBy    string                 `json:"created_by"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// HistoryEntry 状态历史条目
type HistoryEntry struct {
	ID           int64                  `json:"id"`
	BuildID      int64                  `json:"build_id"`
	State        *StateRef              `json:"state"`
	Status       string                 `json:"status"`
	Message      *string                `json:"message"`
	ErrorMessage *string                `json:"error_message"`
	ErrorCode    *string                `json:"error_code"`
	Metadata     map[string]interface{} `json:"metadata"`
	StartTime    time.Time              `json:"start_time"`
	CreatedBy    string                 `json:"created_by"`
	CreatedAt    time.Time              `json:"created_at"`
}

// BuildStateResponse 当前状态与最近历史
type BuildStateResponse struct {
	BuildID      int64           `json:"build_id"`
	CurrentState *StateRef       `json:"current_state"`
	Status       string          `json:"status"`
	Version      int64           `json:"version"`
	History      []*HistoryEntry `json:"history"`
}

// BuildFailureCreateRequest 登记带外失败
type BuildFailureCreateRequest struct {
	StateCodeID  *int64                 `json:"state_code_id" binding:"omitempty,min=1"` // 为空时取构建当前状态
	ErrorMessage string                 `json:"error_message" binding:"required"`
	ErrorCode    *string                `json:"error_code" binding:"omitempty,max=100"`
	Source       *string                `json:"source" binding:"omitempty,max=100"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// BuildFailureListRequest 失败记录列表
type BuildFailureListRequest struct {
	UnresolvedOnly bool `form:"unresolved_only"`
}

// NewStateRef 状态码转引用
func NewStateRef(sc *model.StateCode) *StateRef {
	if sc == nil {
		return nil
	}
	return &StateRef{ID: sc.ID, Name: sc.Name, Code: sc.Code}
}

// NewBuildResponse 构建转响应
func NewBuildResponse(b *model.Build) *BuildResponse {
	return &BuildResponse{
		ID:           b.ID,
		ProjectID:    b.ProjectID,
		PlatformID:   b.PlatformID,
		OSVersionID:  b.OSVersionID,
		ImageTypeID:  b.ImageTypeID,
		Description:  b.Description,
		CurrentState: NewStateRef(b.CurrentStateCode),
		Status:       b.Status,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Version:      b.Version,
		Metadata:     b.Metadata,
		CreatedBy:    b.CreatedBy,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// NewHistoryEntry 历史行转响应
func NewHistoryEntry(s *model.BuildState) *HistoryEntry {
	return &HistoryEntry{
		ID:           s.ID,
		BuildID:      s.BuildID,
		State:        NewStateRef(s.StateCode),
		Status:       s.Status,
		Message:      s.Message,
		ErrorMessage: s.ErrorMessage,
		ErrorCode:    s.ErrorCode,
		Metadata:     s.Metadata,
		StartTime:    s.StartTime,
		CreatedBy:    s.CreatedBy,
		CreatedAt:    s.CreatedAt,
	}
}
