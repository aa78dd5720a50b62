package dto

import "time"

// ResumableStateCreateRequest 创建恢复策略
type ResumableStateCreateRequest struct {
	StateCode            *int     `json:"state_code" binding:"required,gte=0"`
	IsResumable          *bool    `json:"is_resumable"` // 默认 true
	ResumeStrategy       string   `json:"resume_strategy" binding:"required,oneof=from_artifact rerun_state skip_to_next"`
	RequiredArtifacts    []string `json:"required_artifacts"`
	RequiredVariables    []string `json:"required_variables"`
	ResumeCommand        *string  `json:"resume_command"`
	ResumeTimeoutSeconds *int     `json:"resume_timeout_seconds" binding:"omitempty,gt=0"`
	Description          *string  `json:"description"`
	Notes                *string  `json:"notes"`
}

// ResumableStateUpdateRequest 更新恢复策略, 仅更新非空字段
type ResumableStateUpdateRequest struct {
	IsResumable          *bool    `json:"is_resumable"`
	ResumeStrategy       *string  `json:"resume_strategy" binding:"omitempty,oneof=from_artifact rerun_state skip_to_next"`
	RequiredArtifacts    []string `json:"required_artifacts"`
	RequiredVariables    []string `json:"required_variables"`
	ResumeCommand        *string  `json:"resume_command"`
	ResumeTimeoutSeconds *int     `json:"resume_timeout_seconds" binding:"omitempty,gt=0"`
	Description          *string  `json:"description"`
	Notes                *string  `json:"notes"`
}

// ResumableStateListRequest 恢复策略列表
type ResumableStateListRequest struct {
	IsResumable *bool `form:"is_resumable"`
}

// ResumeRequestCreateRequest 发起恢复请求
type ResumeRequestCreateRequest struct {
	ResumeFromState *int                   `json:"resume_from_state" binding:"required"`
	ResumeToState   *int                   `json:"resume_to_state"`
	ResumeReason    *string                `json:"resume_reason"`
	RequestSource   *string                `json:"request_source" binding:"omitempty,oneof=manual api auto_retry orchestrator"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// ResumeRequestUpdateRequest 编排系统回写, 只允许修改编排字段
type ResumeRequestUpdateRequest struct {
	OrchestrationJobID  *string    `json:"orchestration_job_id" binding:"omitempty,max=255"`
	OrchestrationJobURL *string    `json:"orchestration_job_url" binding:"omitempty,max=1000"`
	OrchestrationStatus *string    `json:"orchestration_status" binding:"omitempty,oneof=pending triggered running completed failed"`
	TriggeredAt         *time.Time `json:"triggered_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	ErrorMessage        *string    `json:"error_message"`
}

// ResumeRequestListRequest 恢复请求列表
type ResumeRequestListRequest struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending triggered running completed failed"`
}
