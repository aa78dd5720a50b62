package model

import (
	"time"

	"gorm.io/datatypes"
)

// ResumableState 项目级恢复策略, (project_id, state_code) 唯一
type ResumableState struct {
	BaseModel
	ProjectID            int64                       `gorm:"not null;uniqueIndex:uk_project_resumable_state" json:"project_id"`
	StateCode            int                         `gorm:"not null;uniqueIndex:uk_project_resumable_state" json:"state_code"`
	IsResumable          bool                        `gorm:"not null" json:"is_resumable"`
	ResumeStrategy       string                      `gorm:"size:50;not null" json:"resume_strategy"` // from_artifact/rerun_state/skip_to_next
	RequiredArtifacts    datatypes.JSONSlice[string] `json:"required_artifacts"`
	RequiredVariables    datatypes.JSONSlice[string] `json:"required_variables"`
	ResumeCommand        *string                     `gorm:"type:text" json:"resume_command"`
	ResumeTimeoutSeconds *int                        `json:"resume_timeout_seconds"`
	Description          *string                     `gorm:"type:text" json:"description"`
	Notes                *string                     `gorm:"type:text" json:"notes"`
}

func (ResumableState) TableName() string {
	return "resumable_states"
}

// ResumeRequest 恢复请求, 由外部编排系统推进 orchestration_status, 不删除
type ResumeRequest struct {
	BaseModel
	BuildID         int64   `gorm:"not null;index" json:"build_id"`
	ResumeFromState int     `gorm:"not null" json:"resume_from_state"`
	ResumeToState   *int    `json:"resume_to_state"`
	ResumeReason    *string `gorm:"type:text" json:"resume_reason"`
	RequestedBy     string  `gorm:"size:100;not null" json:"requested_by"`
	RequestSource   *string `gorm:"size:50" json:"request_source"` // manual/api/auto_retry/orchestrator

	OrchestrationJobID  *string    `gorm:"size:255" json:"orchestration_job_id"`
	OrchestrationJobURL *string    `gorm:"size:1000" json:"orchestration_job_url"`
	OrchestrationStatus string     `gorm:"size:20;not null;index" json:"orchestration_status"` // pending/triggered/running/completed/failed
	TriggeredAt         *time.Time `json:"triggered_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	ErrorMessage        *string    `gorm:"type:text" json:"error_message"`

	Metadata datatypes.JSONMap `json:"metadata"`
}

func (ResumeRequest) TableName() string {
	return "resume_requests"
}

// BuildJob 外部 CI/CD 任务关联记录
type BuildJob struct {
	BaseModel
	BuildID          int64      `gorm:"not null;index" json:"build_id"`
	Platform         string     `gorm:"size:50;not null" json:"platform"` // concourse/jenkins/github_actions/gitlab_ci
	PipelineName     *string    `gorm:"size:255" json:"pipeline_name"`
	JobName          *string    `gorm:"size:255" json:"job_name"`
	JobURL           *string    `gorm:"size:1000" json:"job_url"`
	JobID            *string    `gorm:"size:255" json:"job_id"`
	BuildNumber      *int       `json:"build_number"`
	TriggeredBy      *string    `gorm:"size:100" json:"triggered_by"`
	TriggerSource    *string    `gorm:"size:50" json:"trigger_source"`
	Status           string     `gorm:"size:20;not null" json:"status"`
	IsResumeJob      bool       `gorm:"not null" json:"is_resume_job"`
	ResumedFromState *int       `json:"resumed_from_state"`
	ParentJobID      *int64     `json:"parent_job_id"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

func (BuildJob) TableName() string {
	return "build_jobs"
}
