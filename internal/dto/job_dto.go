package dto

import "time"

// BuildJobCreateRequest 登记CI任务
type BuildJobCreateRequest struct {
	Platform         string     `json:"platform" binding:"required,max=50"`
	PipelineName     *string    `json:"pipeline_name" binding:"omitempty,max=255"`
	JobName          *string    `json:"job_name" binding:"omitempty,max=255"`
	JobURL           *string    `json:"job_url" binding:"omitempty,max=1000"`
	JobID            *string    `json:"job_id" binding:"omitempty,max=255"`
	BuildNumber      *int       `json:"build_number"`
	TriggeredBy      *string    `json:"triggered_by" binding:"omitempty,max=100"`
	TriggerSource    *string    `json:"trigger_source" binding:"omitempty,max=50"`
	Status           string     `json:"status" binding:"omitempty,oneof=pending running succeeded failed aborted"`
	IsResumeJob      bool       `json:"is_resume_job"`
	ResumedFromState *int       `json:"resumed_from_state" binding:"omitempty,gte=0"`
	ParentJobID      *int64     `json:"parent_job_id" binding:"omitempty,min=1"`
	StartedAt        *time.Time `json:"started_at"`
}

// BuildJobUpdateRequest 更新CI任务
type BuildJobUpdateRequest struct {
	JobURL      *string    `json:"job_url" binding:"omitempty,max=1000"`
	JobID       *string    `json:"job_id" binding:"omitempty,max=255"`
	BuildNumber *int       `json:"build_number"`
	Status      *string    `json:"status" binding:"omitempty,oneof=pending running succeeded failed aborted"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
