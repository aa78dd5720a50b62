package dto

// GroupCount 分组统计
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DashboardSummary 看板汇总
type DashboardSummary struct {
	TotalBuilds           int64            `json:"total_builds"`
	ByStatus              map[string]int64 `json:"by_status"`
	ByPlatform            []GroupCount     `json:"by_platform"`
	ByState               []GroupCount     `json:"by_state"`
	PendingResumeRequests int64            `json:"pending_resume_requests"`
	ActiveArtifacts       int64            `json:"active_artifacts"`
}

// RecentRequest 最近变更
type RecentRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
