package model

import (
	"time"

	"gorm.io/datatypes"
)

const BuildTableName = "builds"

// Build 镜像构建记录
//
// end_time 非空 <=> status 为 completed/failed; 终态构建只能通过恢复请求重新打开。
// version 为乐观锁版本号, 每次状态写入 +1。
type Build struct {
	BaseModel
	ProjectID   int64  `gorm:"not null;index" json:"project_id"`
	PlatformID  *int64 `gorm:"index" json:"platform_id"`
	OSVersionID *int64 `gorm:"column:os_version_id" json:"os_version_id"`
	ImageTypeID *int64 `json:"image_type_id"`

	Description *string `gorm:"type:text" json:"description"`

	CurrentStateCodeID int64      `gorm:"not null;index" json:"current_state_code_id"`
	Status             string     `gorm:"size:20;not null;index" json:"status"` // running/completed/failed
	StartTime          time.Time  `gorm:"not null" json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	Version            int64      `gorm:"not null;default:1" json:"version"`
	CreatedBy          string     `gorm:"size:100" json:"created_by"`

	Metadata datatypes.JSONMap `json:"metadata"`

	CurrentStateCode *StateCode `gorm:"foreignKey:CurrentStateCodeID" json:"current_state_code,omitempty"`
	Platform         *Platform  `gorm:"foreignKey:PlatformID" json:"platform,omitempty"`
}

// TableName 指定表名
func (Build) TableName() string {
	return BuildTableName
}

// IsTerminal 是否已结束
func (b *Build) IsTerminal() bool {
	return b.EndTime != nil
}

// BuildState 构建状态流转历史, 仅追加
type BuildState struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildID      int64             `gorm:"not null;index:idx_build_state_build" json:"build_id"`
	StateCodeID  int64             `gorm:"not null" json:"state_code_id"`
	Status       string            `gorm:"size:20;not null" json:"status"` // running/completed/failed/error
	Message      *string           `gorm:"type:text" json:"message"`
	ErrorMessage *string           `gorm:"type:text" json:"error_message"`
	ErrorCode    *string           `gorm:"size:100" json:"error_code"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	StartTime    time.Time         `gorm:"not null" json:"start_time"`
	CreatedAt    time.Time         `gorm:"index:idx_build_state_build" json:"created_at"`
	CreatedBy    string            `gorm:"size:100" json:"created_by"`

	StateCode *StateCode `gorm:"foreignKey:StateCodeID" json:"state_code,omitempty"`
}

func (BuildState) TableName() string {
	return "build_states"
}

// BuildFailure 带外失败记录(例如外部重试逻辑上报), 不推进状态也不改变构建状态
type BuildFailure struct {
	BaseModel
	BuildID      int64             `gorm:"not null;index" json:"build_id"`
	StateCodeID  int64             `gorm:"not null" json:"state_code_id"`
	ErrorMessage string            `gorm:"type:text;not null" json:"error_message"`
	ErrorCode    *string           `gorm:"size:100" json:"error_code"`
	Source       *string           `gorm:"size:100" json:"source"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	Resolved     bool              `gorm:"not null" json:"resolved"`
	ResolvedAt   *time.Time        `json:"resolved_at"`
	ResolvedBy   *string           `gorm:"size:100" json:"resolved_by"`
}

func (BuildFailure) TableName() string {
	return "build_failures"
}
