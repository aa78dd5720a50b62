package model

import "time"

// StateCode 项目内的构建状态定义
//
// 约束:
// - 同一项目内 active(end_time 为空) 的状态名唯一
// - 同一项目内最多一个 active 的 is_initial 状态
// - 不做物理删除, 停用即写入 end_time
type StateCode struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID   int64      `gorm:"not null;index:idx_state_code_project" json:"project_id"`
	Name        string     `gorm:"size:100;not null;index:idx_state_code_project" json:"name"`
	Code        int        `gorm:"not null;default:0" json:"code"` // 数值状态(0-100), 仅用于展示和产物/恢复配置关联
	Description *string    `gorm:"type:text" json:"description"`
	IsInitial   bool       `gorm:"not null" json:"is_initial"`
	IsFinal     bool       `gorm:"not null" json:"is_final"`
	IsError     bool       `gorm:"not null" json:"is_error"`
	StartTime   time.Time  `gorm:"not null" json:"start_time"`
	EndTime     *time.Time `gorm:"index" json:"end_time"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (StateCode) TableName() string {
	return "state_codes"
}

// IsActive 是否处于生效窗口
func (s *StateCode) IsActive() bool {
	return s.EndTime == nil
}
