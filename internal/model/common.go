package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// BaseModelWithSoftDelete 软删除基础模型, 删除的行对所有读路径不可见但永不物理删除
type BaseModelWithSoftDelete struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Project{},
		&Platform{},
		&OSVersion{},
		&ImageType{},
		&StateCode{},
		&Build{},
		&BuildState{},
		&BuildFailure{},
		&BuildArtifact{},
		&BuildVariable{},
		&ResumableState{},
		&ResumeRequest{},
		&BuildJob{},
		&User{},
		&APIToken{},
	}
}
