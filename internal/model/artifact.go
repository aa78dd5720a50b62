package model

import (
	"time"

	"gorm.io/datatypes"
)

// BuildArtifact 构建产物元数据(快照/磁盘镜像/AMI等), 不负责存储本身
//
// 同一构建内未删除产物的 artifact_name 唯一; state_code 为采集时的数值状态, 不是外键。
type BuildArtifact struct {
	BaseModelWithSoftDelete
	BuildID      int64  `gorm:"not null;index:idx_artifact_build" json:"build_id"`
	StateCode    int    `gorm:"not null;index:idx_artifact_build" json:"state_code"`
	ArtifactName string `gorm:"size:255;not null" json:"artifact_name"`
	ArtifactType string `gorm:"size:50;not null" json:"artifact_type"`

	// 位置: 本地路径或 backend+region+bucket+key
	ArtifactPath   *string `gorm:"size:1000" json:"artifact_path"`
	StorageBackend *string `gorm:"size:50" json:"storage_backend"` // s3/azure_blob/gcs/local
	StorageRegion  *string `gorm:"size:50" json:"storage_region"`
	StorageBucket  *string `gorm:"size:255" json:"storage_bucket"`
	StorageKey     *string `gorm:"size:1000" json:"storage_key"`

	SizeBytes         *int64  `json:"size_bytes"`
	Checksum          *string `gorm:"size:255" json:"checksum"`
	ChecksumAlgorithm *string `gorm:"size:20" json:"checksum_algorithm"`

	IsResumable bool       `gorm:"not null;index" json:"is_resumable"`
	IsFinal     bool       `gorm:"not null" json:"is_final"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at"`

	Metadata datatypes.JSONMap `json:"metadata"`
}

func (BuildArtifact) TableName() string {
	return "build_artifacts"
}
