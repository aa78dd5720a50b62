package dto

import "time"

// ArtifactCreateRequest 登记产物
type ArtifactCreateRequest struct {
	StateCode    *int   `json:"state_code" binding:"required,gte=0"`
	ArtifactName string `json:"artifact_name" binding:"required,max=255"`
	ArtifactType string `json:"artifact_type" binding:"required,max=50"`

	ArtifactPath   *string `json:"artifact_path" binding:"omitempty,max=1000"`
	StorageBackend *string `json:"storage_backend" binding:"omitempty,oneof=s3 azure_blob gcs local"`
	StorageRegion  *string `json:"storage_region" binding:"omitempty,max=50"`
	StorageBucket  *string `json:"storage_bucket" binding:"omitempty,max=255"`
	StorageKey     *string `json:"storage_key" binding:"omitempty,max=1000"`

	SizeBytes         *int64  `json:"size_bytes" binding:"omitempty,gte=0"`
	Checksum          *string `json:"checksum" binding:"omitempty,max=255"`
	ChecksumAlgorithm *string `json:"checksum_algorithm" binding:"omitempty,oneof=md5 sha1 sha256 sha512"`

	IsResumable bool       `json:"is_resumable"`
	IsFinal     bool       `json:"is_final"`
	ExpiresAt   *time.Time `json:"expires_at"`

	Metadata map[string]interface{} `json:"metadata"`
}

// ArtifactUpdateRequest 更新产物, 仅更新非空字段
type ArtifactUpdateRequest struct {
	ArtifactName *string `json:"artifact_name" binding:"omitempty,max=255"`
	ArtifactType *string `json:"artifact_type" binding:"omitempty,max=50"`

	ArtifactPath   *string `json:"artifact_path" binding:"omitempty,max=1000"`
	StorageBackend *string `json:"storage_backend" binding:"omitempty,oneof=s3 azure_blob gcs local"`
	StorageRegion  *string `json:"storage_region" binding:"omitempty,max=50"`
	StorageBucket  *string `json:"storage_bucket" binding:"omitempty,max=255"`
	StorageKey     *string `json:"storage_key" binding:"omitempty,max=1000"`

	SizeBytes         *int64  `json:"size_bytes" binding:"omitempty,gte=0"`
	Checksum          *string `json:"checksum" binding:"omitempty,max=255"`
	ChecksumAlgorithm *string `json:"checksum_algorithm" binding:"omitempty,oneof=md5 sha1 sha256 sha512"`

	IsResumable *bool      `json:"is_resumable"`
	IsFinal     *bool      `json:"is_final"`
	ExpiresAt   *time.Time `json:"expires_at"`

	Metadata map[string]interface{} `json:"metadata"`
}

// ArtifactListRequest 产物列表筛选
type ArtifactListRequest struct {
	StateCode    *int   `form:"state_code"`
	ArtifactType string `form:"artifact_type"`
	IsResumable  *bool  `form:"is_resumable"`
	IsFinal      *bool  `form:"is_final"`
}
