package dto

// ProjectRequest 创建/更新项目
type ProjectRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
	OwnerName   *string `json:"owner_name" binding:"omitempty,max=100"`
}

// PlatformRequest 创建/更新平台
type PlatformRequest struct {
	Name          string  `json:"name" binding:"required,max=50"`
	CloudProvider string  `json:"cloud_provider" binding:"required,max=50"`
	Region        *string `json:"region" binding:"omitempty,max=50"`
	Description   *string `json:"description"`
}

// OSVersionRequest 创建/更新系统版本
type OSVersionRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Version     string  `json:"version" binding:"required,max=50"`
	Description *string `json:"description"`
}

// ImageTypeRequest 创建/更新镜像类型
type ImageTypeRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Description *string `json:"description"`
}
