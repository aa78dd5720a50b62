package model

// Project 项目, 拥有状态码与恢复策略目录
type Project struct {
	BaseModelWithSoftDelete
	Name        string  `gorm:"size:100;not null;index" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	OwnerName   *string `gorm:"size:100" json:"owner_name"`
}

func (Project) TableName() string {
	return "projects"
}

// Platform 构建平台(aws/azure/gcp/vsphere...)
type Platform struct {
	BaseModelWithSoftDelete
	Name          string  `gorm:"size:50;not null;index" json:"name"`
	CloudProvider string  `gorm:"size:50;not null" json:"cloud_provider"`
	Region        *string `gorm:"size:50" json:"region"`
	Description   *string `gorm:"type:text" json:"description"`
}

func (Platform) TableName() string {
	return "platforms"
}

// OSVersion 操作系统版本
type OSVersion struct {
	BaseModelWithSoftDelete
	Name        string  `gorm:"size:50;not null;index" json:"name"` // rhel/ubuntu/windows
	Version     string  `gorm:"size:50;not null" json:"version"`
	Description *string `gorm:"type:text" json:"description"`
}

func (OSVersion) TableName() string {
	return "os_versions"
}

// ImageType 镜像类型(base/hardened/app...)
type ImageType struct {
	BaseModelWithSoftDelete
	Name        string  `gorm:"size:50;not null;index" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

func (ImageType) TableName() string {
	return "image_types"
}
