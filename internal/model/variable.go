package model

// BuildVariable 构建上下文变量(VM ID、网络配置等), (build_id, variable_key) 唯一, 写入为 upsert
type BuildVariable struct {
	BaseModel
	BuildID             int64  `gorm:"not null;uniqueIndex:uk_build_variable" json:"build_id"`
	VariableKey         string `gorm:"size:255;not null;uniqueIndex:uk_build_variable" json:"variable_key"`
	VariableValue       string `gorm:"type:text;not null" json:"variable_value"`
	VariableType        string `gorm:"size:20;not null" json:"variable_type"` // string/number/boolean/json
	SetAtState          *int   `json:"set_at_state"`
	IsSensitive         bool   `gorm:"not null" json:"is_sensitive"`
	IsRequiredForResume bool   `gorm:"not null" json:"is_required_for_resume"`
	Encrypted           bool   `gorm:"not null" json:"-"` // 值是否以AES密文存储
}

func (BuildVariable) TableName() string {
	return "build_variables"
}
