package dto

import (
	"time"

	"buildstate/internal/model"
)

// VariableSetRequest 写入变量(upsert)
type VariableSetRequest struct {
	VariableKey         string `json:"variable_key" binding:"required,max=255,variable_key"`
	VariableValue       string `json:"variable_value"`
	VariableType        string `json:"variable_type" binding:"omitempty,oneof=string number boolean json"`
	SetAtState          *int   `json:"set_at_state" binding:"omitempty,gte=0"`
	IsSensitive         bool   `json:"is_sensitive"`
	IsRequiredForResume bool   `json:"is_required_for_resume"`
}

// VariableUpdateRequest 部分更新变量
type VariableUpdateRequest struct {
	VariableValue       *string `json:"variable_value"`
	VariableType        *string `json:"variable_type" binding:"omitempty,oneof=string number boolean json"`
	SetAtState          *int    `json:"set_at_state" binding:"omitempty,gte=0"`
	IsSensitive         *bool   `json:"is_sensitive"`
	IsRequiredForResume *bool   `json:"is_required_for_resume"`
}

// VariableDictRequest 变量字典投影
type VariableDictRequest struct {
	RequiredForResume *bool `form:"required_for_resume"`
}

// VariableResponse 变量视图, 敏感值由调用方决定是否掩码
type VariableResponse struct {
	ID                  int64     `json:"id"`
	BuildID             int64     `json:"build_id"`
	VariableKey         string    `json:"variable_key"`
	VariableValue       string    `json:"variable_value"`
	VariableType        string    `json:"variable_type"`
	SetAtState          *int      `json:"set_at_state"`
	IsSensitive         bool      `json:"is_sensitive"`
	IsRequiredForResume bool      `json:"is_required_for_resume"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewVariableResponse 变量转响应, value 为已处理(掩码或明文)的值
func NewVariableResponse(v *model.BuildVariable, value string) *VariableResponse {
	return &VariableResponse{
		ID:                  v.ID,
		BuildID:             v.BuildID,
		VariableKey:         v.VariableKey,
		VariableValue:       value,
		VariableType:        v.VariableType,
		SetAtState:          v.SetAtState,
		IsSensitive:         v.IsSensitive,
		IsRequiredForResume: v.IsRequiredForResume,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}
