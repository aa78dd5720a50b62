package dto

// StateCodeCreateRequest 创建状态码
type StateCodeCreateRequest struct {
	Name        string  `json:"name" binding:"required,max=100,state_name"`
	Code        int     `json:"code" binding:"gte=0"`
	Description *string `json:"description"`
	IsInitial   bool    `json:"is_initial"`
	IsFinal     bool    `json:"is_final"`
	IsError     bool    `json:"is_error"`
}

// StateCodeUpdateRequest 更新状态码, 仅更新非空字段
type StateCodeUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100,state_name"`
	Code        *int    `json:"code" binding:"omitempty,gte=0"`
	Description *string `json:"description"`
	IsInitial   *bool   `json:"is_initial"`
	IsFinal     *bool   `json:"is_final"`
	IsError     *bool   `json:"is_error"`
}

// StateCodeListRequest 状态码列表
type StateCodeListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}
