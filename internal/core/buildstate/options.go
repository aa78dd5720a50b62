package buildstate

import "buildstate/internal/model"

type TransitionOption func(*TransitionOptions)

type TransitionOptions struct {
	operator        string
	message         string
	metadata        map[string]interface{}
	expectedVersion *int64
	SideEffect      func(b *model.Build)
}

func newOptions(opts []TransitionOption) *TransitionOptions {
	option := &TransitionOptions{}
	for _, opt := range opts {
		opt(option)
	}
	return option
}

// WithOperator 操作人, 写入历史与通知
func WithOperator(operator string) TransitionOption {
	return func(o *TransitionOptions) { o.operator = operator }
}

// WithMessage 历史消息
func WithMessage(message string) TransitionOption {
	return func(o *TransitionOptions) { o.message = message }
}

// WithMetadata 历史附加数据
func WithMetadata(metadata map[string]interface{}) TransitionOption {
	return func(o *TransitionOptions) { o.metadata = metadata }
}

// WithExpectedVersion 调用方持有的版本号, 与库中不一致时返回 Conflict
func WithExpectedVersion(version int64) TransitionOption {
	return func(o *TransitionOptions) { o.expectedVersion = &version }
}

// WithModelEffects 在同一事务中修改构建的其他字段
func WithModelEffects(sideEffects func(b *model.Build)) TransitionOption {
	return func(o *TransitionOptions) { o.SideEffect = sideEffects }
}

// FailureDetail record_failure 的错误信息
type FailureDetail struct {
	ErrorMessage string
	ErrorCode    *string
	Metadata     map[string]interface{}
}
