package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别, 决定 HTTP 状态码
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalidState    Kind = "invalid_state"
	KindInvalidArgument Kind = "invalid_argument"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindInternal        Kind = "internal"
)

// 错误码(与HTTP状态码一致)
const (
	CodeSuccess         = http.StatusOK
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeValidationError = http.StatusUnprocessableEntity
	CodeInternalError   = http.StatusInternalServerError
)

var kindCodes = map[Kind]int{
	KindNotFound:        CodeNotFound,
	KindConflict:        CodeConflict,
	KindInvalidState:    CodeBadRequest,
	KindInvalidArgument: CodeValidationError,
	KindUnauthorized:    CodeUnauthorized,
	KindForbidden:       CodeForbidden,
	KindInternal:        CodeInternalError,
}

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同类别的 AppError 视为相等, 支持 errors.Is(err, ErrNotFound)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New 创建新错误
func New(kind Kind, message string) *AppError {
	return &AppError{
		Code:    CodeOf(kind),
		Kind:    kind,
		Message: message,
	}
}

// Newf 创建带格式化消息的错误
func Newf(kind Kind, format string, args ...interface{}) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    CodeOf(kind),
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// CodeOf 类别对应的HTTP状态码
func CodeOf(kind Kind) int {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return CodeInternalError
}

// KindOf 提取错误类别, 非 AppError 视为 internal
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误链中是否包含指定类别
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// 预定义错误
var (
	ErrBadRequest   = New(KindInvalidArgument, "请求参数错误")
	ErrUnauthorized = New(KindUnauthorized, "未授权")
	ErrForbidden    = New(KindForbidden, "禁止访问")
	ErrNotFound     = New(KindNotFound, "资源不存在")
	ErrConflict     = New(KindConflict, "资源冲突")
	ErrInternal     = New(KindInternal, "内部服务器错误")

	ErrInvalidCredentials   = New(KindUnauthorized, "用户名或密码错误")
	ErrLDAPConnectionFailed = New(KindInternal, "LDAP连接失败")
	ErrUserNotFound         = New(KindNotFound, "用户不存在")
	ErrUserDisabled         = New(KindForbidden, "用户已禁用")
	ErrInvalidToken         = New(KindUnauthorized, "无效的Token")
	ErrTokenExpired         = New(KindUnauthorized, "Token已过期")
	ErrRecordNotFound       = New(KindNotFound, "记录不存在")
	ErrRecordExists         = New(KindConflict, "记录已存在")
	ErrBuildTerminal        = New(KindInvalidState, "构建已处于终态")
	ErrVersionConflict      = New(KindConflict, "构建已被并发修改")
)
