package constants

// BuildStatus 构建状态
const (
	BuildStatusRunning   = "running"
	BuildStatusCompleted = "completed"
	BuildStatusFailed    = "failed"
)

// BuildStateStatus 状态历史条目状态
const (
	StateStatusRunning   = "running"
	StateStatusCompleted = "completed"
	StateStatusFailed    = "failed"
	StateStatusError     = "error"
)

// ResumeStrategy 恢复策略
const (
	ResumeStrategyFromArtifact = "from_artifact"
	ResumeStrategyRerunState   = "rerun_state"
	ResumeStrategySkipToNext   = "skip_to_next"
)

// OrchestrationStatus 恢复请求编排状态
const (
	OrchestrationPending   = "pending"
	OrchestrationTriggered = "triggered"
	OrchestrationRunning   = "running"
	OrchestrationCompleted = "completed"
	OrchestrationFailed    = "failed"
)

// JobStatus CI任务状态
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
	JobStatusAborted   = "aborted"
)

// VariableType 变量类型
const (
	VariableTypeString  = "string"
	VariableTypeNumber  = "number"
	VariableTypeBoolean = "boolean"
	VariableTypeJSON    = "json"
)

// MaskedValue 敏感变量在任何列表/上下文视图中的替代值
const MaskedValue = "******"

// 认证类型
const (
	AuthTypeLDAP  = "idm"
	AuthTypeLocal = "local"
)

// 权限范围, read < write < admin
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// JWT 相关
const (
	JWTContextKey  = "jwt_user"
	JWTTypeAccess  = "access"
	JWTTypeRefresh = "refresh"
)

// 上下文键
const (
	ContextKeyPrincipal = "principal"
	ContextKeyRequestID = "request_id"
)

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
	HeaderAPIKey        = "X-API-Key"
	HeaderRequestID     = "X-Request-ID"
)

// APITokenPrefix 用户API Token前缀, 便于识别
const APITokenPrefix = "bst_"
