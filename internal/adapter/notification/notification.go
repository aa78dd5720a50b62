package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"buildstate/internal/model"
	"buildstate/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyBuildStarted    NotificationType = "build_started"    // 构建开始
	NotifyStateTransition NotificationType = "state_transition" // 状态转换
	NotifyBuildCompleted  NotificationType = "build_completed"  // 构建完成
	NotifyBuildFailed     NotificationType = "build_failed"     // 构建失败
	NotifyResumeRequested NotificationType = "resume_requested" // 请求恢复
	NotifyBuildReopened   NotificationType = "build_reopened"   // 恢复执行, 构建重新打开
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// BuildEvent 构建事件
type BuildEvent struct {
	Build     *model.Build
	FromState string
	ToState   string
	Operator  string
	Message   string
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error

	// SendBuildNotification 发送构建通知
	SendBuildNotification(ctx context.Context, notifyType NotificationType, event *BuildEvent) error

	// SendResumeNotification 发送恢复请求通知
	SendResumeNotification(ctx context.Context, req *model.ResumeRequest, message string) error
}

// New 按配置创建通知器, 未启用时只记录日志
func New(cfg config.NotificationConfig, logger *zap.Logger) Notifier {
	logNotifier := NewLogNotifier(logger)
	if !cfg.Enabled {
		return logNotifier
	}
	switch cfg.Provider {
	case "lark":
		return NewMultiNotifier(logger, logNotifier, NewLarkNotifier(cfg.LarkWebhook, true, logger))
	default:
		return logNotifier
	}
}

func buildTitle(notifyType NotificationType) (string, string) {
	switch notifyType {
	case NotifyBuildStarted:
		return "🚀 构建开始", "blue"
	case NotifyBuildCompleted:
		return "✅ 构建完成", "green"
	case NotifyBuildFailed:
		return "❌ 构建失败", "red"
	case NotifyBuildReopened:
		return "🔁 构建恢复执行", "orange"
	case NotifyStateTransition:
		return "🔄 状态变更", "blue"
	default:
		return "📢 构建通知", "grey"
	}
}

// buildMessage 构建事件转为通知消息
func buildMessage(notifyType NotificationType, event *BuildEvent) *NotificationMessage {
	title, color := buildTitle(notifyType)

	content := fmt.Sprintf("**构建ID**: %d\n**项目ID**: %d\n**状态**: %s → %s\n**操作人**: %s",
		event.Build.ID, event.Build.ProjectID, event.FromState, event.ToState, event.Operator)
	if event.Message != "" {
		content += fmt.Sprintf("\n**消息**: %s", event.Message)
	}

	return &NotificationMessage{
		Type:      notifyType,
		Title:     title,
		Content:   content,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"build_id":   event.Build.ID,
			"project_id": event.Build.ProjectID,
			"status":     event.Build.Status,
			"from_state": event.FromState,
			"to_state":   event.ToState,
			"color":      color,
		},
	}
}

func resumeMessage(req *model.ResumeRequest, message string) *NotificationMessage {
	content := fmt.Sprintf("**构建ID**: %d\n**恢复起点**: %d\n**申请人**: %s\n**编排状态**: %s",
		req.BuildID, req.ResumeFromState, req.RequestedBy, req.OrchestrationStatus)
	if req.ResumeReason != nil {
		content += fmt.Sprintf("\n**原因**: %s", *req.ResumeReason)
	}
	if message != "" {
		content += fmt.Sprintf("\n**消息**: %s", message)
	}

	return &NotificationMessage{
		Type:      NotifyResumeRequested,
		Title:     "⏯ 构建恢复请求",
		Content:   content,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"build_id":          req.BuildID,
			"resume_request_id": req.ID,
			"resume_from_state": req.ResumeFromState,
			"color":             "orange",
		},
	}
}

// ============= Lark 通知适配器 =============

// LarkNotifier Lark通知器
type LarkNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewLarkNotifier 创建Lark通知器
func NewLarkNotifier(webhookURL string, enabled bool, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 发送通知
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Lark Webhook URL未配置")
		return nil
	}

	jsonData, err := json.Marshal(n.buildLarkMessage(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Lark API返回错误状态码: %d", resp.StatusCode)
	}

	n.logger.Info("Lark通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title))

	return nil
}

// SendBuildNotification 发送构建通知
func (n *LarkNotifier) SendBuildNotification(ctx context.Context, notifyType NotificationType, event *BuildEvent) error {
	return n.Send(ctx, buildMessage(notifyType, event))
}

// SendResumeNotification 发送恢复请求通知
func (n *LarkNotifier) SendResumeNotification(ctx context.Context, req *model.ResumeRequest, message string) error {
	return n.Send(ctx, resumeMessage(req, message))
}

// buildLarkMessage 构建Lark消息格式
func (n *LarkNotifier) buildLarkMessage(msg *NotificationMessage) map[string]interface{} {
	color := "grey"
	if c, ok := msg.Extra["color"].(string); ok {
		color = c
	}

	// Lark卡片消息格式
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": color,
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "lark_md",
						"content": msg.Content,
					},
				},
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "plain_text",
						"content": fmt.Sprintf("时间: %s", msg.Timestamp.Format("2006-01-02 15:04:05")),
					},
				},
			},
		},
	}
}

// ============= 多通知器 =============

// MultiNotifier 多通知器(支持同时发送到多个渠道)
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Send 发送到所有通知器
func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("发送通知失败", zap.Error(err))
			lastErr = err
			// 继续发送其他通知器
		}
	}
	return lastErr
}

// SendBuildNotification 发送构建通知到所有通知器
func (m *MultiNotifier) SendBuildNotification(ctx context.Context, notifyType NotificationType, event *BuildEvent) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.SendBuildNotification(ctx, notifyType, event); err != nil {
			m.logger.Error("发送构建通知失败", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// SendResumeNotification 发送恢复请求通知到所有通知器
func (m *MultiNotifier) SendResumeNotification(ctx context.Context, req *model.ResumeRequest, message string) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.SendResumeNotification(ctx, req, message); err != nil {
			m.logger.Error("发送恢复请求通知失败", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ============= 日志通知器(仅记录日志,不发送实际通知) =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send 记录通知到日志
func (n *LogNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	n.logger.Info("📢 通知",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content),
		zap.Any("extra", msg.Extra))
	return nil
}

// SendBuildNotification 记录构建通知到日志
func (n *LogNotifier) SendBuildNotification(ctx context.Context, notifyType NotificationType, event *BuildEvent) error {
	n.logger.Info("📢 构建通知",
		zap.String("type", string(notifyType)),
		zap.Int64("build_id", event.Build.ID),
		zap.String("status", event.Build.Status),
		zap.String("from_state", event.FromState),
		zap.String("to_state", event.ToState),
		zap.String("operator", event.Operator),
		zap.String("message", event.Message))
	return nil
}

// SendResumeNotification 记录恢复请求通知到日志
func (n *LogNotifier) SendResumeNotification(ctx context.Context, req *model.ResumeRequest, message string) error {
	n.logger.Info("📢 恢复请求通知",
		zap.Int64("build_id", req.BuildID),
		zap.Int64("resume_request_id", req.ID),
		zap.Int("resume_from_state", req.ResumeFromState),
		zap.String("requested_by", req.RequestedBy),
		zap.String("message", message))
	return nil
}
