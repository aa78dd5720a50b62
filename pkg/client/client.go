// Package client 构建状态服务的 HTTP 客户端, 供 bldst 命令行和流水线脚本使用
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"buildstate/internal/core/resume"
	"buildstate/internal/dto"
	"buildstate/internal/model"
)

const apiPrefix = "/api/v1"

// Client 构建状态API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	token      string
}

// Option 客户端选项
type Option func(*Client)

// WithAPIKey 使用 X-API-Key 认证
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithToken 使用 Bearer token 认证
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient 自定义底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL 服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Error 服务端返回的错误
type Error struct {
	Status  int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// envelope 统一响应结构, data 延迟解码
type envelope struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil
	}

	// 健康检查等接口不走统一响应结构
	if !strings.HasPrefix(path, apiPrefix) {
		return json.Unmarshal(raw, out)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func buildPath(id int64, parts ...string) string {
	p := apiPrefix + "/builds/" + strconv.FormatInt(id, 10)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Health 存活检查
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// Ready 就绪检查
func (c *Client) Ready(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := c.do(ctx, http.MethodGet, "/ready", nil, nil, &out)
	return out, err
}

// CreateBuild 创建构建
func (c *Client) CreateBuild(ctx context.Context, req *dto.BuildCreateRequest) (*dto.BuildResponse, error) {
	out := &dto.BuildResponse{}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/builds", nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildPage 构建分页结果
type BuildPage struct {
	Items    []*dto.BuildResponse `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// ListBuilds 构建列表, query 透传给服务端
func (c *Client) ListBuilds(ctx context.Context, query url.Values) (*BuildPage, error) {
	out := &BuildPage{}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/builds", query, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBuild 构建详情
func (c *Client) GetBuild(ctx context.Context, id int64) (*dto.BuildResponse, error) {
	out := &dto.BuildResponse{}
	if err := c.do(ctx, http.MethodGet, buildPath(id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetState 当前状态与历史
func (c *Client) GetState(ctx context.Context, id int64) (*dto.BuildStateResponse, error) {
	out := &dto.BuildStateResponse{}
	if err := c.do(ctx, http.MethodGet, buildPath(id, "state"), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition 状态流转
func (c *Client) Transition(ctx context.Context, id int64, req *dto.TransitionRequest) (*dto.BuildStateResponse, error) {
	out := &dto.BuildStateResponse{}
	if err := c.do(ctx, http.MethodPost, buildPath(id, "state"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordFailure 标记构建失败
func (c *Client) RecordFailure(ctx context.Context, id int64, req *dto.FailureRequest) (*dto.BuildStateResponse, error) {
	out := &dto.BuildStateResponse{}
	if err := c.do(ctx, http.MethodPost, buildPath(id, "failure"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// History 状态历史
func (c *Client) History(ctx context.Context, id int64) ([]*dto.HistoryEntry, error) {
	var out []*dto.HistoryEntry
	err := c.do(ctx, http.MethodGet, buildPath(id, "history"), nil, nil, &out)
	return out, err
}

// RegisterArtifact 登记产物
func (c *Client) RegisterArtifact(ctx context.Context, buildID int64, req *dto.ArtifactCreateRequest) (*model.BuildArtifact, error) {
	out := &model.BuildArtifact{}
	if err := c.do(ctx, http.MethodPost, buildPath(buildID, "artifacts"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListArtifacts 产物列表
func (c *Client) ListArtifacts(ctx context.Context, buildID int64, query url.Values) ([]*model.BuildArtifact, error) {
	var out []*model.BuildArtifact
	err := c.do(ctx, http.MethodGet, buildPath(buildID, "artifacts"), query, nil, &out)
	return out, err
}

// DeleteArtifact 删除产物
func (c *Client) DeleteArtifact(ctx context.Context, buildID, artifactID int64) error {
	return c.do(ctx, http.MethodDelete, buildPath(buildID, "artifacts", strconv.FormatInt(artifactID, 10)), nil, nil, nil)
}

// SetVariable 写入变量
func (c *Client) SetVariable(ctx context.Context, buildID int64, req *dto.VariableSetRequest) (*dto.VariableResponse, error) {
	out := &dto.VariableResponse{}
	if err := c.do(ctx, http.MethodPost, buildPath(buildID, "variables"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVariable 读取单个变量, 敏感值需要管理员权限
func (c *Client) GetVariable(ctx context.Context, buildID int64, key string) (*dto.VariableResponse, error) {
	out := &dto.VariableResponse{}
	if err := c.do(ctx, http.MethodGet, buildPath(buildID, "variables", key), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVariables 变量列表, 敏感值已掩码
func (c *Client) ListVariables(ctx context.Context, buildID int64) ([]*dto.VariableResponse, error) {
	var out []*dto.VariableResponse
	err := c.do(ctx, http.MethodGet, buildPath(buildID, "variables"), nil, nil, &out)
	return out, err
}

// VariableDict 变量字典
func (c *Client) VariableDict(ctx context.Context, buildID int64, requiredForResume bool) (map[string]string, error) {
	query := url.Values{}
	if requiredForResume {
		query.Set("required_for_resume", "true")
	}
	out := map[string]string{}
	err := c.do(ctx, http.MethodGet, buildPath(buildID, "variables", "dict"), query, nil, &out)
	return out, err
}

// ResumeContext 恢复上下文
func (c *Client) ResumeContext(ctx context.Context, buildID int64) (*resume.Context, error) {
	out := &resume.Context{}
	if err := c.do(ctx, http.MethodGet, buildPath(buildID, "resume-context"), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestResume 发起恢复请求
func (c *Client) RequestResume(ctx context.Context, buildID int64, req *dto.ResumeRequestCreateRequest) (*model.ResumeRequest, error) {
	out := &model.ResumeRequest{}
	if err := c.do(ctx, http.MethodPost, buildPath(buildID, "resume"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResumeRequests 构建的恢复请求
func (c *Client) ListResumeRequests(ctx context.Context, buildID int64) ([]*model.ResumeRequest, error) {
	var out []*model.ResumeRequest
	err := c.do(ctx, http.MethodGet, buildPath(buildID, "resume-requests"), nil, nil, &out)
	return out, err
}

// UpdateResumeRequest 编排系统回写恢复请求
func (c *Client) UpdateResumeRequest(ctx context.Context, id int64, req *dto.ResumeRequestUpdateRequest) (*model.ResumeRequest, error) {
	out := &model.ResumeRequest{}
	path := apiPrefix + "/resume-requests/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPatch, path, nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStateCodes 项目状态码
func (c *Client) ListStateCodes(ctx context.Context, projectID int64, includeInactive bool) ([]*model.StateCode, error) {
	query := url.Values{}
	if includeInactive {
		query.Set("include_inactive", "true")
	}
	var out []*model.StateCode
	path := apiPrefix + "/projects/" + strconv.FormatInt(projectID, 10) + "/state-codes"
	err := c.do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

// CreateStateCode 创建状态码
func (c *Client) CreateStateCode(ctx context.Context, projectID int64, req *dto.StateCodeCreateRequest) (*model.StateCode, error) {
	out := &model.StateCode{}
	path := apiPrefix + "/projects/" + strconv.FormatInt(projectID, 10) + "/state-codes"
	if err := c.do(ctx, http.MethodPost, path, nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
