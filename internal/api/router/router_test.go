package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildstate/internal/pkg/config"
	"buildstate/internal/testutil"
	"buildstate/pkg/responses"
)

const (
	adminKey  = "admin-key"
	writerKey = "ci-key"
	readerKey = "viewer-key"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Auth: config.AuthConfig{
			JWT: config.JWTConfig{Secret: "test", AccessTokenExpire: 60, RefreshTokenExpire: 120},
			APIKeys: []config.APIKeyConfig{
				{Key: adminKey, Name: "admin", Scopes: []string{"admin"}},
				{Key: writerKey, Name: "ci", Scopes: []string{"write"}},
				{Key: readerKey, Name: "viewer", Scopes: []string{"read"}},
			},
		},
		Policy: config.PolicyConfig{StateStep: 5, MaxState: 100},
	}
}

type api struct {
	t         *testing.T
	engine    *gin.Engine
	projectID int64
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := testConfig()
	db := testutil.NewDB(t)
	seed := testutil.SeedProject(t, db, "rhel-images")

	svc, err := NewServices(cfg, db, zap.NewNop())
	require.NoError(t, err)
	return &api{t: t, engine: Setup(cfg, db, svc), projectID: seed.Project.ID}
}

// call 发起请求, 返回状态码和解码后的统一响应
func (a *api) call(method, path, key string, body interface{}) (int, *responses.Response) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	resp := &responses.Response{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), resp), w.Body.String())
	}
	return w.Code, resp
}

func dataID(t *testing.T, resp *responses.Response) int64 {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data: %#v", resp.Data)
	return int64(data["id"].(float64))
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		a.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t)

	code, resp := a.call(http.MethodGet, "/api/v1/builds", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", resp.Kind)

	code, _ = a.call(http.MethodGet, "/api/v1/builds", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.call(http.MethodGet, "/api/v1/builds", readerKey, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPermissions(t *testing.T) {
	a := newAPI(t)
	create := map[string]interface{}{"project_id": a.projectID}

	code, resp := a.call(http.MethodPost, "/api/v1/builds", readerKey, create)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", resp.Kind)

	code, resp = a.call(http.MethodPost, "/api/v1/builds", writerKey, create)
	require.Equal(t, http.StatusCreated, code)
	buildID := dataID(t, resp)

	code, resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/builds/%d/artifacts", buildID), writerKey, map[string]interface{}{
		"state_code": 0, "artifact_name": "seed", "artifact_type": "snapshot",
	})
	require.Equal(t, http.StatusCreated, code)
	artifactID := dataID(t, resp)

	// 删除产物和目录数据需要 admin
	path := fmt.Sprintf("/api/v1/builds/%d/artifacts/%d", buildID, artifactID)
	code, _ = a.call(http.MethodDelete, path, writerKey, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodDelete, path, adminKey, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = a.call(http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", a.projectID), writerKey, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)

	code, resp := a.call(http.MethodPost, "/api/v1/builds", writerKey, map[string]interface{}{"project_id": 999})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Kind)

	code, resp = a.call(http.MethodPost, "/api/v1/builds", writerKey, map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_argument", resp.Kind)

	code, _ = a.call(http.MethodGet, "/api/v1/builds/abc", readerKey, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/state-codes", a.projectID), writerKey,
		map[string]interface{}{"name": "Packer Running", "code": 40})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Detail, "field 'name'")

	code, resp = a.call(http.MethodPost, "/api/v1/builds", writerKey, map[string]interface{}{"project_id": a.projectID})
	require.Equal(t, http.StatusCreated, code)
	statePath := fmt.Sprintf("/api/v1/builds/%d/state", dataID(t, resp))

	code, resp = a.call(http.MethodPost, statePath, writerKey, map[string]interface{}{"state_name": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_state", resp.Kind)

	code, resp = a.call(http.MethodPost, statePath, writerKey, map[string]interface{}{"state_name": "packer-running", "expected_version": 7})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Kind)

	code, _ = a.call(http.MethodPost, statePath, writerKey, map[string]interface{}{"state_name": "done", "expected_version": 1})
	require.Equal(t, http.StatusOK, code)

	code, resp = a.call(http.MethodPost, statePath, writerKey, map[string]interface{}{"state_name": "publish"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_state", resp.Kind)
}

func TestSensitiveVariableOverHTTP(t *testing.T) {
	a := newAPI(t)

	_, resp := a.call(http.MethodPost, "/api/v1/builds", writerKey, map[string]interface{}{"project_id": a.projectID})
	buildID := dataID(t, resp)
	base := fmt.Sprintf("/api/v1/builds/%d/variables", buildID)

	code, resp := a.call(http.MethodPost, base, writerKey, map[string]interface{}{
		"variable_key": "admin_password", "variable_value": "hunter2", "is_sensitive": true,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "******", resp.Data.(map[string]interface{})["variable_value"])

	code, _ = a.call(http.MethodGet, base+"/admin_password", writerKey, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.call(http.MethodGet, base+"/admin_password", adminKey, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hunter2", resp.Data.(map[string]interface{})["variable_value"])

	code, resp = a.call(http.MethodGet, base+"/dict", readerKey, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"admin_password": "******"}, resp.Data)
}
