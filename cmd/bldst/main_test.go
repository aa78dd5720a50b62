package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"buildstate/internal/api/router"
	"buildstate/internal/pkg/config"
	"buildstate/internal/testutil"
)

func startServer(t *testing.T) (string, int64) {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Auth: config.AuthConfig{
			JWT:     config.JWTConfig{Secret: "test", AccessTokenExpire: 60},
			APIKeys: []config.APIKeyConfig{{Key: "ci-key", Name: "ci", Scopes: []string{"write"}}},
		},
	}
	db := testutil.NewDB(t)
	seed := testutil.SeedProject(t, db, "linux-images")
	svc, err := router.NewServices(cfg, db, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(router.Setup(cfg, db, svc))
	t.Cleanup(srv.Close)
	return srv.URL, seed.Project.ID
}

// run 执行一条命令, 返回标准输出
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildCommands(t *testing.T) {
	url, projectID := startServer(t)
	common := []string{"--url", url, "--api-key", "ci-key"}

	out, err := run(t, append(common, "build", "create", "--project", fmt.Sprint(projectID), "-o", "json")...)
	require.NoError(t, err)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	id := fmt.Sprint(int64(created["id"].(float64)))

	out, err = run(t, append(common, "build", "transition", id, "packer-running", "-m", "packer started")...)
	require.NoError(t, err)
	assert.Contains(t, out, "packer-running")

	_, err = run(t, append(common, "artifact", "register", id, "vm-snapshot", "--state", "10", "--type", "snapshot", "--resumable")...)
	require.NoError(t, err)

	_, err = run(t, append(common, "variable", "set", id, "password", "hunter2", "--sensitive")...)
	require.NoError(t, err)

	_, err = run(t, append(common, "build", "fail", id, "-e", "packer timeout")...)
	require.NoError(t, err)

	out, err = run(t, append(common, "resume", "context", id, "-o", "yaml")...)
	require.NoError(t, err)
	var rc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &rc))
	from := rc["resume_from_state"].(map[string]interface{})
	assert.Equal(t, "packer-running", from["name"])
	assert.Equal(t, map[string]interface{}{"password": "******"}, rc["variables"])

	out, err = run(t, append(common, "build", "list", "--status", "failed")...)
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestCommandErrors(t *testing.T) {
	url, _ := startServer(t)

	_, err := run(t, "build", "get", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")

	_, err = run(t, "--url", url, "build", "get", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = run(t, "--url", url, "--api-key", "ci-key", "build", "get", "abc")
	require.Error(t, err)

	_, err = run(t, "--url", url, "--api-key", "ci-key", "-o", "xml", "health")
	require.Error(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bldst.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: http://builds.internal\napi_key: abcdefgh1234\n"), 0o600))

	out, err := run(t, "--config", path, "config", "show", "-o", "json")
	require.NoError(t, err)
	var settings map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, "http://builds.internal", settings["url"])
	assert.Equal(t, "****1234", settings["api_key"])
	assert.Equal(t, path, settings["config"])

	_, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "show")
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.True(t, strings.HasSuffix(maskSecret("secret-value"), "alue"))
}
