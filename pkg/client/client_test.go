package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"buildstate/internal/api/router"
	"buildstate/internal/dto"
	"buildstate/internal/pkg/config"
	"buildstate/internal/testutil"
)

func newServer(t *testing.T) (*httptest.Server, int64) {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Auth: config.AuthConfig{
			JWT: config.JWTConfig{Secret: "test", AccessTokenExpire: 60},
			APIKeys: []config.APIKeyConfig{
				{Key: "ci-key", Name: "ci", Scopes: []string{"write"}},
				{Key: "admin-key", Name: "admin", Scopes: []string{"admin"}},
			},
		},
	}
	db := testutil.NewDB(t)
	seed := testutil.SeedProject(t, db, "windows-images")
	svc, err := router.NewServices(cfg, db, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(router.Setup(cfg, db, svc))
	t.Cleanup(srv.Close)
	return srv, seed.Project.ID
}

func TestClientResumeFlow(t *testing.T) {
	ctx := context.Background()
	srv, projectID := newServer(t)
	c := New(srv.URL+"/", WithAPIKey("ci-key"))
	assert.Equal(t, srv.URL, c.BaseURL())

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health["status"])
	ready, err := c.Ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ready", ready["status"])

	build, err := c.CreateBuild(ctx, &dto.BuildCreateRequest{ProjectID: projectID})
	require.NoError(t, err)
	assert.Equal(t, "init", build.CurrentState.Name)
	assert.Equal(t, "ci", build.CreatedBy)

	state, err := c.Transition(ctx, build.ID, &dto.TransitionRequest{StateName: "packer-running"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.Version)

	_, err = c.RegisterArtifact(ctx, build.ID, &dto.ArtifactCreateRequest{
		StateCode:    lo.ToPtr(10),
		ArtifactName: "vm-snapshot",
		ArtifactType: "snapshot",
		IsResumable:  true,
	})
	require.NoError(t, err)
	_, err = c.SetVariable(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "vm_id", VariableValue: "i-123", IsRequiredForResume: true})
	require.NoError(t, err)
	_, err = c.SetVariable(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "password", VariableValue: "p", IsSensitive: true})
	require.NoError(t, err)

	state, err = c.RecordFailure(ctx, build.ID, &dto.FailureRequest{ErrorMessage: "packer timeout", ExpectedVersion: lo.ToPtr(state.Version)})
	require.NoError(t, err)
	assert.Equal(t, "failed", state.Status)

	rc, err := c.ResumeContext(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, "packer-running", rc.ResumeFromState.Name)
	assert.Equal(t, 10, rc.ResumeFromState.Code)
	require.Len(t, rc.Artifacts, 1)
	assert.Equal(t, "vm-snapshot", rc.Artifacts[0].ArtifactName)
	assert.Equal(t, map[string]string{"vm_id": "i-123", "password": "******"}, rc.Variables)

	dict, err := c.VariableDict(ctx, build.ID, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"vm_id": "i-123"}, dict)

	request, err := c.RequestResume(ctx, build.ID, &dto.ResumeRequestCreateRequest{ResumeFromState: lo.ToPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, "pending", request.OrchestrationStatus)

	_, err = c.UpdateResumeRequest(ctx, request.ID, &dto.ResumeRequestUpdateRequest{OrchestrationStatus: lo.ToPtr("running")})
	require.NoError(t, err)

	got, err := c.GetBuild(ctx, build.ID)
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)

	history, err := c.History(ctx, build.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	page, err := c.ListBuilds(ctx, url.Values{"status": {"running"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	srv, projectID := newServer(t)

	anonymous := New(srv.URL)
	_, err := anonymous.GetBuild(ctx, 1)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Kind)

	c := New(srv.URL, WithAPIKey("ci-key"))
	_, err = c.GetBuild(ctx, 404)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.CreateStateCode(ctx, projectID, &dto.StateCodeCreateRequest{Name: "init", Code: 1})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "conflict", apiErr.Kind)

	build, err := c.CreateBuild(ctx, &dto.BuildCreateRequest{ProjectID: projectID})
	require.NoError(t, err)
	_, err = c.SetVariable(ctx, build.ID, &dto.VariableSetRequest{VariableKey: "secret", VariableValue: "x", IsSensitive: true})
	require.NoError(t, err)

	_, err = c.GetVariable(ctx, build.ID, "secret")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	admin := New(srv.URL, WithAPIKey("admin-key"))
	v, err := admin.GetVariable(ctx, build.ID, "secret")
	require.NoError(t, err)
	assert.Equal(t, "x", v.VariableValue)
}

func TestClientHeaders(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"message":"success","data":[{"id":1,"name":"init","code":0}]}`))
	}))
	defer srv.Close()

	codes, err := New(srv.URL, WithToken("jwt-token")).ListStateCodes(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "init", codes[0].Name)
	assert.Equal(t, "Bearer jwt-token", seen.Get("Authorization"))
	assert.Empty(t, seen.Get("X-API-Key"))

	_, err = New(srv.URL, WithAPIKey("k")).ListStateCodes(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "k", seen.Get("X-API-Key"))
}

func TestClientPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetBuild(context.Background(), 1)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}
