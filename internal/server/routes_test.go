package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/config"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	entitlementdomain "github.com/estatelane/estatelane/internal/entitlement/domain"
	"github.com/estatelane/estatelane/internal/ratelimit"
	usagedomain "github.com/estatelane/estatelane/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDirectory struct {
	users map[snowflake.ID]*directorydomain.User
}

func (d *stubDirectory) GetUser(ctx context.Context, id string) (*directorydomain.User, error) {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return nil, directorydomain.ErrInvalidID
	}
	user, ok := d.users[parsed]
	if !ok {
		return nil, directorydomain.ErrNotFound
	}
	return user, nil
}

func (d *stubDirectory) ListUsersByRole(ctx context.Context, role directorydomain.Role) ([]directorydomain.User, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *stubDirectory) ListUsers(ctx context.Context, req directorydomain.ListUsersRequest) (directorydomain.ListUsersResponse, error) {
	return directorydomain.ListUsersResponse{}, fmt.Errorf("not implemented")
}

func (d *stubDirectory) CreateAgency(ctx context.Context, req directorydomain.CreateAgencyRequest) (*directorydomain.Response, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *stubDirectory) CreateAgent(ctx context.Context, req directorydomain.CreateAgentRequest) (*directorydomain.Response, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubAccess struct {
	read   bool
	modify bool
}

func (a *stubAccess) CanRead(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error) {
	return a.read, nil
}

func (a *stubAccess) CanModify(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error) {
	return a.modify, nil
}

type stubEntitlement struct {
	result    entitlementdomain.LimitCheckResult
	exportErr error
	checks    int
}

func (e *stubEntitlement) CheckFeatureLimit(ctx context.Context, userID snowflake.ID, featureName string, parentHintID snowflake.ID) (entitlementdomain.LimitCheckResult, error) {
	e.checks++
	return e.result, nil
}

func (e *stubEntitlement) GetAllLimits(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (map[string]entitlementdomain.LimitCheckResult, error) {
	return map[string]entitlementdomain.LimitCheckResult{e.result.FeatureName: e.result}, nil
}

func (e *stubEntitlement) CheckDowngradeCompatibility(ctx context.Context, userID snowflake.ID, targetPlanID snowflake.ID, parentHintID snowflake.ID) (entitlementdomain.DowngradeReport, error) {
	return entitlementdomain.DowngradeReport{Compatible: true}, nil
}

func (e *stubEntitlement) IsExportEnabled(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (bool, error) {
	return e.exportErr == nil, nil
}

func (e *stubEntitlement) EnsureExportPermissions(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) error {
	return e.exportErr
}

func (e *stubEntitlement) RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error {
	return nil
}

type stubUsage struct {
	resources  map[snowflake.ID]*usagedomain.Response
	registered int
	released   int
}

func (u *stubUsage) Register(ctx context.Context, ownerID snowflake.ID, resourceType string) (*usagedomain.Response, error) {
	u.registered++
	return &usagedomain.Response{ID: "1", OwnerID: ownerID.String(), ResourceType: resourceType}, nil
}

func (u *stubUsage) GetResource(ctx context.Context, id snowflake.ID) (*usagedomain.Response, error) {
	resp, ok := u.resources[id]
	if !ok {
		return nil, usagedomain.ErrResourceNotFound
	}
	return resp, nil
}

func (u *stubUsage) Release(ctx context.Context, id snowflake.ID) error {
	u.released++
	return nil
}

func (u *stubUsage) CountBranch(ctx context.Context, branchRootID snowflake.ID, resourceType string) (int64, error) {
	return 0, nil
}

func (u *stubUsage) RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error {
	return nil
}

type serverFixture struct {
	srv         *Server
	agent       snowflake.ID
	other       snowflake.ID
	access      *stubAccess
	entitlement *stubEntitlement
	usage       *stubUsage
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	agent := node.Generate()
	other := node.Generate()

	directory := &stubDirectory{users: map[snowflake.ID]*directorydomain.User{
		agent: {ID: agent, Role: directorydomain.RoleAgent},
	}}
	access := &stubAccess{read: true, modify: true}
	entitlement := &stubEntitlement{result: entitlementdomain.LimitCheckResult{
		FeatureName: "max_properties",
		CanProceed:  true,
	}}
	usage := &stubUsage{resources: map[snowflake.ID]*usagedomain.Response{}}

	cfg := config.Config{AuthStaticTokens: true}
	features, err := config.NewFeaturesConfigHolder()
	require.NoError(t, err)

	srv := &Server{
		engine:         NewEngine(),
		cfg:            cfg,
		log:            zap.NewNop(),
		verifier:       NewTokenVerifier(cfg, directory),
		limiter:        ratelimit.NewAPILimiter(config.Config{}),
		features:       features,
		directorySvc:   directory,
		accessSvc:      access,
		usageSvc:       usage,
		entitlementSvc: entitlement,
	}
	srv.RegisterAPIRoutes()

	return &serverFixture{
		srv:         srv,
		agent:       agent,
		other:       other,
		access:      access,
		entitlement: entitlement,
		usage:       usage,
	}
}

func (f *serverFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer el_%d", f.agent))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "body %s has no error object", rec.Body.String())
	return errObj
}

func TestRoutes_MissingTokenUnauthorized(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/limits", nil)
	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec)["type"])
}

func TestRoutes_HealthzNeedsNoToken(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_AccessDecision(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, fmt.Sprintf("/v1/access/read?owner_id=%s", f.other), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Operation string `json:"operation"`
			Allowed   bool   `json:"allowed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "read", body.Data.Operation)
	assert.True(t, body.Data.Allowed)

	f.access.read = false
	rec = f.do(http.MethodGet, fmt.Sprintf("/v1/access/read?owner_id=%s", f.other), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Allowed)
}

func TestRoutes_AccessDecisionRequiresOwner(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/v1/access/read", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec)["type"])
}

func TestRoutes_CreateResourceBlockedByLimit(t *testing.T) {
	f := newServerFixture(t)
	limit := int64(10)
	f.entitlement.result = entitlementdomain.LimitCheckResult{
		FeatureName:  "max_properties",
		CurrentUsage: 10,
		LimitValue:   &limit,
		CanProceed:   false,
		Message:      "max_properties limit reached",
	}

	rec := f.do(http.MethodPost, "/v1/resources", map[string]string{"resource_type": "property"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	errObj := decodeError(t, rec)
	assert.Equal(t, "feature_limit_exceeded", errObj["type"])

	limitObj, ok := errObj["limit"].(map[string]any)
	require.True(t, ok, "429 payload carries the limit check result")
	assert.Equal(t, "max_properties", limitObj["feature_name"])
	assert.Equal(t, float64(10), limitObj["limit_value"])
	assert.Equal(t, false, limitObj["can_proceed"])

	assert.Equal(t, 0, f.usage.registered)
}

func TestRoutes_CreateResourceUnderLimit(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/v1/resources", map[string]string{"resource_type": "property"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.entitlement.checks)
	assert.Equal(t, 1, f.usage.registered)
}

func TestRoutes_CreateUnmeteredResourceSkipsLimitCheck(t *testing.T) {
	f := newServerFixture(t)

	// "webhook" has no counter feature in the catalog.
	rec := f.do(http.MethodPost, "/v1/resources", map[string]string{"resource_type": "webhook"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.entitlement.checks)
	assert.Equal(t, 1, f.usage.registered)
}

func TestRoutes_GetForeignResourceForbidden(t *testing.T) {
	f := newServerFixture(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	resourceID := node.Generate()
	f.usage.resources[resourceID] = &usagedomain.Response{
		ID:      resourceID.String(),
		OwnerID: f.other.String(),
	}
	f.access.read = false

	rec := f.do(http.MethodGet, "/v1/resources/"+resourceID.String(), nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec)["type"])
}

func TestRoutes_DeleteResource(t *testing.T) {
	f := newServerFixture(t)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	resourceID := node.Generate()
	f.usage.resources[resourceID] = &usagedomain.Response{
		ID:      resourceID.String(),
		OwnerID: f.agent.String(),
	}

	rec := f.do(http.MethodDelete, "/v1/resources/"+resourceID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.usage.released)

	f.access.modify = false
	rec = f.do(http.MethodDelete, "/v1/resources/"+resourceID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, f.usage.released)
}

func TestRoutes_UnknownResourceNotFound(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/v1/resources/12345", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec)["type"])
}

func TestRoutes_ExportGatedOff(t *testing.T) {
	f := newServerFixture(t)
	f.entitlement.exportErr = entitlementdomain.ErrExportNotPermitted

	rec := f.do(http.MethodPost, "/v1/exports", map[string]string{
		"export_type": "csv",
		"entity_type": "property",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec)["type"])
}

func TestRoutes_ExportRecorded(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodPost, "/v1/exports", map[string]string{
		"export_type": "csv",
		"entity_type": "property",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Recorded bool `json:"recorded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Recorded)
}
