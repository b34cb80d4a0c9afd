package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// headerTokens maps the bearer token straight to a role for routing tests.
type headerTokens struct{}

func (headerTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "superadmin":
		return &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}, nil
	case "admin-org-1":
		return &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin, OrganizationID: "org-1"}, nil
	case "vol-1":
		return &models.JWTClaims{UserID: "user-vol-1", Role: models.RoleVolunteer, VolunteerID: "vol-1"}, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type consistencyServiceMock struct{}

func (consistencyServiceMock) Check(ctx context.Context) (*dto.ConsistencyReport, error) {
	return &dto.ConsistencyReport{DryRun: true}, nil
}

func (consistencyServiceMock) Repair(ctx context.Context) (*dto.ConsistencyReport, error) {
	return &dto.ConsistencyReport{}, nil
}

type routerRosterMock struct {
	rosterServiceMock
}

func (m *routerRosterMock) GetVolunteer(ctx context.Context, id string) (*models.Volunteer, error) {
	return &models.Volunteer{ID: id}, nil
}

func (m *routerRosterMock) ListVolunteers(ctx context.Context, organizationID string) ([]models.Volunteer, error) {
	return []models.Volunteer{}, nil
}

func buildRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	scheduling := &schedulingServiceMock{shifts: map[string]*models.Shift{
		"shift-1": {ID: "shift-1", OrganizationID: "org-1"},
		"shift-2": {ID: "shift-2", OrganizationID: "org-2"},
	}}
	Routes{
		Tokens:      headerTokens{},
		Roster:      NewRosterHandler(&routerRosterMock{}),
		Scheduling:  NewSchedulingHandler(scheduling),
		Export:      NewExportHandler(&exportServiceMock{}),
		Consistency: NewConsistencyHandler(consistencyServiceMock{}),
		Metrics:     NewMetricsHandler(nil, nil),
		Logger:      zap.NewNop(),
	}.Register(router.Group("/api/v1"))
	return router
}

func performRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesAccessControl(t *testing.T) {
	router := buildRouter()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"missing token", http.MethodGet, "/api/v1/volunteers/vol-1", "", http.StatusUnauthorized},
		{"volunteer reads self", http.MethodGet, "/api/v1/volunteers/vol-1", "vol-1", http.StatusOK},
		{"volunteer reads other", http.MethodGet, "/api/v1/volunteers/vol-2", "vol-1", http.StatusForbidden},
		{"admin reads volunteer", http.MethodGet, "/api/v1/volunteers/vol-2", "admin-org-1", http.StatusOK},
		{"scoped admin own org", http.MethodGet, "/api/v1/organizations/org-1/volunteers", "admin-org-1", http.StatusOK},
		{"scoped admin other org", http.MethodGet, "/api/v1/organizations/org-2/volunteers", "admin-org-1", http.StatusForbidden},
		{"volunteer lists members", http.MethodGet, "/api/v1/organizations/org-1/volunteers", "vol-1", http.StatusForbidden},
		{"admin runs consistency", http.MethodGet, "/api/v1/admin/consistency", "admin-org-1", http.StatusForbidden},
		{"superadmin runs consistency", http.MethodGet, "/api/v1/admin/consistency", "superadmin", http.StatusOK},
		{"volunteer cancels", http.MethodDelete, "/api/v1/assignments/assign-1", "vol-1", http.StatusNoContent},
		{"scoped admin own shift roster", http.MethodGet, "/api/v1/shifts/shift-1/volunteers", "admin-org-1", http.StatusOK},
		{"scoped admin other shift roster", http.MethodGet, "/api/v1/shifts/shift-2/volunteers", "admin-org-1", http.StatusForbidden},
		{"scoped admin signs up on other shift", http.MethodPost, "/api/v1/shifts/shift-2/signups", "admin-org-1", http.StatusForbidden},
		{"superadmin other shift roster", http.MethodGet, "/api/v1/shifts/shift-2/volunteers", "superadmin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
