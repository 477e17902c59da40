package encounter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/soteria/soteria/internal/domain/activity"
	"github.com/soteria/soteria/internal/platform/auth"
)

func newTestServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	e := echo.New()
	api := e.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return e, svc
}

func doJSON(e *echo.Echo, method, path string, body string, roles ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if len(roles) > 0 {
		ctx := context.WithValue(req.Context(), auth.UserRolesKey, roles)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndSaveFlow(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/encounters",
		`{"patient_id":"7d5f9f6a-4a19-4f3d-9a37-0f0a54c3a001"}`, auth.RoleClinician)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var enc Encounter
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/encounters/"+enc.ID.String()+"/activities",
		`{"types":["intro"]}`, auth.RoleClinician)
	if rec.Code != http.StatusCreated {
		t.Fatalf("assign status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/encounters/"+enc.ID.String()+"/answers",
		`{"answers":{"tour_done":true}}`, auth.RolePatient)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d body = %s", rec.Code, rec.Body.String())
	}
	var res SaveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Statuses[activity.TypeIntro] != activity.StatusCompleted {
		t.Errorf("intro status = %s", res.Statuses[activity.TypeIntro])
	}
}

func TestRoleEnforcement(t *testing.T) {
	e, _ := newTestServer(t)

	// A patient may not create encounters.
	rec := doJSON(e, http.MethodPost, "/api/v1/encounters",
		`{"patient_id":"7d5f9f6a-4a19-4f3d-9a37-0f0a54c3a001"}`, auth.RolePatient)
	if rec.Code != http.StatusForbidden {
		t.Errorf("patient create status = %d", rec.Code)
	}

	// No roles at all is also forbidden.
	rec = doJSON(e, http.MethodGet, "/api/v1/encounters/7d5f9f6a-4a19-4f3d-9a37-0f0a54c3a001", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous read status = %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	e, svc := newTestServer(t)

	// Unknown encounter maps to 404.
	rec := doJSON(e, http.MethodGet,
		"/api/v1/encounters/7d5f9f6a-4a19-4f3d-9a37-0f0a54c3a999", "", auth.RoleClinician)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing encounter status = %d", rec.Code)
	}

	// Bad UUID maps to 400.
	rec = doJSON(e, http.MethodGet, "/api/v1/encounters/not-a-uuid", "", auth.RoleClinician)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}

	// Validation failures map to 422 with field and code.
	enc := newTestEncounter(t, svc, activity.TypeStabilityPlan)
	rec = doJSON(e, http.MethodPost, "/api/v1/encounters/"+enc.ID.String()+"/answers",
		`{"answers":{"supportive_people":[{"name":"","phone":""}]}}`, auth.RolePatient)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("validation status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), activity.CodeNotAllBlank) {
		t.Errorf("validation body missing code: %s", rec.Body.String())
	}

	// Bad activity type in the path maps to 400.
	rec = doJSON(e, http.MethodGet,
		"/api/v1/encounters/"+enc.ID.String()+"/activities/tarot", "", auth.RoleClinician)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d", rec.Code)
	}
}
