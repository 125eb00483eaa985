package onboarding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(repo *fakeRepo) (*echo.Echo, *Handler) {
	e := echo.New()
	svc := NewService(repo, &fakeQueue{}, testTenantDB(), "hospitals.test", zerolog.Nop())
	h := NewHandler(svc)
	h.RegisterRoutes(e.Group("/api/v1"))
	return e, h
}

func TestHandlerRegister_Created(t *testing.T) {
	e, _ := newTestHandler(&fakeRepo{})

	body := `{"name":"Hopital Centrale","admin_email":"director@centrale.example"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Slug != "hopital-centrale" {
		t.Errorf("unexpected slug %s", resp.Slug)
	}
}

func TestHandlerRegister_Conflict(t *testing.T) {
	repo := &fakeRepo{}
	e, _ := newTestHandler(repo)

	body := `{"name":"Hopital Centrale","admin_email":"director@centrale.example"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/register", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestHandlerRegister_ValidationError(t *testing.T) {
	e, _ := newTestHandler(&fakeRepo{})

	body := `{"name":"Hopital Centrale","admin_email":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerStatus_NotFound(t *testing.T) {
	e, _ := newTestHandler(&fakeRepo{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/onboarding/status/6a64c8a2-4f0a-4a10-9f3b-000000000000", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerStatus_InvalidUUID(t *testing.T) {
	e, _ := newTestHandler(&fakeRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/onboarding/status/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
