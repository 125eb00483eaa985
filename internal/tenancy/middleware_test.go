package tenancy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestMiddleware_BindsHospital(t *testing.T) {
	resolver := NewResolver(twoHospitals(), false)
	pools := newFakePools(1, 2)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nord.hospitals.test"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(resolver, pools)(func(c echo.Context) error {
		h := HospitalFromContext(c.Request().Context())
		if h == nil || h.ID != 2 {
			t.Errorf("expected hospital 2 bound, got %+v", h)
		}
		if PoolFromContext(c.Request().Context()) != pools.byID[2] {
			t.Error("expected hospital 2's pool bound")
		}
		return okHandler(c)
	})

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := c.Get("hospital_id").(int64); got != 2 {
		t.Errorf("expected hospital_id 2 on echo context, got %d", got)
	}
}

func TestMiddleware_NoMatchReturns503(t *testing.T) {
	resolver := NewResolver(twoHospitals(), false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.hospitals.test"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Middleware(resolver, newFakePools())(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", httpErr.Code)
	}
}

func TestMiddleware_ExplicitHeaderWins(t *testing.T) {
	resolver := NewResolver(twoHospitals(), false)
	pools := newFakePools(1, 2)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "nord.hospitals.test"
	req.Header.Set(HeaderHospitalID, "1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Middleware(resolver, pools)(func(c echo.Context) error {
		if id := HospitalIDFromContext(c.Request().Context()); id != 1 {
			t.Errorf("expected hospital 1, got %d", id)
		}
		return okHandler(c)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_JWTAttributeUsed(t *testing.T) {
	resolver := NewResolver(twoHospitals(), false)
	pools := newFakePools(1, 2)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "localhost:8000"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("jwt_hospital_id", "2")

	handler := Middleware(resolver, pools)(func(c echo.Context) error {
		if id := HospitalIDFromContext(c.Request().Context()); id != 2 {
			t.Errorf("expected hospital 2 from jwt attribute, got %d", id)
		}
		return okHandler(c)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_AlreadyBoundIsNoOp(t *testing.T) {
	resolver := NewResolver(twoHospitals(), false)
	pools := newFakePools(1)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.hospitals.test" // would 503 if resolution ran
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	bound := WithTenant(req.Context(), activeHospital(1), pools.byID[1])
	c.SetRequest(req.WithContext(bound))

	err := Middleware(resolver, pools)(okHandler)(c)
	if err != nil {
		t.Fatalf("expected pre-bound request to pass through, got %v", err)
	}
}

func TestRequireModule_FailsClosedWithoutBinding(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequireModule("billing")(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", httpErr.Code)
	}
}
