package rates

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	h := NewHandler(NewService(newMockRuleRepo()))
	e := echo.New()
	return h, e
}

func TestHandlerCreateRule(t *testing.T) {
	h, e := newTestHandler()

	body := fmt.Sprintf(`{"doctor_id":%q,"service_scope":"opd","rate_type":"percentage","rate_amount":20}`,
		uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rate-rules", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var r RateRule
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Error("expected rule id to be assigned")
	}
	if !r.IsActive {
		t.Error("expected created rule to be active")
	}
}

func TestHandlerCreateRuleRejectsBadRate(t *testing.T) {
	h, e := newTestHandler()

	body := fmt.Sprintf(`{"doctor_id":%q,"service_scope":"opd","rate_type":"percentage","rate_amount":150}`,
		uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rate-rules", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Create(c)
	if err == nil {
		t.Fatal("expected error for percentage over 100")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandlerGetRuleNotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandlerDeactivateRule(t *testing.T) {
	h, e := newTestHandler()

	rule := &RateRule{DoctorID: uuid.New(), ServiceScope: ScopeOpd, RateType: RatePercentage, RateAmount: 10}
	if err := h.svc.CreateRule(nil, rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(rule.ID.String())

	if err := h.Deactivate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	got, err := h.svc.GetRule(nil, rule.ID)
	if err != nil {
		t.Fatalf("get after deactivate: %v", err)
	}
	if got.IsActive {
		t.Error("expected rule to be inactive after delete")
	}
}
