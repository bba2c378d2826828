package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockUserRepo, *mockPatientRepo) {
	svc, users, patients := newTestService()
	return NewHandler(svc), users, patients
}

func TestLoginHandler(t *testing.T) {
	h, _, _ := newTestHandler()
	u := &User{Username: "admin1", FullName: "Admin", Role: RoleAdmin}
	if err := h.svc.CreateUser(context.Background(), u, "admin-pass-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	e := echo.New()
	body := `{"username":"admin1","password":"admin-pass-1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Token == "" {
		t.Error("expected token in response")
	}
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	body := `{"username":"ghost","password":"whatever1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("got %v, want 401", err)
	}
}

func TestRegisterPatientHandler(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	body := `{"full_name":"Pham Thi D","phone":"0911222333","gender":"female"}`
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.RegisterPatient(c); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if p.PatientCode == "" {
		t.Error("expected generated patient code")
	}
}

func TestGetPatientHandlerNotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("6f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("got %v, want 404", err)
	}
}

func TestGetDoctorHandlerRejectsNonDoctor(t *testing.T) {
	h, users, _ := newTestHandler()
	u := &User{Username: "nurse1", FullName: "Nurse", Role: RoleNurse}
	if err := h.svc.CreateUser(context.Background(), u, "nurse-pass-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(users.users["nurse1"].ID.String())

	err := h.GetDoctor(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("got %v, want 404", err)
	}
}
