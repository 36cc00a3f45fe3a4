package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

type stubAuthService struct {
	tokenFn func(ctx context.Context, username, password string) (string, *domain.Operator, error)
}

func (s *stubAuthService) Token(ctx context.Context, username, password string) (string, *domain.Operator, error) {
	return s.tokenFn(ctx, username, password)
}

func newTestContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Token_Success(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		tokenFn: func(ctx context.Context, username, password string) (string, *domain.Operator, error) {
			if username != "admin" || password != "admin123" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return "signed-token", &domain.Operator{Username: username, Role: domain.RoleAdmin}, nil
		},
	}
	handler := NewAuthHandler(stub, 30*time.Minute)

	c, rec := newTestContext(e, http.MethodPost, "/auth/token", `{"username":"admin","password":"admin123"}`)
	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "signed-token" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ExpiresIn != 1800 {
		t.Fatalf("expected expires_in 1800, got %d", resp.ExpiresIn)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("expected role %s, got %s", domain.RoleAdmin, resp.Role)
	}
}

func TestAuthHandler_Token_InvalidCredentials(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		tokenFn: func(ctx context.Context, username, password string) (string, *domain.Operator, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub, 30*time.Minute)

	c, rec := newTestContext(e, http.MethodPost, "/auth/token", `{"username":"admin","password":"wrong"}`)
	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandler_Token_MissingFields(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	handler := NewAuthHandler(&stubAuthService{
		tokenFn: func(ctx context.Context, username, password string) (string, *domain.Operator, error) {
			t.Fatalf("service must not be called on validation failure")
			return "", nil, nil
		},
	}, 30*time.Minute)

	c, rec := newTestContext(e, http.MethodPost, "/auth/token", `{"username":"admin"}`)
	if err := handler.Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
