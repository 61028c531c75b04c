package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fanlinkhq/fanlink/internal/config"
	apierrors "github.com/fanlinkhq/fanlink/internal/errors"
	"github.com/fanlinkhq/fanlink/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key"

// newTestServer wires the full router without a database. Only routes
// that reject before reaching the store are exercised here; the service
// packages cover the rest against in-memory stores.
func newTestServer() *APIServer {
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:             testSecret,
			Issuer:             "fanlink",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		Messaging: config.MessagingConfig{
			MaxMessageLength:     5000,
			BadgePollInterval:    10 * time.Second,
			DefaultMessagesLimit: 50,
		},
		Pricing:      config.PricingConfig{MinTierPrice: 50000, MaxTopTierPrice: 2500000},
		Subscription: config.SubscriptionConfig{ValidityDays: 30},
	}
	return NewAPIServer(cfg, nil, nil)
}

func signTestToken(t *testing.T, userID uuid.UUID, role models.Role, subject string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    string(role),
		"email":   "test@example.com",
		"sub":     subject,
		"iss":     "fanlink",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func doRequest(srv *APIServer, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer()
	w := doRequest(srv, http.MethodGet, "/health", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	srv := newTestServer()
	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/profiles/me"},
		{http.MethodGet, "/api/v1/subscriptions/mine"},
		{http.MethodGet, "/api/v1/messages/conversations"},
		{http.MethodGet, "/api/v1/messages/unread"},
		{http.MethodGet, "/api/v1/auth/session"},
	}
	for _, rt := range routes {
		t.Run(rt.path, func(t *testing.T) {
			w := doRequest(srv, rt.method, rt.path, "", "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			var resp apierrors.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if resp.Error.Code != apierrors.ErrInvalidCredentials {
				t.Errorf("code = %s, want %s", resp.Error.Code, apierrors.ErrInvalidCredentials)
			}
			if resp.RequestID == "" {
				t.Error("error responses must carry the request id")
			}
		})
	}
}

func TestCreatorRoutes_RejectFans(t *testing.T) {
	srv := newTestServer()
	fanToken := signTestToken(t, uuid.New(), models.RoleFan, "access")

	routes := []struct {
		method, path string
	}{
		{http.MethodPut, "/api/v1/tiers/1"},
		{http.MethodDelete, "/api/v1/tiers/1"},
		{http.MethodPost, "/api/v1/posts"},
		{http.MethodPost, "/api/v1/feed"},
		{http.MethodGet, "/api/v1/subscriptions/subscribers"},
		{http.MethodGet, "/api/v1/subscriptions/stats"},
	}
	for _, rt := range routes {
		t.Run(rt.path, func(t *testing.T) {
			w := doRequest(srv, rt.method, rt.path, fanToken, "")
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}

func TestAuthRoutes_RejectRefreshTokens(t *testing.T) {
	srv := newTestServer()
	refreshToken := signTestToken(t, uuid.New(), models.RoleFan, "refresh")

	w := doRequest(srv, http.MethodGet, "/api/v1/profiles/me", refreshToken, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	srv := newTestServer()

	for name, body := range map[string]string{
		"not json":      "{",
		"missing email": `{"password":"password","role":"fan"}`,
		"short pass":    `{"email":"a@b.com","password":"short","role":"fan"}`,
		"bad role":      `{"email":"a@b.com","password":"password","role":"admin"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(srv, http.MethodPost, "/api/v1/auth/register", "", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var resp apierrors.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if resp.Error.Code != apierrors.ErrValidationFailed {
				t.Errorf("code = %s, want %s", resp.Error.Code, apierrors.ErrValidationFailed)
			}
		})
	}
}

// The whole suite runs against a nil pool, so these routes exercise the
// unconfigured-store policy end to end: reads come back empty, writes 503.
func TestUnconfiguredStore(t *testing.T) {
	srv := newTestServer()

	t.Run("reads serve empty results", func(t *testing.T) {
		w := doRequest(srv, http.MethodGet, "/api/v1/creators", "", "")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("writes surface the configuration error", func(t *testing.T) {
		body := `{"email":"new@example.com","password":"password","role":"fan"}`
		w := doRequest(srv, http.MethodPost, "/api/v1/auth/register", "", body)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
		var resp apierrors.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid error body: %v", err)
		}
		if resp.Error.Code != apierrors.ErrNotConfigured {
			t.Errorf("code = %s, want %s", resp.Error.Code, apierrors.ErrNotConfigured)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
