package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fanlinkhq/fanlink/internal/config"
	"github.com/fanlinkhq/fanlink/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(secret string) *config.JWTConfig {
	return &config.JWTConfig{
		Secret:             secret,
		Issuer:             "fanlink",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Helper function to create a test JWT token
func createTestToken(secret, userID, role, email, subject string, expiry time.Duration) string {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "fanlink",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func TestJWTAuth_ValidToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-testing"
	authenticator := NewJWTAuthenticator(testConfig(secret))

	userID := uuid.New()
	token := createTestToken(secret, userID.String(), "creator", "test@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserIDFromContext(c),
			"role":    GetRoleFromContext(c),
			"email":   GetEmailFromContext(c),
		})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestJWTAuth_MissingToken(t *testing.T) {
	authenticator := NewJWTAuthenticator(testConfig("test-secret"))

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testConfig(secret))

	token := createTestToken(secret, uuid.New().String(), "fan", "a@b.c", "access", -time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_RefreshTokenRejectedOnAccessRoutes(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testConfig(secret))

	token := createTestToken(secret, uuid.New().String(), "fan", "a@b.c", "refresh", time.Hour)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	authenticator := NewJWTAuthenticator(testConfig("right-secret"))

	token := createTestToken("wrong-secret", uuid.New().String(), "fan", "a@b.c", "access", time.Hour)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestOptionalJWTAuth(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testConfig(secret))

	router := gin.New()
	router.Use(authenticator.OptionalJWTAuth())
	router.GET("/content", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"viewer": GetUserIDFromContext(c)})
	})

	t.Run("anonymous request passes through", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/content", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200 for anonymous request, got %d", w.Code)
		}
	})

	t.Run("valid token is honored", func(t *testing.T) {
		token := createTestToken(secret, uuid.New().String(), "fan", "a@b.c", "access", time.Hour)
		req := httptest.NewRequest("GET", "/content", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("garbage token is still rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/content", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401 for malformed token, got %d", w.Code)
		}
	})
}

func TestRequireCreator(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testConfig(secret))

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.Use(RequireCreator())
	router.POST("/tiers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	t.Run("creator allowed", func(t *testing.T) {
		token := createTestToken(secret, uuid.New().String(), string(models.RoleCreator), "c@x.y", "access", time.Hour)
		req := httptest.NewRequest("POST", "/tiers", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200 for creator, got %d", w.Code)
		}
	})

	t.Run("fan forbidden", func(t *testing.T) {
		token := createTestToken(secret, uuid.New().String(), string(models.RoleFan), "f@x.y", "access", time.Hour)
		req := httptest.NewRequest("POST", "/tiers", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("Expected status 403 for fan, got %d", w.Code)
		}
	})
}

func TestGetUserIDFromContext_InvalidValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if got := GetUserIDFromContext(c); got != uuid.Nil {
		t.Errorf("missing key: got %v, want uuid.Nil", got)
	}

	c.Set(ContextKeyUserID, "not-a-uuid")
	if got := GetUserIDFromContext(c); got != uuid.Nil {
		t.Errorf("malformed id: got %v, want uuid.Nil", got)
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestIDFromContext(c)})
	})

	t.Run("generates when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Header().Get("X-Request-ID") == "" {
			t.Error("expected a generated X-Request-ID header")
		}
	})

	t.Run("propagates when present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "fixed-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
			t.Errorf("X-Request-ID = %q, want %q", got, "fixed-id")
		}
	})
}
