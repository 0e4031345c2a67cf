package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/citygallery/citygallery/internal/model"
	"github.com/citygallery/citygallery/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "middleware-secret"

func setupAuthTest(t *testing.T) (*gin.Engine, *AuthMiddleware, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	m := NewAuthMiddleware(repository.NewUserRepository(db), testSecret)
	return gin.New(), m, db
}

func signToken(t *testing.T, subject, secret string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func createUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     role + "-user",
		Email:        role + "@example.com",
		PasswordHash: "irrelevant",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestRequireAuth(t *testing.T) {
	router, m, db := setupAuthTest(t)
	user := createUser(t, db, model.RoleUser)

	router.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		id, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})

	// No header.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}

	// Garbage token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}

	// Expired token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID.String(), testSecret, -time.Minute))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expired token: expected 401, got %d", w.Code)
	}

	// Wrong secret.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID.String(), "other-secret", time.Hour))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", w.Code)
	}

	// Valid token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID.String(), testSecret, time.Hour))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), user.ID.String()) {
		t.Errorf("expected user id in response, got %s", w.Body.String())
	}
}

func TestOptionalAuth(t *testing.T) {
	router, m, db := setupAuthTest(t)
	user := createUser(t, db, model.RoleUser)

	router.GET("/feed", m.OptionalAuth(), func(c *gin.Context) {
		if id, ok := c.Get("user_id"); ok {
			c.JSON(http.StatusOK, gin.H{"viewer": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"viewer": nil})
	})

	// Anonymous requests pass through.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("anonymous: expected 200, got %d", w.Code)
	}

	// Invalid tokens degrade to anonymous instead of failing.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer junk")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("invalid token: expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), user.ID.String()) {
		t.Errorf("invalid token must not resolve a viewer")
	}

	// Valid tokens attach the viewer.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, user.ID.String(), testSecret, time.Hour))
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), user.ID.String()) {
		t.Errorf("expected viewer in response, got %s", w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	router, m, db := setupAuthTest(t)
	admin := createUser(t, db, model.RoleAdmin)
	plain := createUser(t, db, model.RoleUser)

	router.GET("/admin", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, plain.ID.String(), testSecret, time.Hour))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("plain user: expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, admin.ID.String(), testSecret, time.Hour))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
}
