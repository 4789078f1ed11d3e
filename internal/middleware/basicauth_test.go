package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"zhutan/internal/db"
	"zhutan/internal/models"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupBasicAuth(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = conn

	hash, err := utils.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	conn.Create(&models.User{Username: "alice", Password: hash})

	r := gin.New()
	r.Use(BasicAuth("test", []string{"/private"}))
	handler := func(c *gin.Context) {
		name, _ := c.Get(BasicAuthUserKey)
		c.String(http.StatusOK, "user=%v", name)
	}
	r.GET("/public", handler)
	r.GET("/private/page", handler)
	return r
}

func TestBasicAuthUnprotectedPath(t *testing.T) {
	r := setupBasicAuth(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/public", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("unprotected path blocked: %d", w.Code)
	}
}

func TestBasicAuthChallenge(t *testing.T) {
	r := setupBasicAuth(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/private/page", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="test"` {
		t.Errorf("WWW-Authenticate = %q", got)
	}
	// 质询响应必须带防缓存头
	if w.Header().Get("Pragma") != "no-cache" {
		t.Error("missing Pragma header")
	}
	if w.Header().Get("Cache-control") != "no-cache" {
		t.Error("missing Cache-control header")
	}
	if w.Header().Get("Expires") == "" {
		t.Error("missing Expires header")
	}
}

func TestBasicAuthWrongPassword(t *testing.T) {
	r := setupBasicAuth(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/private/page", nil)
	req.SetBasicAuth("alice", "wrong")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password accepted: %d", w.Code)
	}
}

func TestBasicAuthSuccess(t *testing.T) {
	r := setupBasicAuth(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/private/page", nil)
	req.SetBasicAuth("alice", "secret")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("valid credentials rejected: %d", w.Code)
	}
	if w.Body.String() != "user=alice" {
		t.Errorf("authname not set: %s", w.Body.String())
	}
}

func TestBasicAuthPrefixMatching(t *testing.T) {
	if !pathProtected("/private/page", []string{"/private"}) {
		t.Error("nested path should be protected")
	}
	if !pathProtected("/private", []string{"/private"}) {
		t.Error("exact path should be protected")
	}
	if pathProtected("/privateer", []string{"/private"}) {
		t.Error("sibling prefix must not match")
	}
	if pathProtected("/public", []string{"/private"}) {
		t.Error("unrelated path must not match")
	}
}
