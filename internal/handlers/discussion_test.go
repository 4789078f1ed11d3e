package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func redirectRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDiscussionHandler(nil)
	r.GET("/discussion/*path", h.Board)
	return r
}

func TestRedirectSecondHop(t *testing.T) {
	r := redirectRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/discussion/redirect?href=%2Fdiscussion%2F3%2F7", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/discussion/3/7" {
		t.Errorf("Location = %q", got)
	}
}

func TestRedirectCarriesExtraParams(t *testing.T) {
	r := redirectRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/discussion/redirect?href=%2Fdiscussion%2F3&order=subject&asc=1", nil)
	r.ServeHTTP(w, req)

	got := w.Header().Get("Location")
	if got != "/discussion/3?asc=1&order=subject" {
		t.Errorf("Location = %q", got)
	}
}

func TestRedirectRejectsExternalTargets(t *testing.T) {
	r := redirectRouter()

	for _, href := range []string{
		"https%3A%2F%2Fevil.example.com",
		"%2F%2Fevil.example.com",
		"",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/discussion/redirect?href="+href, nil)
		r.ServeHTTP(w, req)

		got := w.Header().Get("Location")
		if got != "/discussion" {
			t.Errorf("href=%q redirected to %q, want /discussion", href, got)
		}
	}
}
