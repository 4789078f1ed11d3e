package handlers

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"zhutan/internal/discussion"

	"github.com/gin-gonic/gin"
)

type denyAllPerm struct{}

func (denyAllPerm) HasCapability(string, discussion.Capability) bool { return false }

type viewOnlyPerm struct{}

func (viewOnlyPerm) HasCapability(_ string, cap discussion.Capability) bool {
	return cap == discussion.CapView
}

func viewGateRouter(perm discussion.PermissionChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	tmpl := template.Must(template.New("error.html").Parse(`{{.Error}}`))
	template.Must(tmpl.New("search.html").Parse(`search`))
	r.SetHTMLTemplate(tmpl)

	r.GET("/search", NewSearchHandler(nil, perm).Search)
	r.GET("/timeline", NewTimelineHandler(nil, perm).Timeline)
	return r
}

func TestSearchRequiresView(t *testing.T) {
	r := viewGateRouter(denyAllPerm{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/search?q=hello", nil))

	// 匿名且未授权：检索必须拒绝
	if w.Code != http.StatusForbidden {
		t.Errorf("ungranted search = %d, want 403", w.Code)
	}
}

func TestTimelineRequiresView(t *testing.T) {
	r := viewGateRouter(denyAllPerm{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/timeline", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("ungranted timeline = %d, want 403", w.Code)
	}
}

func TestSearchAllowsGrantedViewer(t *testing.T) {
	r := viewGateRouter(viewOnlyPerm{})

	// 空查询不触库，只验证授权放行
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/search", nil))

	if w.Code != http.StatusOK {
		t.Errorf("granted search = %d, want 200", w.Code)
	}
}
