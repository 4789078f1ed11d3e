package handlers

import (
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"zhutan/internal/discussion"
	"zhutan/internal/middleware"
	"zhutan/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func init() {
	// cookie session 用 gob 编码，自定义类型要先注册
	gob.Register(map[int64]int64{})
}

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message})
}

// RenderDispatchError 把执行错误翻成对应的错误页：权限不足 403，
// 数据不一致 500，其余按服务器错误处理
func RenderDispatchError(c *gin.Context, err error) {
	var perm *discussion.PermissionError
	if errors.As(err, &perm) {
		Render(c, http.StatusForbidden, "error.html", gin.H{"Error": perm.Error()})
		return
	}
	if errors.Is(err, discussion.ErrBrokenThread) {
		RenderError(c, http.StatusInternalServerError, err.Error())
		return
	}
	RenderError(c, http.StatusInternalServerError, "服务器内部错误")
}

// Authname 解析当前请求的身份：登录用户优先，其次 HTTP Basic，
// 都没有按匿名处理
func Authname(c *gin.Context) string {
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		return user.(*models.User).Username
	}
	if name, exists := c.Get(middleware.BasicAuthUserKey); exists {
		return name.(string)
	}
	return "anonymous"
}

const (
	sessionVisitedKey = "visited_topics"
	sessionDisplayKey = "display"
)

// boardSession adapts the cookie session to the board's per-caller
// state. Writes are buffered; Save flushes once per request.
type boardSession struct {
	session sessions.Session
	visited map[int64]int64
	display string
	dirty   bool
}

func newBoardSession(c *gin.Context) *boardSession {
	session := sessions.Default(c)
	visited, _ := session.Get(sessionVisitedKey).(map[int64]int64)
	if visited == nil {
		visited = make(map[int64]int64)
	}
	display, _ := session.Get(sessionDisplayKey).(string)
	return &boardSession{session: session, visited: visited, display: display}
}

func (s *boardSession) LastVisit(topicID int64) time.Time {
	unix, ok := s.visited[topicID]
	if !ok {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func (s *boardSession) MarkVisited(topicID int64, at time.Time) {
	s.visited[topicID] = at.Unix()
	s.dirty = true
}

func (s *boardSession) Display() string {
	return s.display
}

func (s *boardSession) SetDisplay(display string) {
	s.display = display
	s.dirty = true
}

func (s *boardSession) Save() {
	if !s.dirty {
		return
	}
	s.session.Set(sessionVisitedKey, s.visited)
	s.session.Set(sessionDisplayKey, s.display)
	if err := s.session.Save(); err == nil {
		s.dirty = false
	}
}
