package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"zhutan/internal/discussion"
	"zhutan/internal/models"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
)

// viewTemplates 视图名到模板的映射
var viewTemplates = map[string]string{
	"forum-list":        "discussion/forum-list.html",
	"forum-add":         "discussion/forum-add.html",
	"topic-list":        "discussion/topic-list.html",
	"topic-add":         "discussion/topic-add.html",
	"topic-move":        "discussion/topic-move.html",
	"message-list":      "discussion/message-list.html",
	"wiki-message-list": "wiki/page.html",
	"admin-group-list":  "admin/group-list.html",
	"admin-forum-list":  "admin/forum-list.html",
}

type DiscussionHandler struct {
	dispatcher *discussion.Dispatcher
	cache      *utils.GlobalCache
}

func NewDiscussionHandler(dispatcher *discussion.Dispatcher) *DiscussionHandler {
	return &DiscussionHandler{
		dispatcher: dispatcher,
		cache:      utils.GetCache(),
	}
}

// Board serves /discussion and everything below it. The path nests
// ids: /discussion/<forum>[/<topic>[/<message>]]; the action and form
// fields arrive as request parameters.
func (h *DiscussionHandler) Board(c *gin.Context) {
	rel := strings.Trim(c.Param("path"), "/")
	if rel == "redirect" {
		h.redirect(c)
		return
	}
	if rel == "" {
		h.ForumIndex(c)
		return
	}

	req, ok := h.buildRequest(c, rel)
	if !ok {
		return
	}

	sess := newBoardSession(c)
	res, err := h.dispatcher.Execute(req, sess)
	sess.Save()
	if err != nil {
		RenderDispatchError(c, err)
		return
	}

	if res.Redirect != "" {
		// 两跳跳转，避免刷新重复提交
		c.Redirect(http.StatusSeeOther, "/discussion/redirect?href="+url.QueryEscape(res.Redirect))
		return
	}

	h.render(c, res)
}

// ForumIndex serves the bare /discussion forum list, with a short
// cache in front for the no-parameter read that takes most of the
// traffic.
func (h *DiscussionHandler) ForumIndex(c *gin.Context) {
	cacheable := c.Request.Method == http.MethodGet &&
		c.Request.URL.RawQuery == "" && Authname(c) == "anonymous"
	if cacheable {
		if cached := h.cache.Get("discussion:forum-list"); cached != nil {
			h.render(c, cached.(*discussion.Result))
			return
		}
	}

	req, ok := h.buildRequest(c, "")
	if !ok {
		return
	}
	sess := newBoardSession(c)
	res, err := h.dispatcher.Execute(req, sess)
	sess.Save()
	if err != nil {
		RenderDispatchError(c, err)
		return
	}
	if res.Redirect != "" {
		c.Redirect(http.StatusSeeOther, "/discussion/redirect?href="+url.QueryEscape(res.Redirect))
		return
	}

	if cacheable && res.View == "forum-list" {
		h.cache.Set("discussion:forum-list", res, 30*time.Second)
	}
	h.render(c, res)
}

// redirect is the second hop of a mutation: it reassembles the target
// from the href parameter plus any extra query parameters and sends
// the client there with a clean GET.
func (h *DiscussionHandler) redirect(c *gin.Context) {
	href := c.Query("href")
	// 只允许站内相对路径
	if href == "" || !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		href = "/discussion"
	}

	extra := url.Values{}
	for key, values := range c.Request.URL.Query() {
		if key == "href" {
			continue
		}
		for _, value := range values {
			extra.Add(key, value)
		}
	}
	if encoded := extra.Encode(); encoded != "" {
		if strings.Contains(href, "?") {
			href += "&" + encoded
		} else {
			href += "?" + encoded
		}
	}

	c.Redirect(http.StatusFound, href)
}

// buildRequest parses the nested path, loads the addressed entities
// and collects the form fields. Returns ok=false after rendering an
// error response itself.
func (h *DiscussionHandler) buildRequest(c *gin.Context, rel string) (*discussion.Request, bool) {
	repo := h.dispatcher.Repo()
	req := &discussion.Request{
		Surface:  discussion.SurfaceCore,
		Action:   c.Request.FormValue("discussion_action"),
		Preview:  c.Request.FormValue("preview") != "",
		Submit:   c.Request.FormValue("submit") != "",
		Path:     c.Request.URL.Path,
		Authname: Authname(c),
	}

	if rel != "" {
		segments := strings.Split(rel, "/")
		if len(segments) > 3 {
			RenderError(c, http.StatusNotFound, "页面不存在")
			return nil, false
		}
		ids := make([]int64, len(segments))
		for i, seg := range segments {
			id := utils.StringToInt64(seg)
			if id <= 0 {
				RenderError(c, http.StatusNotFound, "页面不存在")
				return nil, false
			}
			ids[i] = id
		}

		var err error
		if req.Forum, err = repo.GetForum(ids[0]); err != nil {
			RenderDispatchError(c, err)
			return nil, false
		}
		if len(ids) > 1 {
			if req.Topic, err = repo.GetTopic(ids[1]); err != nil {
				RenderDispatchError(c, err)
				return nil, false
			}
		}
		if len(ids) > 2 {
			if req.Message, err = repo.GetMessage(ids[2]); err != nil {
				RenderDispatchError(c, err)
				return nil, false
			}
		}
	}

	// 分组以参数方式出现（新建版块时选择归属）
	if raw := c.Request.FormValue("group"); raw != "" {
		group, err := repo.GetGroup(utils.StringToInt64(raw))
		if err != nil {
			RenderDispatchError(c, err)
			return nil, false
		}
		req.Group = &group
	}

	fillBoardForm(c, req)
	return req, true
}

// fillBoardForm 收集表单字段，core 和 admin 两套入口共用
func fillBoardForm(c *gin.Context, req *discussion.Request) {
	form := c.Request.FormValue

	req.Name = form("name")
	req.Subject = form("subject")
	req.Description = form("description")
	req.Body = form("body")
	req.Display = form("display")
	req.Order = form("order")
	req.Start = utils.StringToInt(form("discussion_start"))
	req.GroupID = utils.StringToInt64(form("new_group"))
	req.NewForumID = utils.StringToInt64(form("new_forum"))

	req.Author = form("author")
	if req.Author == "" {
		req.Author = req.Authname
	}

	if raw := form("asc"); raw != "" {
		asc := raw == "1" || raw == "true"
		req.Asc = &asc
	}

	c.Request.ParseForm()
	for _, value := range c.Request.Form["moderators"] {
		for _, name := range strings.Fields(value) {
			req.Moderators = append(req.Moderators, name)
		}
	}
	for _, value := range c.Request.Form["selection"] {
		if id := utils.StringToInt64(value); id > 0 {
			req.Selection = append(req.Selection, id)
		}
	}
}

func (h *DiscussionHandler) render(c *gin.Context, res *discussion.Result) {
	name, ok := viewTemplates[res.View]
	if !ok {
		RenderError(c, http.StatusNotFound, "页面不存在")
		return
	}
	Render(c, http.StatusOK, name, gin.H{"Board": res})
}

// loadGroup 管理面板直接按 id 寻址分组
func loadGroup(repo *discussion.Repository, id int64) (*models.Group, error) {
	group, err := repo.GetGroup(id)
	if err != nil {
		return nil, err
	}
	return &group, nil
}
