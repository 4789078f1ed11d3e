package handlers

import (
	"net/http"

	"zhutan/internal/discussion"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the /admin/discussion panels. Both panels are
// thin shells around the dispatcher: the panel decides which entity
// the URL addresses and which action the pressed button means, the
// dispatcher does the rest.
type AdminHandler struct {
	dispatcher *discussion.Dispatcher
	cache      *utils.GlobalCache
}

func NewAdminHandler(dispatcher *discussion.Dispatcher) *AdminHandler {
	return &AdminHandler{
		dispatcher: dispatcher,
		cache:      utils.GetCache(),
	}
}

func (h *AdminHandler) GroupPanel(c *gin.Context) {
	h.panel(c, "group")
}

func (h *AdminHandler) ForumPanel(c *gin.Context) {
	h.panel(c, "forum")
}

func (h *AdminHandler) panel(c *gin.Context, panel string) {
	repo := h.dispatcher.Repo()
	req := &discussion.Request{
		Surface:  discussion.SurfaceAdmin,
		Path:     c.Request.URL.Path,
		Authname: Authname(c),
	}

	// 按下的按钮决定动作
	if c.Request.Method == http.MethodPost {
		switch {
		case c.PostForm("add") != "":
			req.Action = "post-add"
		case c.PostForm("remove") != "":
			req.Action = "delete"
		default:
			req.Action = "post-edit"
		}
	}

	id := utils.StringToInt64(c.Param("id"))
	switch panel {
	case "group":
		if id > 0 {
			group, err := loadGroup(repo, id)
			if err != nil {
				RenderDispatchError(c, err)
				return
			}
			req.Group = group
		}
	case "forum":
		if id > 0 {
			forum, err := repo.GetForum(id)
			if err != nil {
				RenderDispatchError(c, err)
				return
			}
			if forum == nil {
				RenderError(c, http.StatusNotFound, "版块不存在")
				return
			}
			req.Forum = forum
		} else {
			// 版块面板总是带着分组上下文，默认是虚拟分组 0
			group, err := loadGroup(repo, utils.StringToInt64(c.Request.FormValue("group")))
			if err != nil {
				RenderDispatchError(c, err)
				return
			}
			req.Group = group
		}
	}

	fillBoardForm(c, req)

	sess := newBoardSession(c)
	res, err := h.dispatcher.Execute(req, sess)
	sess.Save()
	if err != nil {
		RenderDispatchError(c, err)
		return
	}

	if res.Redirect != "" {
		// 管理端写操作之后让页面缓存失效
		h.cache.Purge()
		c.Redirect(http.StatusSeeOther, res.Redirect)
		return
	}

	name, ok := viewTemplates[res.View]
	if !ok {
		RenderError(c, http.StatusNotFound, "页面不存在")
		return
	}
	Render(c, http.StatusOK, name, gin.H{"Board": res})
}
