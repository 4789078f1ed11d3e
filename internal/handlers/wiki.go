package handlers

import (
	"net/http"
	"strings"

	"zhutan/internal/discussion"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
)

// WikiHandler embeds a topic's discussion into a named page: the page
// name is matched against topic subjects, so `/pages/release-notes`
// shows the thread of the topic titled "release-notes". Mutations on
// this surface re-render the page in place instead of redirecting, so
// the embed survives the POST.
type WikiHandler struct {
	dispatcher *discussion.Dispatcher
}

func NewWikiHandler(dispatcher *discussion.Dispatcher) *WikiHandler {
	return &WikiHandler{dispatcher: dispatcher}
}

func (h *WikiHandler) Page(c *gin.Context) {
	name := strings.Trim(c.Param("name"), "/")
	if name == "" {
		name = "home"
	}

	repo := h.dispatcher.Repo()
	req := &discussion.Request{
		Surface:  discussion.SurfaceWiki,
		Action:   c.Request.FormValue("discussion_action"),
		Preview:  c.Request.FormValue("preview") != "",
		Submit:   c.Request.FormValue("submit") != "",
		Path:     c.Request.URL.Path,
		Authname: Authname(c),
	}

	topic, err := repo.GetTopicBySubject(name)
	if err != nil {
		RenderDispatchError(c, err)
		return
	}
	if topic != nil {
		req.Topic = topic
		if req.Forum, err = repo.GetForum(topic.ForumID); err != nil {
			RenderDispatchError(c, err)
			return
		}
		// 回复某条消息时以参数寻址
		if id := utils.StringToInt64(c.Request.FormValue("message")); id > 0 {
			if req.Message, err = repo.GetMessage(id); err != nil {
				RenderDispatchError(c, err)
				return
			}
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

	Render(c, http.StatusOK, "wiki/page.html", gin.H{
		"PageName": name,
		"Board":    res,
	})
}
