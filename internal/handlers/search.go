package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"zhutan/internal/discussion"

	"github.com/gin-gonic/gin"
)

// SearchResult 一条命中：主题或消息
type SearchResult struct {
	Kind    string // topic / message
	Subject string
	Author  string
	Excerpt string
	URL     string
}

type SearchHandler struct {
	dispatcher *discussion.Dispatcher
	perm       discussion.PermissionChecker
}

func NewSearchHandler(dispatcher *discussion.Dispatcher, perm discussion.PermissionChecker) *SearchHandler {
	return &SearchHandler{dispatcher: dispatcher, perm: perm}
}

// Search matches the query against topic subjects and bodies and
// against message bodies. Same gate as reading the board itself.
func (h *SearchHandler) Search(c *gin.Context) {
	if !h.perm.HasCapability(Authname(c), discussion.CapView) {
		RenderError(c, http.StatusForbidden, "没有浏览权限")
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		Render(c, http.StatusOK, "search.html", gin.H{"Query": "", "Results": nil})
		return
	}

	repo := h.dispatcher.Repo()
	var results []SearchResult

	topics, err := repo.SearchTopics(query)
	if err != nil {
		RenderDispatchError(c, err)
		return
	}
	for _, t := range topics {
		results = append(results, SearchResult{
			Kind:    "topic",
			Subject: t.Subject,
			Author:  t.Author,
			Excerpt: excerpt(t.Body),
			URL:     fmt.Sprintf("/discussion/%d/%d", t.ForumID, t.ID),
		})
	}

	messages, err := repo.SearchMessages(query)
	if err != nil {
		RenderDispatchError(c, err)
		return
	}
	for _, m := range messages {
		results = append(results, SearchResult{
			Kind:    "message",
			Subject: fmt.Sprintf("回复 #%d", m.ID),
			Author:  m.Author,
			Excerpt: excerpt(m.Body),
			URL:     fmt.Sprintf("/discussion/%d/%d#message-%d", m.ForumID, m.TopicID, m.ID),
		})
	}

	Render(c, http.StatusOK, "search.html", gin.H{
		"Query":   query,
		"Results": results,
	})
}

func excerpt(body string) string {
	runes := []rune(strings.Join(strings.Fields(body), " "))
	if len(runes) > 200 {
		return string(runes[:200]) + "…"
	}
	return string(runes)
}
