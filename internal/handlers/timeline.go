package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"zhutan/internal/discussion"
	"zhutan/internal/utils"

	"github.com/gin-gonic/gin"
)

// TimelineEvent 时间线上的一条动态
type TimelineEvent struct {
	Kind   string // forum / topic / message
	Title  string
	Author string
	Time   time.Time
	URL    string
}

type TimelineHandler struct {
	dispatcher *discussion.Dispatcher
	perm       discussion.PermissionChecker
	siteURL    string
}

func NewTimelineHandler(dispatcher *discussion.Dispatcher, perm discussion.PermissionChecker) *TimelineHandler {
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}
	return &TimelineHandler{dispatcher: dispatcher, perm: perm, siteURL: siteURL}
}

// Timeline lists board activity over the last N days, newest first,
// as a page or as an RSS feed with format=rss. Same gate as reading
// the board itself.
func (h *TimelineHandler) Timeline(c *gin.Context) {
	if !h.perm.HasCapability(Authname(c), discussion.CapView) {
		RenderError(c, http.StatusForbidden, "没有浏览权限")
		return
	}

	days := utils.StringToInt(c.Query("days"))
	if days <= 0 || days > 90 {
		days = 7
	}
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	events, err := h.collect(from, to)
	if err != nil {
		RenderDispatchError(c, err)
		return
	}

	if c.Query("format") == "rss" {
		h.rss(c, events)
		return
	}

	Render(c, http.StatusOK, "timeline.html", gin.H{
		"Events": events,
		"Days":   days,
	})
}

func (h *TimelineHandler) collect(from, to time.Time) ([]TimelineEvent, error) {
	repo := h.dispatcher.Repo()
	var events []TimelineEvent

	forums, err := repo.ChangedForums(from, to)
	if err != nil {
		return nil, err
	}
	for _, f := range forums {
		events = append(events, TimelineEvent{
			Kind:   "forum",
			Title:  fmt.Sprintf("新版块 %s", f.Name),
			Author: f.Author,
			Time:   f.CreatedAt,
			URL:    fmt.Sprintf("/discussion/%d", f.ID),
		})
	}

	topics, err := repo.ChangedTopics(from, to)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		events = append(events, TimelineEvent{
			Kind:   "topic",
			Title:  fmt.Sprintf("新主题 %s", t.Subject),
			Author: t.Author,
			Time:   t.CreatedAt,
			URL:    fmt.Sprintf("/discussion/%d/%d", t.ForumID, t.ID),
		})
	}

	messages, err := repo.ChangedMessages(from, to)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		events = append(events, TimelineEvent{
			Kind:   "message",
			Title:  fmt.Sprintf("新回复 #%d", m.ID),
			Author: m.Author,
			Time:   m.CreatedAt,
			URL:    fmt.Sprintf("/discussion/%d/%d#message-%d", m.ForumID, m.TopicID, m.ID),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})
	return events, nil
}

// RSS 2.0 输出

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	Author  string `xml:"author,omitempty"`
	PubDate string `xml:"pubDate"`
}

func (h *TimelineHandler) rss(c *gin.Context, events []TimelineEvent) {
	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       "Zhutan 讨论区动态",
			Link:        h.siteURL + "/timeline",
			Description: "版块、主题与回复的最近变化",
		},
	}
	for _, e := range events {
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:   e.Title,
			Link:    h.siteURL + e.URL,
			Author:  e.Author,
			PubDate: e.Time.Format(time.RFC1123Z),
		})
	}
	c.XML(http.StatusOK, feed)
}
