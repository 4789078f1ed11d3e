package discussion

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"zhutan/internal/models"

	"gorm.io/gorm"
)

// Request is everything the board needs to know about one inbound
// action: which entities the URL addressed (nil = absent), which
// surface is driving, the requested action, and the posted form
// fields. Transport details stay in the handlers.
type Request struct {
	Surface  Surface
	Action   string
	Preview  bool
	Submit   bool
	Path     string // original path, echoed in the redirect instruction
	Authname string

	Group   *models.Group
	Forum   *models.Forum
	Topic   *models.Topic
	Message *models.Message

	// 表单字段
	Name        string
	Subject     string
	Description string
	Author      string
	Body        string
	Moderators  []string
	GroupID     int64 // 版块归属的目标分组
	NewForumID  int64 // 主题移动的目标版块
	Order       string
	Asc         *bool // nil 时按各列表的默认方向
	Start       int
	Display     string
	Selection   []int64 // 批量删除选中的 id
}

func (r *Request) asc(def bool) bool {
	if r.Asc == nil {
		return def
	}
	return *r.Asc
}

// Result is the accumulated render payload, or a redirect
// instruction when a mutation wants the client to reload cleanly.
type Result struct {
	View        string // result view, named after the final mode
	Redirect    string // non-empty: redirect to this path, ignore the rest
	Action      string // the action that was executed, for form targeting
	Surface     Surface
	Authname    string
	IsModerator bool

	Group   *models.Group
	Forum   *models.Forum
	Topic   *models.Topic
	Message *models.Message

	TopicBodyHTML   template.HTML
	MessageBodyHTML template.HTML
	TopicNew        bool

	Groups   []models.Group
	Forums   []models.Forum
	Topics   []models.Topic
	Messages []*MessageNode
	Users    []string

	Order      string
	Asc        bool
	Display    string
	Start      int
	TopicCount int
	NextPage   int // -1 = 没有下一页
	PrevPage   int // -1 = 没有上一页

	// 表单回显（预览或引用时）
	Quote        string
	FormAuthor   string
	FormSubject  string
	FormBody     string
	FormBodyHTML template.HTML
}

// Dispatcher executes a resolved mode list inside one transaction:
// capability gate first, then the repository work, at most one commit
// at the end. Notifications are handed off only after the commit.
type Dispatcher struct {
	db       *gorm.DB
	repo     *Repository
	perm     PermissionChecker
	renderer TextRenderer
	notifier Notifier
}

func NewDispatcher(db *gorm.DB, perm PermissionChecker, renderer TextRenderer, notifier Notifier, topicsPerPage int) *Dispatcher {
	return &Dispatcher{
		db:       db,
		repo:     NewRepository(db, topicsPerPage),
		perm:     perm,
		renderer: renderer,
		notifier: notifier,
	}
}

// Repo exposes the repository for request-layer entity loading.
func (d *Dispatcher) Repo() *Repository {
	return d.repo
}

// Execute resolves the mode list for req and runs it. It returns the
// render payload, a payload carrying a redirect instruction, or an
// error (PermissionError for gate failures).
func (d *Dispatcher) Execute(req *Request, sess BoardSession) (*Result, error) {
	// 消息不能脱离主题寻址：主题已失效时消息寻址一并失效，
	// 请求退回上一级列表
	if req.Topic == nil {
		req.Message = nil
	}

	modes := ResolveModes(req.Surface, req.Action, req.Preview,
		req.Group != nil, req.Forum != nil, req.Topic != nil, req.Message != nil,
		req.Group != nil && req.Group.ID == 0)

	res := &Result{
		Surface:  req.Surface,
		Action:   req.Action,
		Authname: req.Authname,
		Group:    req.Group,
		Forum:    req.Forum,
		Topic:    req.Topic,
		Message:  req.Message,
		NextPage: -1,
		PrevPage: -1,
	}
	if len(modes) > 0 {
		res.View = modes[len(modes)-1]
	}

	// 版主判定：版块版主名单命中，或持有 ADMIN
	res.IsModerator = d.perm.HasCapability(req.Authname, CapAdmin)
	if !res.IsModerator && req.Forum != nil {
		res.IsModerator = req.Forum.HasModerator(req.Authname)
	}

	// 通知在事务提交之后才发出，失败不回滚数据
	var afterCommit []func()

	err := d.db.Transaction(func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		for _, mode := range modes {
			stop, err := d.runMode(mode, req, res, repo, sess, &afterCommit)
			if err != nil {
				return err
			}
			if stop {
				// 重定向指令终止后续模式，事务随返回提交
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, notify := range afterCommit {
		notify()
	}

	if req.Topic != nil {
		res.TopicBodyHTML = d.renderer.Body(req.Topic.Body)
	}
	if req.Message != nil {
		res.MessageBodyHTML = d.renderer.Body(req.Message.Body)
	}
	return res, nil
}

func (d *Dispatcher) require(username string, cap Capability) error {
	if !d.perm.HasCapability(username, cap) {
		return missingCapability(username, cap)
	}
	return nil
}

// requireOwnership gates edit/delete of content the caller did not
// author: holding APPEND is not enough, they must be the author or a
// moderator of the forum.
func requireOwnership(res *Result, author, username, what string) error {
	if res.IsModerator || author == username {
		return nil
	}
	return notModerator(username, what)
}

// redirect records the anti-resubmit redirect. On the wiki surface
// message mutations keep composing the page instead, so the embed
// caller can finish its own response.
func redirect(req *Request, res *Result, skipOnWiki bool) bool {
	if skipOnWiki && req.Surface == SurfaceWiki {
		// 提交成功，清掉表单回显再渲染页面
		req.Body, req.Author, req.Subject = "", "", ""
		return false
	}
	res.Redirect = req.Path
	return true
}

func quote(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = "> " + strings.TrimRight(line, "\r")
	}
	return strings.Join(lines, "\n")
}

func (d *Dispatcher) runMode(mode string, req *Request, res *Result, repo *Repository, sess BoardSession, afterCommit *[]func()) (stop bool, err error) {
	switch mode {

	case "admin-group-list":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		res.Order = orderOr(req.Order, "id")
		res.Asc = req.asc(true)
		if req.Group != nil {
			res.FormSubject = req.Group.Name
			res.FormBody = req.Group.Description
		}
		res.Groups, err = repo.ListGroups(res.Order, res.Asc)
		return false, err

	case "group-post-add":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		group := models.Group{Name: req.Name, Description: req.Description}
		if err := repo.AddGroup(&group); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "group-post-edit":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		target := req.GroupID
		if target == 0 && req.Group != nil {
			target = req.Group.ID
		}
		if err := repo.EditGroup(target, req.Name, req.Description); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "groups-delete":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		for _, id := range req.Selection {
			if err := repo.DeleteGroup(id); err != nil {
				return false, err
			}
		}
		return redirect(req, res, false), nil

	case "forum-list":
		if err := d.require(req.Authname, CapView); err != nil {
			return false, err
		}
		res.Order = orderOr(req.Order, "id")
		res.Asc = req.asc(true)
		if res.Groups, err = repo.ListGroups("id", true); err != nil {
			return false, err
		}
		res.Forums, err = repo.ListForums(res.Order, res.Asc)
		return false, err

	case "admin-forum-list":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		res.Order = orderOr(req.Order, "id")
		res.Asc = req.asc(true)
		if res.Users, err = repo.ListUsernames(); err != nil {
			return false, err
		}
		if res.Groups, err = repo.ListGroups("id", true); err != nil {
			return false, err
		}
		res.Forums, err = repo.ListForums(res.Order, res.Asc)
		return false, err

	case "forum-add":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		if res.Users, err = repo.ListUsernames(); err != nil {
			return false, err
		}
		res.Groups, err = repo.ListGroups("id", true)
		return false, err

	case "forum-post-add":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		groupID := req.GroupID
		if groupID == 0 && req.Group != nil {
			groupID = req.Group.ID
		}
		forum := models.Forum{
			Name:        req.Name,
			Author:      req.Authname,
			Subject:     req.Subject,
			Description: req.Description,
			GroupID:     groupID,
		}
		forum.SetModerators(req.Moderators)
		if err := repo.AddForum(&forum); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "forum-post-edit":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		if req.Forum == nil {
			return false, fmt.Errorf("forum-post-edit: no forum addressed")
		}
		if err := repo.EditForum(req.Forum.ID, req.Name, req.Subject,
			req.Description, req.Moderators, req.GroupID); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "forum-delete":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		if err := repo.DeleteForum(req.Forum.ID); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "forums-delete":
		if err := d.require(req.Authname, CapAdmin); err != nil {
			return false, err
		}
		for _, id := range req.Selection {
			if err := repo.DeleteForum(id); err != nil {
				return false, err
			}
		}
		return redirect(req, res, false), nil

	case "topic-list":
		if err := d.require(req.Authname, CapView); err != nil {
			return false, err
		}
		res.Order = orderOr(req.Order, "lastreply")
		res.Asc = req.asc(false)
		start := req.Start
		if start < 0 {
			start = 0
		}
		res.Start = start
		if res.Topics, err = repo.ListTopics(req.Forum.ID, start, res.Order, res.Asc); err != nil {
			return false, err
		}
		if res.TopicCount, err = repo.CountTopics(req.Forum.ID); err != nil {
			return false, err
		}
		if start+repo.TopicsPerPage < res.TopicCount {
			res.NextPage = start + repo.TopicsPerPage
		}
		if start > 0 {
			prev := start - repo.TopicsPerPage
			if prev < 0 {
				prev = 0
			}
			res.PrevPage = prev
		}
		return false, nil

	case "topic-add":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		d.echoForm(req, res)
		return false, nil

	case "topic-quote":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		res.Quote = quote(req.Topic.Body)
		return false, nil

	case "topic-post-add":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		topic := models.Topic{
			ForumID: req.Forum.ID,
			Subject: req.Subject,
			Author:  req.Author,
			Body:    req.Body,
		}
		if err := repo.AddTopic(&topic); err != nil {
			return false, err
		}
		d.queueTopicNotification(repo, req.Forum, topic, afterCommit)
		return redirect(req, res, false), nil

	case "topic-edit":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		if err := requireOwnership(res, req.Topic.Author, req.Authname, "edit topic"); err != nil {
			return false, err
		}
		res.FormSubject = req.Topic.Subject
		res.FormBody = req.Topic.Body
		return false, nil

	case "topic-post-edit":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		if err := requireOwnership(res, req.Topic.Author, req.Authname, "edit topic"); err != nil {
			return false, err
		}
		if err := repo.EditTopic(req.Topic.ID, req.Topic.ForumID, req.Subject, req.Body); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "topic-move":
		if err := d.requireModerator(req, res); err != nil {
			return false, err
		}
		res.Forums, err = repo.ListForums("id", true)
		return false, err

	case "topic-post-move":
		if err := d.requireModerator(req, res); err != nil {
			return false, err
		}
		if err := repo.MoveTopic(req.Topic.ID, req.NewForumID); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "topic-delete":
		if err := d.requireModerator(req, res); err != nil {
			return false, err
		}
		if err := repo.DeleteTopic(req.Topic.ID); err != nil {
			return false, err
		}
		return redirect(req, res, false), nil

	case "message-list":
		if err := d.require(req.Authname, CapView); err != nil {
			return false, err
		}
		return false, d.prepareMessageList(req, res, repo, sess)

	case "wiki-message-list":
		// 嵌入渲染无单独权限门，宿主页面自行控制可见性
		if req.Topic == nil {
			return false, nil
		}
		return false, d.prepareMessageList(req, res, repo, sess)

	case "message-quote":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		res.Quote = quote(req.Message.Body)
		return false, nil

	case "message-post-add":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		replyTo := models.ReplyToTopic
		if req.Message != nil {
			replyTo = req.Message.ID
		}
		message := models.Message{
			ForumID: req.Topic.ForumID,
			TopicID: req.Topic.ID,
			ReplyTo: replyTo,
			Author:  req.Author,
			Body:    req.Body,
		}
		if err := repo.AddMessage(&message); err != nil {
			return false, err
		}
		d.queueMessageNotification(repo, req.Forum, req.Topic, message, afterCommit)
		return redirect(req, res, true), nil

	case "message-edit":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		if err := requireOwnership(res, req.Message.Author, req.Authname, "edit message"); err != nil {
			return false, err
		}
		res.FormBody = req.Message.Body
		return false, nil

	case "message-post-edit":
		if err := d.require(req.Authname, CapAppend); err != nil {
			return false, err
		}
		if err := requireOwnership(res, req.Message.Author, req.Authname, "edit message"); err != nil {
			return false, err
		}
		m := req.Message
		if err := repo.EditMessage(m.ID, m.ForumID, m.TopicID, m.ReplyTo, req.Body); err != nil {
			return false, err
		}
		return redirect(req, res, true), nil

	case "message-delete":
		if err := d.requireModerator(req, res); err != nil {
			return false, err
		}
		if err := repo.DeleteMessage(req.Message.ID); err != nil {
			return false, err
		}
		return redirect(req, res, true), nil

	case "message-set-display":
		if err := d.require(req.Authname, CapView); err != nil {
			return false, err
		}
		sess.SetDisplay(req.Display)
		return false, nil

	default:
		return false, fmt.Errorf("unknown mode %q", mode)
	}
}

// requireModerator gates the moderation-only modes: the MODERATE
// capability plus actual moderator standing for the addressed forum.
func (d *Dispatcher) requireModerator(req *Request, res *Result) error {
	if err := d.require(req.Authname, CapModerate); err != nil {
		return err
	}
	if !res.IsModerator {
		return notModerator(req.Authname, "moderate forum")
	}
	return nil
}

// prepareMessageList loads and shapes a topic's messages for display.
// The viewer's last-visit time for the topic is read, used for unread
// marking, and then advanced to now — the only session write on a
// plain read path.
func (d *Dispatcher) prepareMessageList(req *Request, res *Result, repo *Repository, sess BoardSession) error {
	topic := req.Topic
	visited := sess.LastVisit(topic.ID)
	sess.MarkVisited(topic.ID, time.Now())

	res.TopicNew = topic.CreatedAt.After(visited)
	d.echoForm(req, res)

	res.Display = sess.Display()
	switch res.Display {
	case DisplayFlatAsc, DisplayFlatDesc:
		messages, err := repo.ListMessages(topic.ID, res.Display == DisplayFlatDesc)
		if err != nil {
			return err
		}
		res.Messages = BuildFlat(messages, visited, d.renderer.Body)
	default:
		res.Display = DisplayThreaded
		messages, err := repo.ListMessages(topic.ID, false)
		if err != nil {
			return err
		}
		var err2 error
		res.Messages, err2 = BuildThread(messages, visited, d.renderer.Body)
		if err2 != nil {
			return err2
		}
	}
	return nil
}

// echoForm reflects posted compose fields back for preview rendering.
func (d *Dispatcher) echoForm(req *Request, res *Result) {
	if req.Author != "" {
		res.FormAuthor = d.renderer.Line(req.Author)
	}
	if req.Subject != "" {
		res.FormSubject = d.renderer.Line(req.Subject)
	}
	if req.Body != "" {
		res.FormBody = req.Body
		res.FormBodyHTML = d.renderer.Body(req.Body)
	}
}

func (d *Dispatcher) queueTopicNotification(repo *Repository, forum *models.Forum, topic models.Topic, afterCommit *[]func()) {
	if d.notifier == nil {
		return
	}
	to, err := repo.Recipients(topic.ID)
	if err != nil {
		// 收件人查询失败只影响通知，不影响数据
		to = nil
	}
	t := topic
	*afterCommit = append(*afterCommit, func() {
		d.notifier.TopicCreated(forum, &t, to)
	})
}

func (d *Dispatcher) queueMessageNotification(repo *Repository, forum *models.Forum, topic *models.Topic, message models.Message, afterCommit *[]func()) {
	if d.notifier == nil {
		return
	}
	to, err := repo.Recipients(topic.ID)
	if err != nil {
		to = nil
	}
	m := message
	*afterCommit = append(*afterCommit, func() {
		d.notifier.MessageCreated(forum, topic, &m, to)
	})
}

func orderOr(order, fallback string) string {
	if order == "" {
		return fallback
	}
	return order
}
