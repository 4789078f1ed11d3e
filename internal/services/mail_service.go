package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zhutan/internal/models"

	"gorm.io/gorm"
)

// MailService delivers new-topic and new-reply notifications. Every
// mail carries a Message-ID derived from the forum/topic/message ids
// so mail clients can thread the board the same way the board threads
// itself; replies reference their parent through In-Reply-To.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	CC       []string
	SiteURL  string
	Enabled  bool

	db *gorm.DB
}

func NewMailService(db *gorm.DB) *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}

	var cc []string
	for _, addr := range strings.Split(os.Getenv("DISCUSSION_CC"), ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			cc = append(cc, addr)
		}
	}

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		CC:       cc,
		SiteURL:  siteURL,
		Enabled:  enabled,
		db:       db,
	}
}

// resolveEmails 把收件人用户名换成注册邮箱，没有邮箱的跳过
func (s *MailService) resolveEmails(usernames []string) []string {
	if len(usernames) == 0 || s.db == nil {
		return nil
	}
	var users []models.User
	if err := s.db.Where("username IN ?", usernames).Find(&users).Error; err != nil {
		log.Printf("Failed to resolve notification recipients: %v", err)
		return nil
	}
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

// hostname 取站点域名作为 Message-ID 的后缀
func (s *MailService) hostname() string {
	u, err := url.Parse(s.SiteURL)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

// MessageID 按 论坛.主题.消息 三段编号生成邮件线程标识；主题本身
// 的消息段为 0
func (s *MailService) MessageID(forumID, topicID, messageID int64) string {
	if messageID < 0 {
		messageID = 0
	}
	return fmt.Sprintf("<%d.%d.%d@%s>", forumID, topicID, messageID, s.hostname())
}

// TopicCreated 通知订阅者有新主题
func (s *MailService) TopicCreated(forum *models.Forum, topic *models.Topic, to []string) {
	body, err := s.parseTemplate("topic.html", map[string]interface{}{
		"Forum":    forum,
		"Topic":    topic,
		"TopicURL": fmt.Sprintf("%s/discussion/%d/%d", s.SiteURL, forum.ID, topic.ID),
	})
	if err != nil {
		log.Printf("Error rendering topic notification: %v", err)
		return
	}

	headers := map[string]string{
		"Message-ID": s.MessageID(forum.ID, topic.ID, 0),
	}
	subject := fmt.Sprintf("[%s] %s", forum.Name, topic.Subject)
	s.sendAsync(to, subject, body, headers)
}

// MessageCreated 通知订阅者有新回复，邮件挂在父消息（或主题）的
// 线程之下
func (s *MailService) MessageCreated(forum *models.Forum, topic *models.Topic, message *models.Message, to []string) {
	body, err := s.parseTemplate("message.html", map[string]interface{}{
		"Forum":    forum,
		"Topic":    topic,
		"Message":  message,
		"TopicURL": fmt.Sprintf("%s/discussion/%d/%d#message-%d",
			s.SiteURL, forum.ID, topic.ID, message.ID),
	})
	if err != nil {
		log.Printf("Error rendering message notification: %v", err)
		return
	}

	parent := s.MessageID(forum.ID, topic.ID, message.ReplyTo)
	headers := map[string]string{
		"Message-ID":  s.MessageID(forum.ID, topic.ID, message.ID),
		"In-Reply-To": parent,
		"References":  parent,
	}
	subject := fmt.Sprintf("Re: [%s] %s", forum.Name, topic.Subject)
	s.sendAsync(to, subject, body, headers)
}

func (s *MailService) sendAsync(usernames []string, subject, body string, headers map[string]string) {
	// 收件与抄送分开：订阅者进 To，运营固定地址进 Cc
	to := dedup(s.resolveEmails(usernames))
	seen := make(map[string]bool, len(to))
	for _, a := range to {
		seen[a] = true
	}
	var cc []string
	for _, a := range s.CC {
		if a != "" && !seen[a] {
			seen[a] = true
			cc = append(cc, a)
		}
	}
	rcpt := append(append([]string{}, to...), cc...)
	if !s.Enabled || len(rcpt) == 0 {
		return
	}

	msg := s.compose(to, cc, subject, body, headers)
	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		err := smtp.SendMail(addr, auth, s.From, rcpt, msg)
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", rcpt, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", rcpt, subject)
		}
	}()
}

// compose 组装邮件原文，头部字段按名称排序保证稳定
func (s *MailService) compose(to, cc []string, subject, body string, headers map[string]string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ","))
	if len(cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(cc, ","))
	}
	fmt.Fprintf(&buf, "From: Zhutan 通讯员 <%s>\r\n", s.From)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, headers[k])
	}
	buf.WriteString("MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

func (s *MailService) parseTemplate(templateName string, data interface{}) (string, error) {
	path := filepath.Join("web", "templates", "email", templateName)
	t, err := template.ParseFiles(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func dedup(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := addrs[:0]
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
