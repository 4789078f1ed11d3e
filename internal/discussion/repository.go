package discussion

import (
	"errors"
	"sort"
	"time"

	"zhutan/internal/models"

	"gorm.io/gorm"
)

// DefaultTopicsPerPage is the topic-list page size when none is
// configured.
const DefaultTopicsPerPage = 20

// Repository owns all SQL-shaped access to the four board entities.
// Rows are turned into typed models right here and never leave as
// loose maps.
type Repository struct {
	db            *gorm.DB
	TopicsPerPage int
}

func NewRepository(db *gorm.DB, topicsPerPage int) *Repository {
	if topicsPerPage <= 0 {
		topicsPerPage = DefaultTopicsPerPage
	}
	return &Repository{db: db, TopicsPerPage: topicsPerPage}
}

// WithTx returns a repository bound to tx so a whole mode sequence
// can run inside one transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, TopicsPerPage: r.TopicsPerPage}
}

// DB exposes the underlying handle for transaction control.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// ---- single item lookups ----

// GetGroup never reports "not found": unknown ids resolve to the
// virtual group 0 bucket.
func (r *Repository) GetGroup(id int64) (models.Group, error) {
	if id == 0 {
		return models.NoGroup(), nil
	}
	var group models.Group
	err := r.db.First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NoGroup(), nil
	}
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

func (r *Repository) GetForum(id int64) (*models.Forum, error) {
	var forum models.Forum
	err := r.db.First(&forum, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &forum, nil
}

func (r *Repository) GetTopic(id int64) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.First(&topic, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// GetTopicBySubject finds the topic embedded in a wiki page of the
// same name.
func (r *Repository) GetTopicBySubject(subject string) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.Where("subject = ?", subject).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *Repository) GetMessage(id int64) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ---- adds ----
// Create fills in the store-assigned id, so callers read it back from
// the model instead of re-querying by creation time.

func (r *Repository) AddGroup(group *models.Group) error {
	return r.db.Create(group).Error
}

func (r *Repository) AddForum(forum *models.Forum) error {
	return r.db.Create(forum).Error
}

func (r *Repository) AddTopic(topic *models.Topic) error {
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}
	topic.LastReply = topic.CreatedAt
	return r.db.Create(topic).Error
}

// AddMessage inserts the message and pushes the topic's cached
// last-reply time forward. The update is guarded so it can only move
// forward, never back.
func (r *Repository) AddMessage(message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if err := r.db.Create(message).Error; err != nil {
		return err
	}
	return r.db.Model(&models.Topic{}).
		Where("id = ? AND last_reply < ?", message.TopicID, message.CreatedAt).
		Update("last_reply", message.CreatedAt).Error
}

// ---- edits (full-row update of the mutable fields) ----

func (r *Repository) EditGroup(id int64, name, description string) error {
	return r.db.Model(&models.Group{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "description": description}).Error
}

func (r *Repository) EditForum(id int64, name, subject, description string, moderators []string, groupID int64) error {
	f := models.Forum{}
	f.SetModerators(moderators)
	return r.db.Model(&models.Forum{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        name,
			"subject":     subject,
			"description": description,
			"moderators":  f.Moderators,
			"group_id":    groupID,
		}).Error
}

func (r *Repository) EditTopic(id, forumID int64, subject, body string) error {
	return r.db.Model(&models.Topic{}).Where("id = ?", id).
		Updates(map[string]interface{}{"forum_id": forumID, "subject": subject, "body": body}).Error
}

func (r *Repository) EditMessage(id, forumID, topicID, replyTo int64, body string) error {
	return r.db.Model(&models.Message{}).Where("id = ?", id).
		Updates(map[string]interface{}{"forum_id": forumID, "topic_id": topicID, "reply_to": replyTo, "body": body}).Error
}

// MoveTopic reparents the topic and every message under it to the new
// forum in one transaction, so no message is ever orphaned.
func (r *Repository) MoveTopic(topicID, forumID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Topic{}).Where("id = ?", topicID).
			Update("forum_id", forumID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Message{}).Where("topic_id = ?", topicID).
			Update("forum_id", forumID).Error
	})
}

// ---- deletes ----

// DeleteGroup removes the group row and reassigns its forums to the
// virtual group 0. Forums, topics and messages survive.
func (r *Repository) DeleteGroup(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Group{}, id).Error; err != nil {
			return err
		}
		return tx.Model(&models.Forum{}).Where("group_id = ?", id).
			Update("group_id", 0).Error
	})
}

// DeleteForum cascades: messages, then topics, then the forum row.
func (r *Repository) DeleteForum(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("forum_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("forum_id = ?", id).Delete(&models.Topic{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Forum{}, id).Error
	})
}

// DeleteTopic cascades: messages, then the topic row.
func (r *Repository) DeleteTopic(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Topic{}, id).Error
	})
}

// DeleteMessage removes the message and its whole reply subtree.
// The subtree is collected with a worklist, one level per query, and
// deleted deepest level first. No recursion, so reply depth cannot
// blow the stack.
func (r *Repository) DeleteMessage(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		levels := [][]int64{{id}}
		frontier := []int64{id}
		for len(frontier) > 0 {
			var children []int64
			if err := tx.Model(&models.Message{}).Where("reply_to IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}
			if len(children) == 0 {
				break
			}
			levels = append(levels, children)
			frontier = children
		}
		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.Delete(&models.Message{}, levels[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ---- lists ----

// groupOrderColumns 等为各实体允许的排序列，表外的输入一律回退到默认列
var (
	groupOrderColumns = map[string]string{
		"id": "id", "name": "name", "description": "description", "forums": "forums",
	}
	forumOrderColumns = map[string]string{
		"id": "id", "name": "name", "subject": "subject", "description": "description",
		"time": "created_at", "topics": "topics", "replies": "replies",
		"lasttopic": "lasttopic", "lastreply": "lastreply",
	}
	topicOrderColumns = map[string]string{
		"id": "id", "subject": "subject", "author": "author", "time": "created_at",
		"lastreply": "last_reply",
		"replies":   "(SELECT COUNT(*) FROM messages WHERE messages.topic_id = topics.id)",
	}
)

func normalizeOrder(allowed map[string]string, column, fallback string) (string, bool) {
	col, ok := allowed[column]
	if !ok {
		return allowed[fallback], false
	}
	return col, true
}

func direction(asc bool) string {
	if asc {
		return " ASC"
	}
	return " DESC"
}

// ListGroups returns all groups with their forum counts, the virtual
// group 0 bucket included. forums is a computed column, so ordering by
// it happens after the counts are filled in.
func (r *Repository) ListGroups(order string, asc bool) ([]models.Group, error) {
	col, _ := normalizeOrder(groupOrderColumns, order, "id")

	var groups []models.Group
	q := r.db.Model(&models.Group{})
	if col != "forums" {
		q = q.Order(col + direction(asc))
	} else {
		q = q.Order("id ASC")
	}
	if err := q.Find(&groups).Error; err != nil {
		return nil, err
	}

	// 批量统计各分组下的版块数
	type countRow struct {
		GroupID int64
		Count   int
	}
	var counts []countRow
	if err := r.db.Model(&models.Forum{}).
		Select("group_id, COUNT(*) as count").
		Group("group_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	countMap := make(map[int64]int, len(counts))
	for _, c := range counts {
		countMap[c.GroupID] = c.Count
	}
	for i := range groups {
		groups[i].ForumCount = countMap[groups[i].ID]
	}

	noGroup := models.NoGroup()
	noGroup.ForumCount = countMap[0]
	groups = append([]models.Group{noGroup}, groups...)

	if col == "forums" {
		sort.SliceStable(groups, func(i, j int) bool {
			if asc {
				return groups[i].ForumCount < groups[j].ForumCount
			}
			return groups[i].ForumCount > groups[j].ForumCount
		})
	}
	return groups, nil
}

// ListForums returns all forums with their aggregates: topic count,
// total reply count, newest topic time and newest reply time.
func (r *Repository) ListForums(order string, asc bool) ([]models.Forum, error) {
	col, _ := normalizeOrder(forumOrderColumns, order, "id")
	computed := col == "topics" || col == "replies" || col == "lasttopic" || col == "lastreply"

	var forums []models.Forum
	q := r.db.Model(&models.Forum{})
	if computed {
		q = q.Order("id ASC")
	} else {
		q = q.Order(col + direction(asc))
	}
	if err := q.Find(&forums).Error; err != nil {
		return nil, err
	}
	if err := r.fillForumStats(forums); err != nil {
		return nil, err
	}

	if computed {
		less := forumLess(col)
		sort.SliceStable(forums, func(i, j int) bool {
			if asc {
				return less(&forums[i], &forums[j])
			}
			return less(&forums[j], &forums[i])
		})
	}
	return forums, nil
}

func forumLess(col string) func(a, b *models.Forum) bool {
	timeLess := func(a, b *time.Time) bool {
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	}
	switch col {
	case "topics":
		return func(a, b *models.Forum) bool { return a.TopicCount < b.TopicCount }
	case "replies":
		return func(a, b *models.Forum) bool { return a.ReplyCount < b.ReplyCount }
	case "lasttopic":
		return func(a, b *models.Forum) bool { return timeLess(a.LastTopic, b.LastTopic) }
	default: // lastreply
		return func(a, b *models.Forum) bool { return timeLess(a.LastReply, b.LastReply) }
	}
}

// fillForumStats 批量填充版块的主题数、回复数和最新动态时间。
// MAX(created_at) 这类聚合列在部分驱动下会丢失时间类型，所以这里
// 只取原始列，计数和最新时间在内存里归并。
func (r *Repository) fillForumStats(forums []models.Forum) error {
	if len(forums) == 0 {
		return nil
	}
	ids := make([]int64, len(forums))
	index := make(map[int64]*models.Forum, len(forums))
	for i := range forums {
		ids[i] = forums[i].ID
		index[forums[i].ID] = &forums[i]
	}

	var topics []models.Topic
	if err := r.db.Select("forum_id, created_at").
		Where("forum_id IN ?", ids).
		Find(&topics).Error; err != nil {
		return err
	}
	for _, t := range topics {
		f := index[t.ForumID]
		f.TopicCount++
		if f.LastTopic == nil || t.CreatedAt.After(*f.LastTopic) {
			at := t.CreatedAt
			f.LastTopic = &at
		}
	}

	var messages []models.Message
	if err := r.db.Select("forum_id, created_at").
		Where("forum_id IN ?", ids).
		Find(&messages).Error; err != nil {
		return err
	}
	for _, m := range messages {
		f := index[m.ForumID]
		f.ReplyCount++
		if f.LastReply == nil || m.CreatedAt.After(*f.LastReply) {
			at := m.CreatedAt
			f.LastReply = &at
		}
	}
	return nil
}

// ListTopics returns one page of a forum's topics. A negative offset
// is clamped to zero; the page size is fixed by configuration.
func (r *Repository) ListTopics(forumID int64, offset int, order string, asc bool) ([]models.Topic, error) {
	if offset < 0 {
		offset = 0
	}
	col, _ := normalizeOrder(topicOrderColumns, order, "lastreply")

	var topics []models.Topic
	if err := r.db.Model(&models.Topic{}).
		Where("forum_id = ?", forumID).
		Order(col + direction(asc)).
		Limit(r.TopicsPerPage).
		Offset(offset).
		Find(&topics).Error; err != nil {
		return nil, err
	}

	// 批量填充回复数
	if len(topics) > 0 {
		ids := make([]int64, len(topics))
		for i, t := range topics {
			ids[i] = t.ID
		}
		type countRow struct {
			TopicID int64
			Count   int
		}
		var counts []countRow
		if err := r.db.Model(&models.Message{}).
			Select("topic_id, COUNT(*) as count").
			Where("topic_id IN ?", ids).
			Group("topic_id").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		countMap := make(map[int64]int, len(counts))
		for _, c := range counts {
			countMap[c.TopicID] = c.Count
		}
		for i := range topics {
			topics[i].ReplyCount = countMap[topics[i].ID]
		}
	}
	return topics, nil
}

func (r *Repository) CountTopics(forumID int64) (int, error) {
	var count int64
	err := r.db.Model(&models.Topic{}).Where("forum_id = ?", forumID).Count(&count).Error
	return int(count), err
}

// ListMessages returns a topic's messages in creation order, oldest
// first unless desc is set.
func (r *Repository) ListMessages(topicID int64, desc bool) ([]models.Message, error) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var messages []models.Message
	err := r.db.Where("topic_id = ?", topicID).
		Order("created_at " + dir + ", id " + dir).
		Find(&messages).Error
	return messages, err
}

// Recipients is the deduplicated union of the topic's author and
// every message author under it, used as the notification "to" list.
func (r *Repository) Recipients(topicID int64) ([]string, error) {
	topic, err := r.GetTopic(topicID)
	if err != nil {
		return nil, err
	}
	var authors []string
	if err := r.db.Model(&models.Message{}).
		Where("topic_id = ?", topicID).
		Distinct("author").
		Pluck("author", &authors).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var recipients []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			recipients = append(recipients, name)
		}
	}
	if topic != nil {
		add(topic.Author)
	}
	for _, a := range authors {
		add(a)
	}
	return recipients, nil
}

// ---- search ----

func (r *Repository) SearchTopics(query string) ([]models.Topic, error) {
	var topics []models.Topic
	pattern := "%" + query + "%"
	err := r.db.Where("subject ILIKE ? OR body ILIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(50).
		Find(&topics).Error
	return topics, err
}

func (r *Repository) SearchMessages(query string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("body ILIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Limit(50).
		Find(&messages).Error
	return messages, err
}

// ---- timeline windows ----

func (r *Repository) ChangedForums(from, to time.Time) ([]models.Forum, error) {
	var forums []models.Forum
	err := r.db.Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at DESC").Find(&forums).Error
	return forums, err
}

func (r *Repository) ChangedTopics(from, to time.Time) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at DESC").Find(&topics).Error
	return topics, err
}

func (r *Repository) ChangedMessages(from, to time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at DESC").Find(&messages).Error
	return messages, err
}

// ListUsernames enumerates known identities for the moderator picker.
// Never consulted for authorization.
func (r *Repository) ListUsernames() ([]string, error) {
	var names []string
	err := r.db.Model(&models.User{}).Order("username ASC").Pluck("username", &names).Error
	return names, err
}
