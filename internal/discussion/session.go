package discussion

import (
	"html/template"
	"time"

	"zhutan/internal/models"
)

// Display preferences for the message list.
const (
	DisplayThreaded = "threaded"
	DisplayFlatAsc  = "flat-asc"
	DisplayFlatDesc = "flat-desc"
)

// BoardSession is the per-caller state the board keeps between
// requests: when each topic was last viewed and how the message list
// should be displayed. Backed by the web session; never shared across
// callers.
type BoardSession interface {
	LastVisit(topicID int64) time.Time
	MarkVisited(topicID int64, at time.Time)
	Display() string
	SetDisplay(display string)
}

// PermissionChecker is the authorization oracle. Implementations must
// fail closed: any doubt means false.
type PermissionChecker interface {
	HasCapability(username string, cap Capability) bool
}

// Notifier receives successfully committed creations. Delivery is
// best effort; implementations swallow their own failures, and the
// dispatcher only calls it after the transaction has committed.
type Notifier interface {
	TopicCreated(forum *models.Forum, topic *models.Topic, to []string)
	MessageCreated(forum *models.Forum, topic *models.Topic, message *models.Message, to []string)
}

// TextRenderer converts author-entered rich text to safe display
// markup. Raw bodies never reach a view without passing through it.
type TextRenderer interface {
	Body(source string) template.HTML
	Line(source string) string
}
