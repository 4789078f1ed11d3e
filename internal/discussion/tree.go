package discussion

import (
	"fmt"
	"html/template"
	"time"

	"zhutan/internal/models"
)

// MessageNode is one rendered message plus its replies. For flat
// displays Replies stays empty.
type MessageNode struct {
	models.Message
	BodyHTML template.HTML
	New      bool // created after the viewer's last visit
	Replies  []*MessageNode
}

// BuildThread builds the reply forest from a topic's messages, which
// must already be in base query order. Roots are the direct replies
// to the topic, kept in that order; every other message is attached
// to its parent in encounter order.
//
// A message whose parent is missing from the set makes the whole
// build fail with ErrBrokenThread. The schema's delete cascade should
// make that impossible, so it is a store-consistency failure, not
// something to paper over.
func BuildThread(messages []models.Message, visited time.Time, render func(string) template.HTML) ([]*MessageNode, error) {
	nodes := make(map[int64]*MessageNode, len(messages))
	var roots []*MessageNode

	for i := range messages {
		m := messages[i]
		node := &MessageNode{Message: m, New: m.CreatedAt.After(visited)}
		if render != nil {
			node.BodyHTML = render(m.Body)
		}
		nodes[m.ID] = node
		if m.ReplyTo == models.ReplyToTopic {
			roots = append(roots, node)
		}
	}

	for i := range messages {
		m := messages[i]
		if m.ReplyTo == models.ReplyToTopic {
			continue
		}
		parent, ok := nodes[m.ReplyTo]
		if !ok {
			return nil, fmt.Errorf("message %d replies to unknown message %d: %w", m.ID, m.ReplyTo, ErrBrokenThread)
		}
		parent.Replies = append(parent.Replies, nodes[m.ID])
	}
	return roots, nil
}

// BuildFlat keeps the query order verbatim, only annotating and
// rendering each message.
func BuildFlat(messages []models.Message, visited time.Time, render func(string) template.HTML) []*MessageNode {
	nodes := make([]*MessageNode, 0, len(messages))
	for i := range messages {
		m := messages[i]
		node := &MessageNode{Message: m, New: m.CreatedAt.After(visited)}
		if render != nil {
			node.BodyHTML = render(m.Body)
		}
		nodes = append(nodes, node)
	}
	return nodes
}
