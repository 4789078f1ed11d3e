package discussion

import (
	"errors"
	"testing"
	"time"

	"zhutan/internal/models"
)

func threadMessages() []models.Message {
	// 1 和 3 直接回复主题，2 回复 1，4 回复 3
	return []models.Message{
		{ID: 1, TopicID: 10, ReplyTo: models.ReplyToTopic, Author: "a"},
		{ID: 2, TopicID: 10, ReplyTo: 1, Author: "b"},
		{ID: 3, TopicID: 10, ReplyTo: models.ReplyToTopic, Author: "c"},
		{ID: 4, TopicID: 10, ReplyTo: 3, Author: "d"},
	}
}

func TestBuildThread(t *testing.T) {
	roots, err := BuildThread(threadMessages(), time.Time{}, nil)
	if err != nil {
		t.Fatalf("BuildThread failed: %v", err)
	}

	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].ID != 1 || roots[1].ID != 3 {
		t.Errorf("root order wrong: %d, %d", roots[0].ID, roots[1].ID)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != 2 {
		t.Errorf("message 2 should hang under 1")
	}
	if len(roots[1].Replies) != 1 || roots[1].Replies[0].ID != 4 {
		t.Errorf("message 4 should hang under 3")
	}
}

func TestBuildThreadBroken(t *testing.T) {
	messages := []models.Message{
		{ID: 1, TopicID: 10, ReplyTo: models.ReplyToTopic},
		{ID: 2, TopicID: 10, ReplyTo: 99}, // 父消息不存在
	}
	_, err := BuildThread(messages, time.Time{}, nil)
	if err == nil {
		t.Fatal("expected error for orphan message")
	}
	if !errors.Is(err, ErrBrokenThread) {
		t.Errorf("expected ErrBrokenThread, got %v", err)
	}
}

func TestBuildThreadNewMarking(t *testing.T) {
	visited := time.Now().Add(-time.Hour)
	old := visited.Add(-time.Hour)
	fresh := visited.Add(time.Minute)

	messages := []models.Message{
		{ID: 1, ReplyTo: models.ReplyToTopic, CreatedAt: old},
		{ID: 2, ReplyTo: models.ReplyToTopic, CreatedAt: fresh},
	}
	roots, err := BuildThread(messages, visited, nil)
	if err != nil {
		t.Fatalf("BuildThread failed: %v", err)
	}
	if roots[0].New {
		t.Error("old message marked new")
	}
	if !roots[1].New {
		t.Error("fresh message not marked new")
	}
}

func TestBuildFlat(t *testing.T) {
	nodes := BuildFlat(threadMessages(), time.Time{}, nil)
	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}
	// 顺序原样保留，不挂子树
	for i, want := range []int64{1, 2, 3, 4} {
		if nodes[i].ID != want {
			t.Errorf("position %d: got %d, want %d", i, nodes[i].ID, want)
		}
		if len(nodes[i].Replies) != 0 {
			t.Errorf("flat node %d should have no replies", nodes[i].ID)
		}
	}
}
