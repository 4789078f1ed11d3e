package discussion

import (
	"reflect"
	"testing"
)

type modeCase struct {
	name     string
	surface  Surface
	action   string
	preview  bool
	group    bool
	forum    bool
	topic    bool
	message  bool
	groupIs0 bool
	want     []string
}

func TestResolveModes(t *testing.T) {
	cases := []modeCase{
		// 无寻址
		{name: "core default", surface: SurfaceCore, want: []string{"forum-list"}},
		{name: "core add forum", surface: SurfaceCore, action: "add", want: []string{"forum-add"}},
		{name: "core post-add forum", surface: SurfaceCore, action: "post-add", want: []string{"forum-post-add", "forum-list"}},
		{name: "admin default", surface: SurfaceAdmin, want: []string{"admin-group-list"}},
		{name: "admin post-add group", surface: SurfaceAdmin, action: "post-add", want: []string{"group-post-add", "admin-group-list"}},
		{name: "admin delete groups", surface: SurfaceAdmin, action: "delete", want: []string{"groups-delete", "admin-group-list"}},
		{name: "wiki default", surface: SurfaceWiki, want: []string{"wiki-message-list"}},

		// 分组寻址
		{name: "group core default", surface: SurfaceCore, group: true, want: []string{"forum-list"}},
		{name: "group core post-add", surface: SurfaceCore, action: "post-add", group: true, want: []string{"forum-post-add", "forum-list"}},
		{name: "group admin default", surface: SurfaceAdmin, group: true, want: []string{"admin-group-list"}},
		{name: "group zero admin default", surface: SurfaceAdmin, group: true, groupIs0: true, want: []string{"admin-forum-list"}},
		{name: "group admin post-add forum", surface: SurfaceAdmin, action: "post-add", group: true, want: []string{"forum-post-add", "admin-forum-list"}},
		{name: "group admin post-edit", surface: SurfaceAdmin, action: "post-edit", group: true, want: []string{"group-post-edit", "admin-group-list"}},
		{name: "group admin delete forums", surface: SurfaceAdmin, action: "delete", group: true, groupIs0: true, want: []string{"forums-delete", "admin-forum-list"}},

		// 版块寻址
		{name: "forum core default", surface: SurfaceCore, forum: true, want: []string{"topic-list"}},
		{name: "forum core add topic", surface: SurfaceCore, action: "add", forum: true, want: []string{"topic-add"}},
		{name: "forum core post-add", surface: SurfaceCore, action: "post-add", forum: true, want: []string{"topic-post-add", "topic-list"}},
		{name: "forum core post-add preview", surface: SurfaceCore, action: "post-add", preview: true, forum: true, want: []string{"topic-add"}},
		{name: "forum core delete", surface: SurfaceCore, action: "delete", forum: true, want: []string{"forum-delete", "forum-list"}},
		{name: "forum admin post-edit", surface: SurfaceAdmin, action: "post-edit", forum: true, want: []string{"forum-post-edit", "admin-forum-list"}},
		{name: "forum admin default", surface: SurfaceAdmin, forum: true, want: []string{"admin-forum-list"}},

		// 主题寻址
		{name: "topic core default", surface: SurfaceCore, topic: true, forum: true, want: []string{"message-list"}},
		{name: "topic core quote", surface: SurfaceCore, action: "quote", topic: true, forum: true, want: []string{"topic-quote", "message-list"}},
		{name: "topic core post-add", surface: SurfaceCore, action: "post-add", topic: true, forum: true, want: []string{"message-post-add", "message-list"}},
		{name: "topic core post-add preview", surface: SurfaceCore, action: "post-add", preview: true, topic: true, forum: true, want: []string{"message-list"}},
		{name: "topic core edit", surface: SurfaceCore, action: "edit", topic: true, forum: true, want: []string{"topic-edit", "message-list"}},
		{name: "topic core post-edit", surface: SurfaceCore, action: "post-edit", topic: true, forum: true, want: []string{"topic-post-edit", "message-list"}},
		{name: "topic core delete", surface: SurfaceCore, action: "delete", topic: true, forum: true, want: []string{"topic-delete", "topic-list"}},
		{name: "topic core move", surface: SurfaceCore, action: "move", topic: true, forum: true, want: []string{"topic-move"}},
		{name: "topic core post-move", surface: SurfaceCore, action: "post-move", topic: true, forum: true, want: []string{"topic-post-move", "topic-list"}},
		{name: "topic core set-display", surface: SurfaceCore, action: "set-display", topic: true, forum: true, want: []string{"message-set-display", "message-list"}},
		{name: "topic wiki post-add", surface: SurfaceWiki, action: "post-add", topic: true, forum: true, want: []string{"message-post-add", "wiki-message-list"}},
		{name: "topic wiki post-edit preview", surface: SurfaceWiki, action: "post-edit", preview: true, topic: true, forum: true, want: []string{"wiki-message-list"}},
		{name: "topic admin anything", surface: SurfaceAdmin, action: "delete", topic: true, forum: true, want: []string{"admin-forum-list"}},

		// 消息寻址
		{name: "message core default", surface: SurfaceCore, message: true, topic: true, forum: true, want: []string{"message-list"}},
		{name: "message core quote", surface: SurfaceCore, action: "quote", message: true, topic: true, forum: true, want: []string{"message-quote", "message-list"}},
		{name: "message core post-add", surface: SurfaceCore, action: "post-add", message: true, topic: true, forum: true, want: []string{"message-post-add", "message-list"}},
		{name: "message core post-edit preview", surface: SurfaceCore, action: "post-edit", preview: true, message: true, topic: true, forum: true, want: []string{"message-list"}},
		{name: "message core delete", surface: SurfaceCore, action: "delete", message: true, topic: true, forum: true, want: []string{"message-delete", "message-list"}},
		{name: "message wiki delete", surface: SurfaceWiki, action: "delete", message: true, topic: true, forum: true, want: []string{"message-delete", "wiki-message-list"}},
		{name: "message admin default", surface: SurfaceAdmin, message: true, topic: true, forum: true, want: []string{"admin-forum-list"}},

		// 未知动作退回默认入口
		{name: "unknown action topic", surface: SurfaceCore, action: "bogus", topic: true, forum: true, want: []string{"message-list"}},
		{name: "unknown action none", surface: SurfaceCore, action: "bogus", want: []string{"forum-list"}},

		// 删除和移动没有预览变体
		{name: "delete ignores preview", surface: SurfaceCore, action: "delete", preview: true, topic: true, forum: true, want: []string{"topic-delete", "topic-list"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveModes(tc.surface, tc.action, tc.preview, tc.group, tc.forum, tc.topic, tc.message, tc.groupIs0)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ResolveModes() = %v, want %v", got, tc.want)
			}
			// 纯函数：重复调用结果一致
			again := ResolveModes(tc.surface, tc.action, tc.preview, tc.group, tc.forum, tc.topic, tc.message, tc.groupIs0)
			if !reflect.DeepEqual(got, again) {
				t.Errorf("ResolveModes() not deterministic: %v then %v", got, again)
			}
		})
	}
}

// 寻址精度：消息压过主题，主题压过版块
func TestResolveModesPrecedence(t *testing.T) {
	withMessage := ResolveModes(SurfaceCore, "delete", false, true, true, true, true, false)
	if !reflect.DeepEqual(withMessage, []string{"message-delete", "message-list"}) {
		t.Errorf("message should win over topic, got %v", withMessage)
	}

	withTopic := ResolveModes(SurfaceCore, "delete", false, true, true, true, false, false)
	if !reflect.DeepEqual(withTopic, []string{"topic-delete", "topic-list"}) {
		t.Errorf("topic should win over forum, got %v", withTopic)
	}

	withForum := ResolveModes(SurfaceCore, "delete", false, true, true, false, false, false)
	if !reflect.DeepEqual(withForum, []string{"forum-delete", "forum-list"}) {
		t.Errorf("forum should win over group, got %v", withForum)
	}
}
