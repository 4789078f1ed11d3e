package discussion

// Surface is the context the board is being driven from: the
// standalone pages, the admin panel, or embedded in a wiki page.
type Surface string

const (
	SurfaceCore  Surface = "core"
	SurfaceAdmin Surface = "admin"
	SurfaceWiki  Surface = "wiki"
)

// Capability names understood by the permission oracle.
type Capability string

const (
	CapView     Capability = "DISCUSSION_VIEW"
	CapAppend   Capability = "DISCUSSION_APPEND"
	CapModerate Capability = "DISCUSSION_MODERATE"
	CapAdmin    Capability = "DISCUSSION_ADMIN"
)

// branch is the most specific entity addressed by the request.
type branch int

const (
	branchNone branch = iota
	branchGroup
	branchForum
	branchTopic
	branchMessage
)

type modeKey struct {
	branch  branch
	surface Surface
	action  string // "" = default entry for the branch/surface pair
}

// modeTable maps request context to the ordered mode list to execute.
// One flat table instead of nested conditionals so the whole decision
// space can be read, and tested, as data. Actions not present for a
// branch/surface fall back to the "" entry.
var modeTable = map[modeKey][]string{
	// ---- message addressed ----
	{branchMessage, SurfaceAdmin, ""}: {"admin-forum-list"},

	{branchMessage, SurfaceWiki, "add"}:         {"wiki-message-list"},
	{branchMessage, SurfaceWiki, "quote"}:       {"message-quote", "wiki-message-list"},
	{branchMessage, SurfaceWiki, "post-add"}:    {"message-post-add", "wiki-message-list"},
	{branchMessage, SurfaceWiki, "edit"}:        {"message-edit", "wiki-message-list"},
	{branchMessage, SurfaceWiki, "post-edit"}:   {"message-post-edit", "wiki-message-list"},
	{branchMessage, SurfaceWiki, "delete"}:      {"message-delete", "wiki-message-list"},
	{branchMessage, SurfaceWiki, "set-display"}: {"message-set-display", "wiki-message-list"},
	{branchMessage, SurfaceWiki, ""}:            {"wiki-message-list"},

	{branchMessage, SurfaceCore, "add"}:         {"message-list"},
	{branchMessage, SurfaceCore, "quote"}:       {"message-quote", "message-list"},
	{branchMessage, SurfaceCore, "post-add"}:    {"message-post-add", "message-list"},
	{branchMessage, SurfaceCore, "edit"}:        {"message-edit", "message-list"},
	{branchMessage, SurfaceCore, "post-edit"}:   {"message-post-edit", "message-list"},
	{branchMessage, SurfaceCore, "delete"}:      {"message-delete", "message-list"},
	{branchMessage, SurfaceCore, "set-display"}: {"message-set-display", "message-list"},
	{branchMessage, SurfaceCore, ""}:            {"message-list"},

	// ---- topic addressed ----
	{branchTopic, SurfaceAdmin, ""}: {"admin-forum-list"},

	{branchTopic, SurfaceWiki, "add"}:         {"wiki-message-list"},
	{branchTopic, SurfaceWiki, "quote"}:       {"topic-quote", "wiki-message-list"},
	{branchTopic, SurfaceWiki, "post-add"}:    {"message-post-add", "wiki-message-list"},
	{branchTopic, SurfaceWiki, "edit"}:        {"topic-edit", "wiki-message-list"},
	{branchTopic, SurfaceWiki, "post-edit"}:   {"topic-post-edit", "wiki-message-list"},
	{branchTopic, SurfaceWiki, "set-display"}: {"message-set-display", "wiki-message-list"},
	{branchTopic, SurfaceWiki, ""}:            {"wiki-message-list"},

	{branchTopic, SurfaceCore, "add"}:         {"message-list"},
	{branchTopic, SurfaceCore, "quote"}:       {"topic-quote", "message-list"},
	{branchTopic, SurfaceCore, "post-add"}:    {"message-post-add", "message-list"},
	{branchTopic, SurfaceCore, "edit"}:        {"topic-edit", "message-list"},
	{branchTopic, SurfaceCore, "post-edit"}:   {"topic-post-edit", "message-list"},
	{branchTopic, SurfaceCore, "delete"}:      {"topic-delete", "topic-list"},
	{branchTopic, SurfaceCore, "move"}:        {"topic-move"},
	{branchTopic, SurfaceCore, "post-move"}:   {"topic-post-move", "topic-list"},
	{branchTopic, SurfaceCore, "set-display"}: {"message-set-display", "message-list"},
	{branchTopic, SurfaceCore, ""}:            {"message-list"},

	// ---- forum addressed ----
	{branchForum, SurfaceAdmin, "post-edit"}: {"forum-post-edit", "admin-forum-list"},
	{branchForum, SurfaceAdmin, ""}:          {"admin-forum-list"},

	{branchForum, SurfaceWiki, ""}: {"wiki-message-list"},

	{branchForum, SurfaceCore, "add"}:      {"topic-add"},
	{branchForum, SurfaceCore, "post-add"}: {"topic-post-add", "topic-list"},
	{branchForum, SurfaceCore, "delete"}:   {"forum-delete", "forum-list"},
	{branchForum, SurfaceCore, ""}:         {"topic-list"},

	// ---- group addressed ----
	{branchGroup, SurfaceAdmin, "post-add"}:  {"forum-post-add", "admin-forum-list"},
	{branchGroup, SurfaceAdmin, "post-edit"}: {"group-post-edit", "admin-group-list"},
	{branchGroup, SurfaceAdmin, "delete"}:    {"forums-delete", "admin-forum-list"},
	// 默认入口取决于分组是否为虚拟分组 0，见 ResolveModes

	{branchGroup, SurfaceWiki, ""}: {"wiki-message-list"},

	{branchGroup, SurfaceCore, "post-add"}: {"forum-post-add", "forum-list"},
	{branchGroup, SurfaceCore, ""}:         {"forum-list"},

	// ---- nothing addressed ----
	{branchNone, SurfaceAdmin, "post-add"}: {"group-post-add", "admin-group-list"},
	{branchNone, SurfaceAdmin, "delete"}:   {"groups-delete", "admin-group-list"},
	{branchNone, SurfaceAdmin, ""}:         {"admin-group-list"},

	{branchNone, SurfaceWiki, ""}: {"wiki-message-list"},

	{branchNone, SurfaceCore, "add"}:      {"forum-add"},
	{branchNone, SurfaceCore, "post-add"}: {"forum-post-add", "forum-list"},
	{branchNone, SurfaceCore, ""}:         {"forum-list"},
}

// previewTable overrides modeTable when the preview flag is set. Only
// post-add and post-edit are preview-aware: the mutation is dropped
// and the compose view is rendered again. Delete and move carry no
// preview variant on purpose.
var previewTable = map[modeKey][]string{
	{branchMessage, SurfaceWiki, "post-add"}:  {"wiki-message-list"},
	{branchMessage, SurfaceWiki, "post-edit"}: {"wiki-message-list"},
	{branchMessage, SurfaceCore, "post-add"}:  {"message-list"},
	{branchMessage, SurfaceCore, "post-edit"}: {"message-list"},

	{branchTopic, SurfaceWiki, "post-add"}:  {"wiki-message-list"},
	{branchTopic, SurfaceWiki, "post-edit"}: {"wiki-message-list"},
	{branchTopic, SurfaceCore, "post-add"}:  {"message-list"},
	{branchTopic, SurfaceCore, "post-edit"}: {"message-list"},

	{branchForum, SurfaceCore, "post-add"}: {"topic-add"},
}

// ResolveModes maps request context to the ordered list of modes the
// dispatcher will execute. It is a pure lookup: same inputs, same
// output, no state.
//
// Precedence is strict: an addressed message wins over topic, forum
// and group; an addressed topic wins over forum and group; and so on.
// Absent entities (ids that resolved to nothing) must be passed as
// false so the request degrades to a broader listing instead of
// erroring.
func ResolveModes(surface Surface, action string, preview bool, hasGroup, hasForum, hasTopic, hasMessage, groupIsZero bool) []string {
	var b branch
	switch {
	case hasMessage:
		b = branchMessage
	case hasTopic:
		b = branchTopic
	case hasForum:
		b = branchForum
	case hasGroup:
		b = branchGroup
	default:
		b = branchNone
	}

	if preview {
		if modes, ok := previewTable[modeKey{b, surface, action}]; ok {
			return modes
		}
	}
	if modes, ok := modeTable[modeKey{b, surface, action}]; ok {
		return modes
	}

	// 分组分支在 admin 面板下的默认视图：虚拟分组 0 表示从版块页进来
	if b == branchGroup && surface == SurfaceAdmin {
		if groupIsZero {
			return []string{"admin-forum-list"}
		}
		return []string{"admin-group-list"}
	}

	return modeTable[modeKey{b, surface, ""}]
}
