package utils

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func init() {
	// Allow images
	policy.AllowImages()
	// Force links to open in new tab
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	// Add noopener or noreferrer and follow security best practices
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown 将用户输入的 Markdown 渲染为净化后的 HTML
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)) // Fallback
	}

	// Sanitize HTML
	sanitized := policy.SanitizeBytes(buf.Bytes())

	// Enhance image attributes
	return EnhanceHTMLContent(string(sanitized))
}

// RenderOneliner 把一段输入压成一行纯文本，用于主题列表、标题回显等处
func RenderOneliner(source string) string {
	stripped := strict.Sanitize(source)
	fields := strings.Fields(stripped)
	return strings.Join(fields, " ")
}

// BoardRenderer 讨论区正文渲染器
type BoardRenderer struct{}

func NewBoardRenderer() *BoardRenderer {
	return &BoardRenderer{}
}

func (r *BoardRenderer) Body(source string) template.HTML {
	return RenderMarkdown(source)
}

func (r *BoardRenderer) Line(source string) string {
	return RenderOneliner(source)
}
