package utils

import (
	"strings"
	"testing"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	html := string(RenderMarkdown("**bold** <script>alert(1)</script>"))

	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered: %s", html)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script tag survived sanitization: %s", html)
	}
}

func TestRenderMarkdownRawHTML(t *testing.T) {
	html := string(RenderMarkdown(`<img src=x onerror="alert(1)">text`))

	if strings.Contains(html, "onerror") {
		t.Errorf("event handler survived sanitization: %s", html)
	}
	if !strings.Contains(html, "text") {
		t.Errorf("content lost: %s", html)
	}
}

func TestRenderOneliner(t *testing.T) {
	got := RenderOneliner("a <b>bold</b>\nline\twith   spaces")
	if got != "a bold line with spaces" {
		t.Errorf("RenderOneliner = %q", got)
	}
}
