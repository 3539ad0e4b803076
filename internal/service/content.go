package service

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	contentPolicy = bluemonday.UGCPolicy()
	textPolicy    = bluemonday.StrictPolicy()
)

// RenderContent 将 Markdown 正文渲染为经过清洗的 HTML。
func RenderContent(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return string(contentPolicy.SanitizeBytes(buf.Bytes())), nil
}

// SanitizeText 去除所有 HTML，用于评论与联系表单。
// 结果是纯文本，bluemonday 转义出的实体会被还原。
func SanitizeText(input string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(textPolicy.Sanitize(input)))
}
