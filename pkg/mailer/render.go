package mailer

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Render 将模板中的 {key} 替换为 data[key]
// 未提供的占位符原样保留；切片按 ", " 拼接；nil 渲染为空串。不会失败
func Render(template string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		v, ok := data[key]
		if !ok {
			return match
		}
		return formatValue(v)
	})
}

// Trusted 可信 HTML 片段，RenderHTML 不对其转义
type Trusted string

// RenderHTML 同 Render，但字符串值按 HTML 转义（Trusted 除外），用于邮件正文
func RenderHTML(template string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		v, ok := data[key]
		if !ok {
			return match
		}
		if t, ok := v.(Trusted); ok {
			return string(t)
		}
		return html.EscapeString(formatValue(v))
	})
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case Trusted:
		return string(val)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []string:
		return strings.Join(val, ", ")
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// mdRenderer 未开启 WithUnsafe，输入中的原始 HTML 会被转义
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// MarkdownToHTML 将 Markdown 转为 HTML 片段，转换失败时返回转义后的原文
func MarkdownToHTML(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "<pre>" + htmlEscaper.Replace(src) + "</pre>"
	}
	return buf.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;")
