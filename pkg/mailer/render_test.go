package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		want     string
	}{
		{"单个占位符", "Ciao {name}", map[string]interface{}{"name": "Mario"}, "Ciao Mario"},
		{"缺失键保持原样", "Sala {room}", map[string]interface{}{}, "Sala {room}"},
		{"nil 渲染为空", "[{x}]", map[string]interface{}{"x": nil}, "[]"},
		{"切片逗号拼接", "{list}", map[string]interface{}{"list": []string{"a", "b"}}, "a, b"},
		{"数字", "Totale: {n}", map[string]interface{}{"n": 42}, "Totale: 42"},
		{"重复占位符", "{a}-{a}", map[string]interface{}{"a": "x"}, "x-x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.data))
		})
	}
}

func TestRenderHTML(t *testing.T) {
	data := map[string]interface{}{
		"guest":   "D'Angelo <b>",
		"section": Trusted("<p>ok</p>"),
		"n":       3,
	}

	out := RenderHTML("<p>{guest}</p>{section}<i>{n}</i>{missing}", data)
	assert.Equal(t, "<p>D&#39;Angelo &lt;b&gt;</p><p>ok</p><i>3</i>{missing}", out)

	// 主题为纯文本，不转义
	assert.Equal(t, "D'Angelo <b>", Render("{guest}", data))
}

func TestMarkdownToHTML(t *testing.T) {
	out := MarkdownToHTML("**Attenzione**\nriga due")
	assert.Contains(t, out, "<strong>Attenzione</strong>")
	assert.Contains(t, out, "<br")

	// 原始 HTML 不应透传
	out = MarkdownToHTML("<script>alert(1)</script>")
	assert.False(t, strings.Contains(out, "<script>"))

	assert.Equal(t, "", MarkdownToHTML("   "))
}
