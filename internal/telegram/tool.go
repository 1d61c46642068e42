package telegram

import "strings"

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown 转义 Markdown 消息中的特殊字符，动态文本拼进消息前先过一遍
func EscapeMarkdown(input string) string {
	return markdownEscaper.Replace(input)
}
