package locale

import "strings"

// 文章支持的语言
const (
	English = "English"
	Hindi   = "Hindi"
)

// Supported 按展示顺序返回支持的语言。
func Supported() []string {
	return []string{English, Hindi}
}

// NormalizeLanguage 接受语言名称或 BCP 47 代码，无法识别时返回空串。
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	switch {
	case trimmed == "english", trimmed == "en", strings.HasPrefix(trimmed, "en-"), strings.HasPrefix(trimmed, "en_"):
		return English
	case trimmed == "hindi", trimmed == "hi", strings.HasPrefix(trimmed, "hi-"), strings.HasPrefix(trimmed, "hi_"),
		trimmed == "हिन्दी", trimmed == "हिंदी":
		return Hindi
	}
	return ""
}
