package node

import (
	"strings"
	"unicode/utf8"
)

// TruncateByRunes 按字符数截断，不拆分多字节字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// StripCodeFence 去掉模型输出外层包裹的 Markdown 代码块（如 ```markdown ... ```），内部代码块保持不变
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return t
	}
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return t
	}
	inner := t[nl+1 : len(t)-3]
	depth := 0
	for _, line := range strings.Split(inner, "\n") {
		fence := strings.TrimSpace(line)
		if !strings.HasPrefix(fence, "```") {
			continue
		}
		switch {
		case fence == "```" && depth > 0:
			depth--
		case fence == "```":
			// 裸围栏先于任何开启围栏出现，首尾并非同一代码块
			return t
		default:
			depth++
		}
	}
	if depth != 0 {
		return t
	}
	return strings.TrimSpace(inner)
}
