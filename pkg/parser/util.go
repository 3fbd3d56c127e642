package parser

import "unicode/utf8"

// Truncate は診断ログ用に文字列をルーン単位で切り詰めるのだ。
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "...(truncated)"
}
