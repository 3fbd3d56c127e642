package parser

import "regexp"

var (
	// jsonFenceRegex は ```json ... ``` 形式のフェンスの中身をキャプチャします。
	// 最初に現れたブロックだけを対象にするのだ。
	jsonFenceRegex = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)```")

	// trailingCommaRegex は閉じ括弧の直前に残った余分なカンマに一致します。
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
)
