package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

const (
	DefaultStyle = "comic book"
	DefaultEra   = "contemporary"

	// StyleMarker は style/era の接尾辞の先頭です。
	StyleMarker = "Style: "
)

// StyleSuffix は style と era を表す接尾辞を返します。
// フォールバックのパネルと画像プロンプトの拡張で同じ文字列を使うのだ。
func StyleSuffix(style, era string) string {
	return fmt.Sprintf(StyleMarker+"%s. Era: %s.", orDefault(style, DefaultStyle), orDefault(era, DefaultEra))
}

// SplitAtStyle は画像プロンプトを本文と、最後の style/era 以降の指示に分けます。
// style/era がなければ directives は空なのだ。
func SplitAtStyle(prompt string) (subject, directives string) {
	i := strings.LastIndex(prompt, StyleMarker)
	if i < 0 {
		return prompt, ""
	}
	return strings.TrimSpace(prompt[:i]), prompt[i:]
}

// AspectDescription はテキストモデル向けの縦横比の説明なのだ。
func AspectDescription(a domain.AspectRatio) string {
	switch a {
	case domain.AspectPortrait:
		return "portrait 3:4 panel, vertical composition"
	case domain.AspectLandscape:
		return "landscape 16:9 panel, wide cinematic composition"
	default:
		return "square 1:1 panel, centered composition"
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
