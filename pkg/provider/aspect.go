package provider

import "github.com/shouni/go-comic-kit/pkg/domain"

// AspectEnum は列挙値で縦横比を受け取るバックエンド向けの表現を返すのだ。
func AspectEnum(a domain.AspectRatio) string {
	switch a {
	case domain.AspectPortrait:
		return "3:4"
	case domain.AspectLandscape:
		return "16:9"
	default:
		return "1:1"
	}
}

// AspectDimensions はピクセル指定のバックエンド向けに幅と高さを返すのだ。
func AspectDimensions(a domain.AspectRatio) (width, height int) {
	switch a {
	case domain.AspectPortrait:
		return 768, 1024
	case domain.AspectLandscape:
		return 1344, 768
	default:
		return 1024, 1024
	}
}
