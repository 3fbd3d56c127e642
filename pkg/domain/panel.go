package domain

import (
	"encoding/base64"
	"fmt"
)

const (
	// ImageErrorSentinel は画像取得に失敗したパネルの ImageURL に入る値なのだ。
	ImageErrorSentinel = "error"
	// DefaultImagePrompt は image_prompt が欠けていた場合のプレースホルダーです。
	DefaultImagePrompt = "A comic panel illustrating the next moment of the story."
)

// PanelImage は生成されたパネル画像のバイナリです。
type PanelImage struct {
	Data     []byte
	MimeType string
	Seed     *int64
}

// DataURI は画像を表示可能な data URI として返します。
func (img PanelImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// PanelDescriptor は正規化済みの1コマ分の台本です。
// 正規化で生成された後に変更されるのは、画像取得による ImageURL と Image だけなのだ。
type PanelDescriptor struct {
	SceneNumber int      `json:"scene_number"`
	ImagePrompt string   `json:"image_prompt"`
	Caption     *string  `json:"caption,omitempty"`
	Dialogues   []string `json:"dialogues"`
	ImageURL    string   `json:"imageUrl,omitempty"`

	Image *PanelImage `json:"-"`
}

// CaptionText はキャプションがない場合に空文字を返します。
func (p PanelDescriptor) CaptionText() string {
	if p.Caption == nil {
		return ""
	}
	return *p.Caption
}

// HasImage は画像取得が成功しているかどうかを返すのだ。
func (p PanelDescriptor) HasImage() bool {
	return p.ImageURL != "" && p.ImageURL != ImageErrorSentinel
}

// Failed は画像取得が失敗したパネルかどうかを返すのだ。
func (p PanelDescriptor) Failed() bool {
	return p.ImageURL == ImageErrorSentinel
}

// Clone はスライスとポインタを複製したコピーを返します。
func (p PanelDescriptor) Clone() PanelDescriptor {
	c := p
	if p.Caption != nil {
		caption := *p.Caption
		c.Caption = &caption
	}
	c.Dialogues = append(make([]string, 0, len(p.Dialogues)), p.Dialogues...)
	if p.Image != nil {
		img := *p.Image
		c.Image = &img
	}
	return c
}

// StringPtr は文字列のポインタを返すヘルパーなのだ。
func StringPtr(s string) *string {
	return &s
}
