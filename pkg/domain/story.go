package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinStoryLength = 20
	MaxStoryLength = 60000
	// DefaultMaxComicPages は MAX_COMIC_PAGES が未設定のときの上限なのだ。
	DefaultMaxComicPages = 10
)

var (
	ErrEmptyStory    = errors.New("物語のテキストが空なのだ")
	ErrStoryTooShort = fmt.Errorf("物語は%d文字以上必要なのだ", MinStoryLength)
	ErrStoryTooLong  = fmt.Errorf("物語は%d文字以内にしてほしいのだ", MaxStoryLength)
)

// AspectRatio はパネルの縦横比タグです。
type AspectRatio string

const (
	AspectSquare    AspectRatio = "square"
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"
)

// Valid は既知のタグかどうかを返すのだ。
func (a AspectRatio) Valid() bool {
	switch a {
	case AspectSquare, AspectPortrait, AspectLandscape:
		return true
	}
	return false
}

// CaptionPlacement はキャプションの表示先です。
type CaptionPlacement string

const (
	// PlacementUI はキャプションを画像の外（UI 側）に表示します。
	PlacementUI CaptionPlacement = "ui"
	// PlacementEmbedded はキャプションと台詞を画像の中に描き込ませます。
	PlacementEmbedded CaptionPlacement = "embedded"
)

// StoryRequest は1回の生成実行への入力です。生成開始後は変更しないのだ。
type StoryRequest struct {
	Story            string               `json:"story"`
	NumPages         int                  `json:"num_pages"`
	Style            string               `json:"style"`
	Era              string               `json:"era"`
	AspectRatio      AspectRatio          `json:"aspect_ratio"`
	IncludeCaptions  bool                 `json:"include_captions"`
	CaptionPlacement CaptionPlacement     `json:"caption_placement"`
	TextBackend      string               `json:"text_backend"`
	ImageBackend     string               `json:"image_backend"`
	TextModel        string               `json:"text_model"`
	ImageModel       string               `json:"image_model"`
	Characters       []CharacterReference `json:"characters,omitempty"`
	LockSeed         bool                 `json:"lock_seed"`
}

// ClampPages はページ数を [1, maxPages] に収めるのだ。
func ClampPages(n, maxPages int) int {
	if maxPages < 1 {
		maxPages = DefaultMaxComicPages
	}
	if n < 1 {
		return 1
	}
	if n > maxPages {
		return maxPages
	}
	return n
}

// Prepare は入力を検証し、既定値を補った独立したコピーを返します。
// ページ数はネットワーク呼び出しより前にここでクランプされるのだ。
func (r StoryRequest) Prepare(maxPages int) (StoryRequest, error) {
	out := r
	out.Story = strings.TrimSpace(r.Story)

	switch n := utf8.RuneCountInString(out.Story); {
	case n == 0:
		return StoryRequest{}, ErrEmptyStory
	case n < MinStoryLength:
		return StoryRequest{}, ErrStoryTooShort
	case n > MaxStoryLength:
		return StoryRequest{}, ErrStoryTooLong
	}
	return out.PrepareOptions(maxPages)
}

// PrepareOptions は物語以外の項目だけを検証・正規化します。
// 保存済みの台本から画像だけを作るときに使うのだ。
func (r StoryRequest) PrepareOptions(maxPages int) (StoryRequest, error) {
	out := r
	out.NumPages = ClampPages(r.NumPages, maxPages)
	out.Style = strings.TrimSpace(r.Style)
	out.Era = strings.TrimSpace(r.Era)
	if !out.AspectRatio.Valid() {
		out.AspectRatio = AspectSquare
	}
	if out.CaptionPlacement != PlacementEmbedded {
		out.CaptionPlacement = PlacementUI
	}

	if err := ValidateCharacters(r.Characters); err != nil {
		return StoryRequest{}, err
	}
	out.Characters = make([]CharacterReference, 0, len(r.Characters))
	for _, c := range r.Characters {
		ref := c
		ref.Name = strings.TrimSpace(c.Name)
		if ref.ID == "" {
			ref.ID = CharacterIDFromName(ref.Name)
		}
		ref.Image.Data = append([]byte(nil), c.Image.Data...)
		out.Characters = append(out.Characters, ref)
	}
	return out, nil
}

// HasCharacters はキャラクター参照が1件以上あるかを返すのだ。
func (r StoryRequest) HasCharacters() bool {
	return len(r.Characters) > 0
}
