package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ImagePromptInput はパネル画像プロンプトの組み立てに必要な値です。
type ImagePromptInput struct {
	Panel   domain.PanelDescriptor
	Request domain.StoryRequest
	// CharacterNote はキャラクター一貫性の指示文なのだ。
	CharacterNote string
}

// BuildImagePrompt はパネルの image_prompt に style/era、構図、キャラクター指示を加えます。
// style/era の付加はここ1か所だけで行い、すでに付いている場合は重ねないのだ。
func BuildImagePrompt(in ImagePromptInput) string {
	base := strings.TrimSpace(in.Panel.ImagePrompt)
	suffix := StyleSuffix(in.Request.Style, in.Request.Era)

	parts := []string{base}
	if !strings.HasSuffix(base, suffix) {
		parts = append(parts, suffix)
	}
	parts = append(parts, "Framing: "+AspectDescription(in.Request.AspectRatio)+".")

	if note := strings.TrimSpace(in.CharacterNote); note != "" {
		parts = append(parts, note)
	}

	if in.Request.IncludeCaptions && in.Request.CaptionPlacement == domain.PlacementEmbedded {
		if text := embeddedText(in.Panel); text != "" {
			parts = append(parts, text)
		}
	} else {
		parts = append(parts, "No text, letters or speech bubbles in the image.")
	}
	return strings.Join(parts, " ")
}

// embeddedText はキャプションと台詞を画像内に描かせる指示を作るのだ。
func embeddedText(p domain.PanelDescriptor) string {
	var sb strings.Builder
	if c := strings.TrimSpace(p.CaptionText()); c != "" {
		fmt.Fprintf(&sb, "Draw a narration box reading %q.", c)
	}
	for _, line := range p.Dialogues {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "Draw a speech bubble: %s.", line)
	}
	return sb.String()
}
