package runner

import (
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
)

const (
	// FallbackCaption は簡易生成になったことを示すキャプションなのだ。
	FallbackCaption = "[Fallback] Automatic scene breakdown was unavailable."
	// FallbackDialogue はフォールバックパネルの唯一の台詞です。
	FallbackDialogue = "The story could not be split into scenes, so it is shown as a single panel."
	// FallbackWarning は利用者に表示する致命的でない警告なのだ。
	FallbackWarning = "シーン分割に失敗したため、物語全体を1コマで生成します"
)

// SynthesizeFallback は物語全文から1コマだけの台本を作ります。
// image_prompt は style/era の接尾辞で終わるので、画像取得側で重ねて付加されないのだ。
func SynthesizeFallback(req domain.StoryRequest) domain.PanelDescriptor {
	return domain.PanelDescriptor{
		SceneNumber: 1,
		ImagePrompt: strings.TrimSpace(req.Story) + " " + prompts.StyleSuffix(req.Style, req.Era),
		Caption:     domain.StringPtr(FallbackCaption),
		Dialogues:   []string{FallbackDialogue},
	}
}
