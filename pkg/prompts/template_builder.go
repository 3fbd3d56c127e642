package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// TemplateData はシーン台本生成の指示テンプレートに渡す値です。
type TemplateData struct {
	Story                string
	NumPages             int
	Style                string
	Era                  string
	AspectDescription    string
	IncludeCaptions      bool
	Embedded             bool
	CharacterInstruction string
}

// NewTemplateData は StoryRequest からテンプレート用データを作るのだ。
func NewTemplateData(req domain.StoryRequest, characterInstruction string) TemplateData {
	return TemplateData{
		Story:                req.Story,
		NumPages:             req.NumPages,
		Style:                orDefault(req.Style, DefaultStyle),
		Era:                  orDefault(req.Era, DefaultEra),
		AspectDescription:    AspectDescription(req.AspectRatio),
		IncludeCaptions:      req.IncludeCaptions,
		Embedded:             req.CaptionPlacement == domain.PlacementEmbedded,
		CharacterInstruction: strings.TrimSpace(characterInstruction),
	}
}

// SceneInstructionBuilder はシーン台本生成の指示文を構築します。
type SceneInstructionBuilder struct {
	templates map[string]*template.Template
}

// NewSceneInstructionBuilder は埋め込みテンプレートを解析して初期化します。
func NewSceneInstructionBuilder() (*SceneInstructionBuilder, error) {
	parsed := make(map[string]*template.Template, len(allTemplates))
	for mode, content := range allTemplates {
		if content == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", mode)
		}
		tmpl, err := template.New(mode).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", mode, err)
		}
		parsed[mode] = tmpl
	}
	return &SceneInstructionBuilder{templates: parsed}, nil
}

// Build は、要求されたモードに応じて適切なテンプレートを実行します。
func (b *SceneInstructionBuilder) Build(mode string, data TemplateData) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", unknownModeError(mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}
