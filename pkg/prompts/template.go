package prompts

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	ModeStructured = "structured"
	ModeFreeText   = "free_text"
)

//go:embed templates/structured.md
var structuredTemplate string

//go:embed templates/free_text.md
var freeTextTemplate string

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeStructured: structuredTemplate,
	ModeFreeText:   freeTextTemplate,
}

// ModeFor は応答形式の指定ができるかどうかでテンプレートのモードを選ぶのだ。
func ModeFor(supportsResponseFormat bool) string {
	if supportsResponseFormat {
		return ModeStructured
	}
	return ModeFreeText
}

// SupportedModes はサポートされているモードをソートして返します。
func SupportedModes() []string {
	modes := slices.Collect(maps.Keys(allTemplates))
	slices.Sort(modes)
	return modes
}

func unknownModeError(mode string) error {
	return fmt.Errorf("サポートされていないモード: '%s'。サポートされているモードは [%s] です",
		mode, strings.Join(SupportedModes(), ", "))
}
