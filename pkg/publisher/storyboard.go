package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// BuildStoryboard はパネルごとの画像、キャプション、台詞を Markdown にまとめます。
func BuildStoryboard(panels []domain.PanelDescriptor, imageNames map[int]string) string {
	var sb strings.Builder
	sb.WriteString("# Storyboard\n\n")

	for _, panel := range panels {
		fmt.Fprintf(&sb, "## Panel %d\n\n", panel.SceneNumber)

		switch name, ok := imageNames[panel.SceneNumber]; {
		case ok:
			fmt.Fprintf(&sb, "![panel %d](%s)\n\n", panel.SceneNumber, name)
		case panel.Failed():
			sb.WriteString("_画像の生成に失敗しました_\n\n")
		}

		if caption := strings.TrimSpace(panel.CaptionText()); caption != "" {
			fmt.Fprintf(&sb, "> %s\n\n", caption)
		}
		for _, line := range panel.Dialogues {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
		if len(panel.Dialogues) > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "<!-- prompt: %s -->\n\n", strings.ReplaceAll(panel.ImagePrompt, "--", "- -"))
	}
	return sb.String()
}
