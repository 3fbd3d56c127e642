package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/pipeline"
)

// generateCmd は、物語から台本とパネル画像を生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "物語からシーン台本とパネル画像を生成して保存するのだ。",
	Long: `物語をシーンに分割し、各シーンのパネル画像を生成するのだ。
出力は画像ファイル、comic.json（パネル一覧と実行ログ）、storyboard.md になるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.StoryFile == "" {
		return fmt.Errorf("物語のファイル（--story-file）を指定してほしいのだ")
	}

	appCtx, err := newAppContext(ctx)
	if err != nil {
		return err
	}

	result, err := pipeline.ExecuteGenerate(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！",
		"manifest", result.ManifestPath,
		"storyboard", result.StoryboardPath,
		"images", len(result.ImagePaths))
	return nil
}
