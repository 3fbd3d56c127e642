package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/pipeline"
)

// scriptCmd は、シーン台本の生成（JSON出力）のみを実行するのだ。
var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "シーン台本（JSON）のみを生成して保存するのだ。",
	Long: `物語をシーンに分割し、シーンごとの画像プロンプト、キャプション、台詞を
JSON形式で標準出力と出力ディレクトリの scenes.json に書き出すのだ。画像生成は行わないのだよ。`,
	RunE: scriptCommand,
}

func scriptCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.StoryFile == "" {
		return fmt.Errorf("物語のファイル（--story-file）を指定してほしいのだ")
	}

	appCtx, err := newAppContext(ctx)
	if err != nil {
		return err
	}

	result, err := pipeline.ExecuteScript(ctx, appCtx, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("台本生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("シーン台本の生成が完了したのだ！", "panels", len(result.Panels), "fallback", result.Fallback, "output_file", result.Path)
	return nil
}
