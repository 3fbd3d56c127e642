package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/pipeline"
)

// imageCmd は、既存のシーン台本を読み込んで画像生成だけを行うサブコマンドなのだ。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "シーン台本JSONから画像を生成して保存するのだ。",
	Long: `script コマンドで保存した（または手で修正した）シーン台本を読み込み、パネル画像の生成と保存を実行するのだ。
テキスト生成のコストを抑えつつ、画像の再生成や調整を行いたい場合に便利なのだ。`,
	RunE: imageCommand,
}

func init() {
	imageCmd.Flags().StringVarP(&opts.ScriptFile, "script-file", "s", "", "読み込むシーン台本のパスなのだ。")
}

func imageCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if opts.ScriptFile == "" {
		return fmt.Errorf("読み込むJSONファイル（--script-file）を指定してほしいのだ")
	}

	appCtx, err := newAppContext(ctx)
	if err != nil {
		return err
	}

	slog.Info("画像生成モードを起動するのだ！", "script_file", opts.ScriptFile, "output_dir", opts.OutputDir)
	result, err := pipeline.ExecuteImage(ctx, appCtx)
	if err != nil {
		return fmt.Errorf("画像生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("画像生成と保存が完了したのだ！", "manifest", result.ManifestPath, "images", len(result.ImagePaths))
	return nil
}
