package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/pipeline"
)

// modelsCmd は、選択中のバックエンドで使えるモデルを表示するのだ。
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "テキスト・画像バックエンドのモデル一覧を表示するのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appCtx, err := newAppContext(ctx)
		if err != nil {
			return err
		}
		return pipeline.ExecuteModels(ctx, appCtx, cmd.OutOrStdout())
	},
}
