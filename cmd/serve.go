package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/server"
)

var serveAddr string

// serveCmd は、生成実行を HTTP API と websocket で操作するサーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API サーバーを起動するのだ。",
	Long: `POST /api/runs で生成を開始し、GET /api/runs/current で状態を取得、
GET /ws で進捗イベントを受け取れるのだ。同時に実行できるのは1つだけなのだよ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appCtx, err := newAppContext(ctx)
		if err != nil {
			return err
		}
		addr := appCtx.Config.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(appCtx).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "待ち受けアドレスなのだ（既定は SERVER_ADDR）。")
}
