package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
)

// opts は全コマンドで共有する実行時のパラメータなのだ。
var (
	opts    config.GenerateOptions
	verbose bool
)

// rootCmd は、アプリケーションのルートコマンドなのだ。
var rootCmd = &cobra.Command{
	Use:   "go-comic-kit",
	Short: "物語からコマ割りの台本とパネル画像を生成する漫画ツールなのだ。",
	Long: `短い物語を AI でシーンに分割し、シーンごとの台本（画像プロンプト、キャプション、台詞）と
パネル画像を生成するのだ。Gemini と Pollinations のバックエンドを切り替えられるのだよ。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力するのだ。")

	// --- ソース入力関連 ---
	flags.StringVarP(&opts.StoryFile, "story-file", "f", "", "物語のファイルパス（ローカル or gs://...、'-'で標準入力なのだ）。")
	flags.StringVarP(&opts.CharactersFile, "characters", "c", "", "キャラクター定義（YAML/JSON）のパスなのだ。")

	// --- 生成結果の出力設定 ---
	flags.StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物を保存するディレクトリ（ローカル or gs://...）なのだ。")
	flags.IntVar(&opts.JPEGQuality, "jpeg-quality", 0, "1以上ならパネル画像を指定品質の JPEG で保存するのだ。")

	// --- 生成パラメータ ---
	flags.IntVarP(&opts.NumPages, "pages", "p", config.DefaultNumPages, "生成するコマ数なのだ（MAX_COMIC_PAGES で上限が決まるのだ）。")
	flags.StringVar(&opts.Style, "style", config.DefaultStyle, "画風なのだ。")
	flags.StringVar(&opts.Era, "era", config.DefaultEra, "時代設定なのだ。")
	flags.StringVar(&opts.AspectRatio, "aspect", config.DefaultAspectRatio, "縦横比（square / portrait / landscape）なのだ。")
	flags.BoolVar(&opts.IncludeCaptions, "captions", false, "キャプションと台詞を生成するのだ。")
	flags.StringVar(&opts.CaptionPlacement, "placement", config.DefaultPlacement, "キャプションの表示先（ui / embedded）なのだ。")
	flags.BoolVar(&opts.LockSeed, "lock-seed", false, "全パネルで同じシードを使うのだ。")

	// --- バックエンドとモデル ---
	flags.StringVar(&opts.TextBackend, "text-backend", "", "シーン分割に使うバックエンド（既定は TEXT_BACKEND）なのだ。")
	flags.StringVar(&opts.ImageBackend, "image-backend", "", "画像生成に使うバックエンド（既定は IMAGE_BACKEND）なのだ。")
	flags.StringVar(&opts.TextModel, "model", "", "シーン分割に使うモデル名なのだ。")
	flags.StringVar(&opts.ImageModel, "image-model", "", "画像生成に使うモデル名なのだ。")

	// --- 実行制御 ---
	flags.IntVar(&opts.Concurrency, "concurrency", 0, "2以上なら画像をその数まで並行生成するのだ。")
	flags.DurationVar(&opts.ImageInterval, "image-interval", 0, "画像リクエストの最小間隔なのだ。")
	flags.DurationVar(&opts.HTTPTimeout, "http-timeout", 0, "HTTPリクエストのタイムアウトなのだ（既定は HTTP_TIMEOUT）。")
}

// preRunAppE は、コマンド実行前にログの設定を行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// newAppContext は、環境変数とフラグから AppContext を組み立てるのだ。
func newAppContext(ctx context.Context) (*builder.AppContext, error) {
	cfg := config.LoadConfig()
	cfg.Options = opts

	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}
	return appCtx, nil
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, scriptCmd, imageCmd, modelsCmd, serveCmd)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
