package config

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"

	kitcfg "github.com/shouni/go-comic-kit/pkg/config"
)

// デフォルト値の定義なのだ
const (
	DefaultServerAddr  = ":8080"
	DefaultOutputDir   = "output"
	DefaultStyle       = "comic book"
	DefaultEra         = "contemporary"
	DefaultAspectRatio = "square"
	DefaultPlacement   = "ui"
	DefaultNumPages    = 4
)

// Config はアプリケーション全体の環境設定（APIキーやバックエンド設定）を保持する構造体なのだ。
type Config struct {
	Kit        kitcfg.Config
	ServerAddr string

	Options GenerateOptions
}

// LoadConfig は .env と環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env ファイルが見つからないため、環境変数のみを使います")
	}

	kit := kitcfg.DefaultConfig()
	kit.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", "")
	kit.GeminiModel = envutil.GetEnv("GEMINI_MODEL", kit.GeminiModel)
	kit.GeminiImageModel = envutil.GetEnv("IMAGE_GEMINI_MODEL", kit.GeminiImageModel)
	kit.TextBackend = envutil.GetEnv("TEXT_BACKEND", kit.TextBackend)
	kit.ImageBackend = envutil.GetEnv("IMAGE_BACKEND", kit.ImageBackend)
	kit.PollinationsTextURL = envutil.GetEnv("POLLINATIONS_TEXT_URL", "")
	kit.PollinationsImageURL = envutil.GetEnv("POLLINATIONS_IMAGE_URL", "")
	kit.MaxComicPages = envInt("MAX_COMIC_PAGES", kit.MaxComicPages)
	kit.PinnedSeed = int64(envInt("PINNED_SEED", int(kit.PinnedSeed)))
	kit.HTTPTimeout = envDuration("HTTP_TIMEOUT", kit.HTTPTimeout)

	return &Config{
		Kit:        kit,
		ServerAddr: envutil.GetEnv("SERVER_ADDR", DefaultServerAddr),
	}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	StoryFile      string // --story-file
	ScriptFile     string // --script-file (image コマンド)
	CharactersFile string // --characters

	// 出力関連
	OutputDir   string // --output-dir
	JPEGQuality int    // --jpeg-quality

	// 生成パラメータ
	NumPages         int
	Style            string
	Era              string
	AspectRatio      string
	IncludeCaptions  bool
	CaptionPlacement string
	LockSeed         bool

	// バックエンドとモデル
	TextBackend  string
	ImageBackend string
	TextModel    string
	ImageModel   string

	// 実行制御
	Concurrency   int           // --concurrency
	ImageInterval time.Duration // --image-interval
	HTTPTimeout   time.Duration // --http-timeout
}

func envInt(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("環境変数が整数ではないため既定値を使います", "key", key, "value", raw)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("環境変数が時間の形式ではないため既定値を使います", "key", key, "value", raw)
		return def
	}
	return v
}
