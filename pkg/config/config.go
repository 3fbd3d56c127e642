package config

import (
	"time"
)

// デフォルト値の定義
const (
	DefaultTextBackend   = "pollinations"
	DefaultImageBackend  = "pollinations"
	DefaultGeminiModel   = "gemini-3-flash-preview"
	DefaultImageModel    = "gemini-3-pro-image-preview"
	DefaultMaxComicPages = 10
	DefaultPinnedSeed    = int64(42)
	DefaultTemperature   = float32(0.7)
	DefaultModelCacheTTL = 10 * time.Minute
	DefaultHTTPTimeout   = 120 * time.Second
	DefaultImageWorkers  = 1
)

// Config は Go Comic Kit の Controller とバックエンドを動作させるための基本設定です。
type Config struct {
	// --- Backend Selection ---
	TextBackend  string
	ImageBackend string

	// --- Google AI (Gemini API) Settings ---
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	Temperature      float32

	// --- Pollinations Settings ---
	PollinationsTextURL  string
	PollinationsImageURL string

	// --- Generation Settings ---
	MaxComicPages int
	PinnedSeed    int64
	ImageInterval time.Duration // 画像リクエストの最小間隔
	ImageWorkers  int           // 2以上で並行生成

	// --- Timeout & Cache ---
	HTTPTimeout   time.Duration
	ModelCacheTTL time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		TextBackend:      DefaultTextBackend,
		ImageBackend:     DefaultImageBackend,
		GeminiModel:      DefaultGeminiModel,
		GeminiImageModel: DefaultImageModel,
		Temperature:      DefaultTemperature,
		MaxComicPages:    DefaultMaxComicPages,
		PinnedSeed:       DefaultPinnedSeed,
		ImageWorkers:     DefaultImageWorkers,
		HTTPTimeout:      DefaultHTTPTimeout,
		ModelCacheTTL:    DefaultModelCacheTTL,
	}
}

// HasGeminiKey は Gemini の APIキーが設定されているかを返すのだ。
func (c Config) HasGeminiKey() bool {
	return c.GeminiAPIKey != ""
}
