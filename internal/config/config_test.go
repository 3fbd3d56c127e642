package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	kitcfg "github.com/shouni/go-comic-kit/pkg/config"
)

func TestLoadConfig(t *testing.T) {
	t.Run("環境変数から読み込む", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "key")
		t.Setenv("TEXT_BACKEND", "gemini")
		t.Setenv("MAX_COMIC_PAGES", "6")
		t.Setenv("PINNED_SEED", "7")
		t.Setenv("HTTP_TIMEOUT", "5s")
		t.Setenv("SERVER_ADDR", ":9090")

		cfg := LoadConfig()
		assert.True(t, cfg.Kit.HasGeminiKey())
		assert.Equal(t, "gemini", cfg.Kit.TextBackend)
		assert.Equal(t, 6, cfg.Kit.MaxComicPages)
		assert.Equal(t, int64(7), cfg.Kit.PinnedSeed)
		assert.Equal(t, 5*time.Second, cfg.Kit.HTTPTimeout)
		assert.Equal(t, ":9090", cfg.ServerAddr)
	})

	t.Run("PINNED_SEED=0 はそのまま 0 になる", func(t *testing.T) {
		t.Setenv("PINNED_SEED", "0")
		assert.Equal(t, int64(0), LoadConfig().Kit.PinnedSeed)
	})

	t.Run("不正な値は既定値になる", func(t *testing.T) {
		t.Setenv("MAX_COMIC_PAGES", "many")
		t.Setenv("HTTP_TIMEOUT", "soon")

		cfg := LoadConfig()
		assert.Equal(t, kitcfg.DefaultMaxComicPages, cfg.Kit.MaxComicPages)
		assert.Equal(t, kitcfg.DefaultHTTPTimeout, cfg.Kit.HTTPTimeout)
	})
}
