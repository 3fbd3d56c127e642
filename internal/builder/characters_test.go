package builder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/internal/config"
	kitcfg "github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type memoryReader struct {
	files  map[string][]byte
	opened []string
}

func (m *memoryReader) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.opened = append(m.opened, path)
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) FetchBytes(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

func TestCharacterLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("ローカル、URL、data URI の参照画像を解決できること", func(t *testing.T) {
		dataURI := domain.ReferenceImage{MimeType: "image/png", Data: pngHeader}.DataURI()
		reader := &memoryReader{files: map[string][]byte{
			"chars/characters.yaml": []byte("characters:\n" +
				"  - name: Robot\n    image: robot.png\n" +
				"  - name: Cat\n    image: https://example.com/cat.png\n" +
				"  - name: Bird\n    image: " + dataURI + "\n"),
			"chars/robot.png": pngHeader,
		}}
		var fetched []string
		fetcher := fetcherFunc(func(_ context.Context, url string) ([]byte, error) {
			fetched = append(fetched, url)
			return pngHeader, nil
		})

		refs, err := NewCharacterLoader(reader, fetcher).Load(ctx, "chars/characters.yaml")
		require.NoError(t, err)
		require.Len(t, refs, 3)
		assert.Equal(t, "Robot", refs[0].Name)
		assert.Equal(t, domain.CharacterIDFromName("robot"), refs[0].ID)
		assert.Equal(t, "image/png", refs[0].Image.MimeType)
		assert.Equal(t, []string{"https://example.com/cat.png"}, fetched)
		assert.Contains(t, reader.opened, "chars/robot.png")
		assert.Equal(t, pngHeader, refs[2].Image.Data)
	})

	t.Run("パスが空なら何も読み込まないこと", func(t *testing.T) {
		refs, err := NewCharacterLoader(&memoryReader{}, nil).Load(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, refs)
	})

	t.Run("画像でないデータはエラーになること", func(t *testing.T) {
		reader := &memoryReader{files: map[string][]byte{
			"c.yaml":    []byte("- name: Robot\n  image: robot.txt\n"),
			"robot.txt": []byte("hello"),
		}}
		_, err := NewCharacterLoader(reader, nil).Load(ctx, "c.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Robot")
	})

	t.Run("重複した名前は検証で弾かれること", func(t *testing.T) {
		reader := &memoryReader{files: map[string][]byte{
			"c.yaml": []byte("- name: Robot\n  image: a.png\n- name: robot\n  image: a.png\n"),
			"a.png":  pngHeader,
		}}
		_, err := NewCharacterLoader(reader, nil).Load(ctx, "c.yaml")
		assert.ErrorIs(t, err, domain.ErrDuplicateCharacter)
	})
}

func TestResolveRelative(t *testing.T) {
	assert.Equal(t, "gs://bucket/chars/robot.png", resolveRelative("gs://bucket/chars/c.yaml", "robot.png"))
	assert.Equal(t, "/abs/robot.png", resolveRelative("chars/c.yaml", "/abs/robot.png"))
	assert.Equal(t, "chars/robot.png", resolveRelative("chars/c.yaml", "robot.png"))
}

func TestNewAppContext(t *testing.T) {
	cfg := &config.Config{Kit: kitcfg.DefaultConfig()}

	appCtx, err := NewAppContext(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"pollinations"}, appCtx.Registry.TextBackends())
	assert.Equal(t, []string{"gemini", "pollinations"}, appCtx.Catalog.Backends())

	_, _, err = appCtx.Registry.Text("gemini")
	assert.Error(t, err, "APIキーがなければ gemini は使えないこと")

	t.Run("空欄は設定の既定値で埋まること", func(t *testing.T) {
		req := appCtx.NormalizeRequest(domain.StoryRequest{TextBackend: "gemini"})
		assert.Equal(t, "gemini", req.TextBackend)
		assert.Equal(t, kitcfg.DefaultGeminiModel, req.TextModel)
		assert.Equal(t, "pollinations", req.ImageBackend)
		assert.Empty(t, req.ImageModel)
	})
}

func TestNewAppContext_PinnedSeedZero(t *testing.T) {
	kit := kitcfg.DefaultConfig()
	kit.PinnedSeed = 0
	appCtx, err := NewAppContext(context.Background(), &config.Config{Kit: kit}, nil, nil)
	require.NoError(t, err)

	seed := appCtx.Injector.Seed(domain.StoryRequest{LockSeed: true})
	require.NotNil(t, seed)
	assert.Equal(t, int64(0), *seed)
}
