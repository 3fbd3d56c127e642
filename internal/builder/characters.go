package builder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/parser"
)

// ByteFetcher は http(s) の参照画像を取得するためのインターフェースです。
type ByteFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// CharacterLoader はキャラクター定義ファイルを読み込み、参照画像を解決するのだ。
type CharacterLoader struct {
	reader  parser.InputReader
	fetcher ByteFetcher
}

// NewCharacterLoader は新しい CharacterLoader を生成します。
func NewCharacterLoader(reader parser.InputReader, fetcher ByteFetcher) *CharacterLoader {
	return &CharacterLoader{reader: reader, fetcher: fetcher}
}

// LoadCharacters は AppContext の入力元と HTTP クライアントでキャラクター定義を読み込みます。
// filePath が空なら nil を返すのだ。
func (a *AppContext) LoadCharacters(ctx context.Context, filePath string) ([]domain.CharacterReference, error) {
	return NewCharacterLoader(a.Reader, a.httpClient).Load(ctx, filePath)
}

// Load は定義ファイルを読み込み、検証済みのキャラクター参照を返します。
func (l *CharacterLoader) Load(ctx context.Context, filePath string) ([]domain.CharacterReference, error) {
	if filePath == "" {
		return nil, nil
	}
	data, err := l.read(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("キャラクター定義ファイル '%s' の読み込みに失敗しました: %w", filePath, err)
	}
	entries, err := domain.ParseCharacterFile(data)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.CharacterReference, 0, len(entries))
	for _, entry := range entries {
		img, err := l.resolveImage(ctx, filePath, entry.Image)
		if err != nil {
			return nil, fmt.Errorf("キャラクター '%s' の参照画像を取得できませんでした: %w", entry.Name, err)
		}
		refs = append(refs, domain.NewCharacterReference(entry.Name, img))
	}
	if err := domain.ValidateCharacters(refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (l *CharacterLoader) resolveImage(ctx context.Context, filePath, src string) (domain.ReferenceImage, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return domain.ReferenceImage{}, domain.ErrMissingReferenceImage
	case strings.HasPrefix(src, "data:"):
		return domain.ParseDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if l.fetcher == nil {
			return domain.ReferenceImage{}, fmt.Errorf("HTTPクライアントが設定されていないのだ")
		}
		data, err := l.fetcher.FetchBytes(ctx, src)
		if err != nil {
			return domain.ReferenceImage{}, err
		}
		return imageFromBytes(data)
	default:
		data, err := l.read(ctx, resolveRelative(filePath, src))
		if err != nil {
			return domain.ReferenceImage{}, err
		}
		return imageFromBytes(data)
	}
}

func (l *CharacterLoader) read(ctx context.Context, p string) ([]byte, error) {
	rc, err := l.reader.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolveRelative は定義ファイルからの相対パスを、定義ファイルと同じ場所を基準に解決するのだ。
func resolveRelative(filePath, src string) string {
	if strings.Contains(src, "://") || filepath.IsAbs(src) {
		return src
	}
	if strings.Contains(filePath, "://") {
		return path.Join(path.Dir(filePath), src)
	}
	return filepath.Join(filepath.Dir(filePath), src)
}

func imageFromBytes(data []byte) (domain.ReferenceImage, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return domain.ReferenceImage{}, fmt.Errorf("画像ではないデータなのだ (%s)", mime)
	}
	return domain.ReferenceImage{MimeType: mime, Data: data}, nil
}
