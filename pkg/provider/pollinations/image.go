package pollinations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// ImageBackend は Pollinations の画像 URL から画像を取得するバックエンドです。
type ImageBackend struct {
	http HTTPClient
	base string
}

// NewImageBackend は新しい ImageBackend を生成します。
func NewImageBackend(httpClient HTTPClient, baseURL string) (*ImageBackend, error) {
	if httpClient == nil {
		return nil, errors.New("HTTPClient が nil なのだ")
	}
	return &ImageBackend{http: httpClient, base: baseOrDefault(baseURL, DefaultImageBaseURL)}, nil
}

func (b *ImageBackend) Name() string { return BackendName }

// SupportsReferenceImages は参照画像を送れないので false なのだ。
func (b *ImageBackend) SupportsReferenceImages() bool { return false }

// ImageURL はプロンプトと各パラメータから画像の取得 URL を組み立てます。
// URL が maxGetURLLength に収まるように、本文を切り詰めて style/era 以降の指示は残すのだ。
func (b *ImageBackend) ImageURL(req provider.ImageRequest) string {
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}
	width, height := provider.AspectDimensions(req.AspectRatio)

	q := url.Values{}
	q.Set("model", model)
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("nologo", "true")
	if req.Seed != nil {
		q.Set("seed", strconv.FormatInt(*req.Seed, 10))
	}
	prefix := b.base + "/prompt/"
	query := q.Encode()
	prompt := fitPrompt(req.Prompt, maxGetURLLength-len(prefix)-len(query)-1)
	return prefix + url.PathEscape(prompt) + "?" + query
}

// fitPrompt はエスケープ後の長さが budget 以下になるようプロンプトを切り詰めます。
func fitPrompt(prompt string, budget int) string {
	if len(url.PathEscape(prompt)) <= budget {
		return prompt
	}
	subject, directives := prompts.SplitAtStyle(prompt)
	if directives == "" {
		return truncateEscaped(prompt, budget)
	}
	tail := " " + directives
	remaining := budget - len(url.PathEscape(tail))
	if remaining <= 0 {
		return truncateEscaped(prompt, budget)
	}
	return strings.TrimSpace(truncateEscaped(subject, remaining) + tail)
}

// truncateEscaped はルーン単位で切り詰めるのだ。
func truncateEscaped(s string, budget int) string {
	n := 0
	for i, r := range s {
		w := len(url.PathEscape(string(r)))
		if n+w > budget {
			return strings.TrimSpace(s[:i])
		}
		n += w
	}
	return s
}

// GenerateImage は画像を取得し、画像でない応答はエラーにするのだ。
func (b *ImageBackend) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.ImageResult, error) {
	src := b.ImageURL(req)
	data, err := b.http.FetchBytes(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("Pollinationsからの画像取得に失敗しました: %w", provider.ClassifyHTTPError(err))
	}
	if len(data) == 0 {
		return nil, provider.NewError(provider.ClassMalformedOutput, "empty image", errors.New("画像データが空なのだ"))
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, provider.NewError(provider.ClassMalformedOutput, mimeType, errors.New("画像以外のデータが返されたのだ"))
	}
	return &provider.ImageResult{Data: data, MimeType: mimeType, SourceURL: src}, nil
}
