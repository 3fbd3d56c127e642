package pollinations

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// TextBackend は Pollinations のテキスト生成を使う自由テキストバックエンドなのだ。
type TextBackend struct {
	http       HTTPClient
	base       string
	multimodal provider.MultimodalFunc
}

// NewTextBackend は新しい TextBackend を生成します。
// multimodal はモデルカタログの vision フラグを引く関数で、nil なら画像を送らないのだ。
func NewTextBackend(httpClient HTTPClient, baseURL string, multimodal provider.MultimodalFunc) (*TextBackend, error) {
	if httpClient == nil {
		return nil, errors.New("HTTPClient が nil なのだ")
	}
	return &TextBackend{
		http:       httpClient,
		base:       baseOrDefault(baseURL, DefaultTextBaseURL),
		multimodal: multimodal,
	}, nil
}

func (b *TextBackend) Name() string { return BackendName }

// Capabilities は自由テキストの記述子を返します。画像の添付はカタログのフラグ次第なのだ。
func (b *TextBackend) Capabilities(ctx context.Context, model string) provider.Capabilities {
	if model == "" {
		model = DefaultTextModel
	}
	caps := provider.FreeTextCapabilities()
	caps.SupportsMultimodal = b.multimodal.Supports(ctx, model)
	return caps
}

type chatMessage struct {
	Role string `json:"role"`
	// Content は文字列か contentPart の配列なのだ。
	Content any `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// GenerateText は指示文とテキストパーツを1つのプロンプトにまとめて送信します。
// 画像パーツがあれば OpenAI 互換の content 配列で POST するのだ。
func (b *TextBackend) GenerateText(ctx context.Context, req provider.TextRequest) (*provider.TextResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultTextModel
	}
	prompt := joinTextParts(req.Instruction, req.Parts)
	images := imageParts(req.Parts)

	getURL := fmt.Sprintf("%s/%s?model=%s", b.base, url.PathEscape(prompt), url.QueryEscape(model))
	var (
		body []byte
		err  error
	)
	switch {
	case len(images) > 0:
		content := append([]contentPart{{Type: "text", Text: prompt}}, images...)
		body, err = b.http.PostJSONAndFetchBytes(ctx, b.base+"/", chatRequest{
			Model:    model,
			Messages: []chatMessage{{Role: "user", Content: content}},
		})
	case len(getURL) <= maxGetURLLength:
		body, err = b.http.FetchBytes(ctx, getURL)
	default:
		body, err = b.http.PostJSONAndFetchBytes(ctx, b.base+"/", chatRequest{
			Model:    model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("Pollinationsへのテキスト生成リクエストに失敗しました: %w", provider.ClassifyHTTPError(err))
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil, provider.NewError(provider.ClassMalformedOutput, "empty text", errors.New("テキストが空の応答なのだ"))
	}
	return &provider.TextResponse{Text: text}, nil
}

func joinTextParts(instruction string, parts []provider.Part) string {
	texts := []string{instruction}
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// imageParts は画像パーツを data URI の content に変換します。
func imageParts(parts []provider.Part) []contentPart {
	var out []contentPart
	for _, p := range parts {
		if p.InlineData == nil || len(p.InlineData.Data) == 0 {
			continue
		}
		uri := "data:" + p.InlineData.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.InlineData.Data)
		out = append(out, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
	}
	return out
}
