package gemini

import (
	"context"
	"errors"
	"fmt"

	geminiclient "github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// ImageBackend は Gemini の画像生成モデルを使うバックエンドなのだ。
type ImageBackend struct {
	client PartsGenerator
}

// NewImageBackend は新しい ImageBackend を生成します。
func NewImageBackend(client PartsGenerator) (*ImageBackend, error) {
	if client == nil {
		return nil, errors.New("PartsGenerator が nil なのだ")
	}
	return &ImageBackend{client: client}, nil
}

func (b *ImageBackend) Name() string { return BackendName }

// SupportsReferenceImages は参照画像を inline パーツとして添付できるので true なのだ。
func (b *ImageBackend) SupportsReferenceImages() bool { return true }

// GenerateImage はプロンプトと参照画像から1枚のパネル画像を生成します。
func (b *ImageBackend) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.ImageResult, error) {
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: ref.MimeType, Data: ref.Data}})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})

	opts := geminiclient.GenerateOptions{
		AspectRatio: provider.AspectEnum(req.AspectRatio),
		Seed:        clampSeed(req.Seed),
	}

	resp, err := b.client.GenerateWithParts(ctx, model, parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Geminiへの画像生成リクエストに失敗しました: %w", classifyAPIError(err))
	}
	return parseImageResponse(resp)
}

// parseImageResponse は RawResponse から最初の inline 画像を取り出すのだ。
func parseImageResponse(resp *geminiclient.Response) (*provider.ImageResult, error) {
	if resp == nil {
		return nil, provider.NewError(provider.ClassMalformedOutput, "empty response", errors.New("応答が空なのだ"))
	}
	raw := resp.RawResponse
	if err := checkBlocked(raw); err != nil {
		return nil, err
	}
	cand := raw.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &provider.ImageResult{Data: part.InlineData.Data, MimeType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return nil, provider.NewError(provider.ClassMalformedOutput, "no image",
		fmt.Errorf("画像データが含まれていない応答なのだ (finish_reason: %s)", cand.FinishReason))
}
