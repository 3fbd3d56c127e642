package provider

import (
	"context"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// TextBackend はシーン台本を生成するテキスト生成バックエンドです。
type TextBackend interface {
	Name() string
	// Capabilities は指定モデルで使える機能を返すのだ。
	Capabilities(ctx context.Context, model string) Capabilities
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
}

// ImageBackend はパネル画像を生成するバックエンドです。
type ImageBackend interface {
	Name() string
	// SupportsReferenceImages は参照画像による image-to-image の誘導を受け付けるかを返すのだ。
	SupportsReferenceImages() bool
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// ModelLister はバックエンドが提供するモデル一覧を取得します。
type ModelLister interface {
	ListModels(ctx context.Context, kind ModelKind) ([]ModelInfo, error)
}

// InlineData はリクエストに添付するバイナリです。
type InlineData struct {
	MimeType string
	Data     []byte
}

// Part はテキストか画像のどちらか一方を持つリクエストの部品なのだ。
type Part struct {
	Text       string
	InlineData *InlineData
}

// TextPart はテキストの Part を作るヘルパーです。
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart は参照画像の Part を作るヘルパーです。
func ImagePart(img domain.ReferenceImage) Part {
	return Part{InlineData: &InlineData{MimeType: img.MimeType, Data: img.Data}}
}

// TextRequest はテキスト生成リクエストです。
type TextRequest struct {
	Model       string
	Instruction string
	Parts       []Part
	// JSONResponse は「JSONのみを返す」応答形式を要求するかどうかなのだ。
	JSONResponse bool
}

// TextResponse はテキスト生成の結果です。
type TextResponse struct {
	Text string
}

// ImageRequest は画像生成リクエストです。
type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio domain.AspectRatio
	Seed        *int64
	References  []InlineData
}

// ImageResult は画像生成の結果です。
type ImageResult struct {
	Data     []byte
	MimeType string
	// SourceURL はバックエンドが URL で画像を返した場合の取得元なのだ。
	SourceURL string
}

// ModelKind はモデル一覧の種類です。
type ModelKind string

const (
	KindText  ModelKind = "text"
	KindImage ModelKind = "image"
)

// ModelInfo はモデル一覧の1件です。
type ModelInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Multimodal  bool   `json:"multimodal,omitempty"`
}
