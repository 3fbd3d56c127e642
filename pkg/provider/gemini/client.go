// Package gemini は go-gemini-client と google.golang.org/genai を使ったテキスト生成・画像生成バックエンドです。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	geminiclient "github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

const (
	// BackendName はこのバックエンドの識別子なのだ。
	BackendName = "gemini"

	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-3-pro-image-preview"
)

// ContentGenerator は genai.Models のうち、構造化テキスト生成で使う部分だけを切り出したものなのだ。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// PartsGenerator は geminiclient.GenerativeModel のうち、画像生成で使う部分です。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts geminiclient.GenerateOptions) (*geminiclient.Response, error)
}

// NewClient は APIキーから go-gemini-client のクライアントを生成します。
func NewClient(ctx context.Context, apiKey string, temperature float32) (geminiclient.GenerativeModel, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	client, err := geminiclient.NewClient(ctx, geminiclient.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// NewModelsClient は応答スキーマの指定に使う genai のクライアントを生成するのだ。
func NewModelsClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの初期化に失敗しました: %w", err)
	}
	return client, nil
}

// DefaultTextModels はモデル一覧が取れないときの候補なのだ。
func DefaultTextModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "gemini-3-flash-preview", Description: "Fast multimodal model", Multimodal: true},
		{ID: "gemini-3-pro-preview", Description: "High quality multimodal model", Multimodal: true},
		{ID: "gemini-2.5-flash", Description: "Stable multimodal model", Multimodal: true},
	}
}

// DefaultImageModels は画像生成モデルの候補なのだ。
func DefaultImageModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "gemini-3-pro-image-preview", Description: "High fidelity image generation", Multimodal: true},
		{ID: "gemini-2.5-flash-image", Description: "Fast image generation", Multimodal: true},
	}
}

func requireKey(apiKey string) error {
	if apiKey == "" {
		return provider.NewError(provider.ClassPrecondition, "missing api key", errors.New("GEMINI_API_KEY が設定されていないのだ"))
	}
	return nil
}

// policyFinishReasons は安全性によるブロックを表す終了理由です。
var policyFinishReasons = map[genai.FinishReason]struct{}{
	genai.FinishReason("SAFETY"):                   {},
	genai.FinishReason("BLOCKLIST"):                {},
	genai.FinishReason("PROHIBITED_CONTENT"):       {},
	genai.FinishReason("SPII"):                     {},
	genai.FinishReason("IMAGE_SAFETY"):             {},
	genai.FinishReason("IMAGE_PROHIBITED_CONTENT"): {},
	genai.FinishReason("RECITATION"):               {},
}

// classifyAPIError は genai のエラーを分類付きエラーに変換します。
func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.Code, apiErr.Status, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError(apiErrPtr.Code, apiErrPtr.Status, err)
	}
	return provider.ClassifyHTTPError(err)
}

func statusError(code int, status string, err error) error {
	reason := status
	if reason == "" {
		reason = http.StatusText(code)
	}
	return &provider.Error{Class: provider.ClassifyStatus(code), Reason: reason, StatusCode: code, Err: err}
}

// checkBlocked はプロンプトのブロックと候補の終了理由を調べるのだ。
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return provider.NewError(provider.ClassMalformedOutput, "empty response", errors.New("応答が空なのだ"))
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fb.BlockReasonMessage
		if msg == "" {
			msg = "プロンプトがブロックされたのだ"
		}
		return provider.NewError(provider.ClassContentPolicy, string(fb.BlockReason), errors.New(msg))
	}
	if len(resp.Candidates) == 0 {
		return provider.NewError(provider.ClassMalformedOutput, "no candidates", errors.New("候補が返されなかったのだ"))
	}
	cand := resp.Candidates[0]
	if cand == nil {
		return provider.NewError(provider.ClassMalformedOutput, "nil candidate", errors.New("候補が空なのだ"))
	}
	if _, blocked := policyFinishReasons[cand.FinishReason]; blocked {
		return provider.NewError(provider.ClassContentPolicy, blockedCategory(cand), fmt.Errorf("生成が停止されたのだ (finish_reason: %s)", cand.FinishReason))
	}
	return nil
}

// blockedCategory はブロックされた安全性カテゴリを返します。なければ終了理由なのだ。
func blockedCategory(cand *genai.Candidate) string {
	for _, r := range cand.SafetyRatings {
		if r != nil && r.Blocked {
			return string(r.Category)
		}
	}
	return string(cand.FinishReason)
}

func toGenaiParts(parts []provider.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.InlineData != nil:
			out = append(out, &genai.Part{InlineData: &genai.Blob{MIMEType: p.InlineData.MimeType, Data: p.InlineData.Data}})
		case p.Text != "":
			out = append(out, &genai.Part{Text: p.Text})
		}
	}
	return out
}

// clampSeed は int64 のシードを API が受け付ける非負の int32 の範囲に収めるのだ。
func clampSeed(seed *int64) *int64 {
	if seed == nil {
		return nil
	}
	v := *seed & 0x7FFFFFFF
	return &v
}
