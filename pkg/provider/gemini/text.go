package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"google.golang.org/genai"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// sceneSchemaRecord は応答スキーマの生成だけに使うシーンの形なのだ。
type sceneSchemaRecord struct {
	SceneNumber int              `json:"scene_number" jsonschema:"minimum=1"`
	ImagePrompt string           `json:"image_prompt"`
	Caption     *string          `json:"caption,omitempty"`
	Dialogues   []dialogueSchema `json:"dialogues"`
}

type dialogueSchema struct {
	Character string `json:"character"`
	Line      string `json:"line"`
}

// SceneResponseSchema はシーン配列の JSON Schema を返します。
func SceneResponseSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true, Anonymous: true}
	item := r.Reflect(&sceneSchemaRecord{})
	item.Version = ""
	return &jsonschema.Schema{Type: "array", Items: item}
}

// TextBackend は JSON 応答形式に対応した構造化テキストバックエンドなのだ。
// 応答スキーマと応答 MIME タイプは genai.Models に直接指定します。
type TextBackend struct {
	models      ContentGenerator
	temperature float32
	schema      *jsonschema.Schema
	multimodal  provider.MultimodalFunc
}

// NewTextBackend は新しい TextBackend を生成します。
// multimodal はモデルカタログのフラグを引く関数で、nil なら画像を添付しないのだ。
func NewTextBackend(models ContentGenerator, temperature float32, multimodal provider.MultimodalFunc) (*TextBackend, error) {
	if models == nil {
		return nil, errors.New("ContentGenerator が nil なのだ")
	}
	return &TextBackend{
		models:      models,
		temperature: temperature,
		schema:      SceneResponseSchema(),
		multimodal:  multimodal,
	}, nil
}

func (b *TextBackend) Name() string { return BackendName }

// Capabilities は構造化の記述子を返します。マルチモーダルかどうかはカタログのフラグで決まるのだ。
func (b *TextBackend) Capabilities(ctx context.Context, model string) provider.Capabilities {
	if model == "" {
		model = DefaultTextModel
	}
	return provider.StructuredCapabilities(b.multimodal.Supports(ctx, model))
}

// GenerateText は指示文とパーツを1つのユーザーメッセージとして送信します。
func (b *TextBackend) GenerateText(ctx context.Context, req provider.TextRequest) (*provider.TextResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultTextModel
	}
	parts := append([]*genai.Part{{Text: req.Instruction}}, toGenaiParts(req.Parts)...)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(b.temperature),
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = b.schema
	}

	resp, err := b.models.GenerateContent(ctx, model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, cfg)
	if err != nil {
		return nil, fmt.Errorf("Geminiへのテキスト生成リクエストに失敗しました: %w", classifyAPIError(err))
	}
	if err := checkBlocked(resp); err != nil {
		return nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, provider.NewError(provider.ClassMalformedOutput, "empty text", errors.New("テキストが空の応答なのだ"))
	}
	return &provider.TextResponse{Text: text}, nil
}

// responseText は最初の候補のテキストパーツを連結するのだ。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
