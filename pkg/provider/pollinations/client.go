// Package pollinations は認証不要の Pollinations API を使うバックエンドです。
// JSON 応答形式の保証がないので、自由テキストとして扱うのだ。
package pollinations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

const (
	BackendName = "pollinations"

	DefaultTextBaseURL  = "https://text.pollinations.ai"
	DefaultImageBaseURL = "https://image.pollinations.ai"

	DefaultTextModel  = "openai"
	DefaultImageModel = "flux"

	// maxGetURLLength を超えるプロンプトは POST で送るのだ。
	maxGetURLLength = 4000
)

// HTTPClient は httpkit.ClientInterface のうち、このパッケージが使う部分です。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error)
}

// DefaultTextModels はモデル一覧が取れないときの候補なのだ。
func DefaultTextModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "openai", Description: "OpenAI GPT (free tier)", Multimodal: true},
		{ID: "mistral", Description: "Mistral"},
		{ID: "llama", Description: "Llama"},
	}
}

// DefaultImageModels は画像生成モデルの候補なのだ。
func DefaultImageModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{ID: "flux", Description: "Flux"},
		{ID: "turbo", Description: "Turbo"},
	}
}

// ModelLister は /models エンドポイントからモデル一覧を取得します。
type ModelLister struct {
	http      HTTPClient
	textBase  string
	imageBase string
}

// NewModelLister は新しい ModelLister を生成します。空の URL は既定値になるのだ。
func NewModelLister(httpClient HTTPClient, textBase, imageBase string) *ModelLister {
	return &ModelLister{
		http:      httpClient,
		textBase:  baseOrDefault(textBase, DefaultTextBaseURL),
		imageBase: baseOrDefault(imageBase, DefaultImageBaseURL),
	}
}

// ListModels は種類に応じたエンドポイントを呼び出します。
func (l *ModelLister) ListModels(ctx context.Context, kind provider.ModelKind) ([]provider.ModelInfo, error) {
	base := l.textBase
	if kind == provider.KindImage {
		base = l.imageBase
	}
	body, err := l.http.FetchBytes(ctx, base+"/models")
	if err != nil {
		return nil, fmt.Errorf("モデル一覧の取得に失敗しました: %w", provider.ClassifyHTTPError(err))
	}
	models, err := decodeModels(body)
	if err != nil {
		return nil, provider.NewError(provider.ClassMalformedOutput, "models", err)
	}
	return models, nil
}

// decodeModels は文字列の配列とオブジェクトの配列のどちらも受け付けるのだ。
func decodeModels(body []byte) ([]provider.ModelInfo, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("モデル一覧のJSONが不正です: %w", err)
	}
	models := make([]provider.ModelInfo, 0, len(raw))
	for _, item := range raw {
		var id string
		if json.Unmarshal(item, &id) == nil {
			if id != "" {
				models = append(models, provider.ModelInfo{ID: id})
			}
			continue
		}
		var obj struct {
			Name        string   `json:"name"`
			ID          string   `json:"id"`
			Description string   `json:"description"`
			Vision      bool     `json:"vision"`
			Input       []string `json:"input_modalities"`
		}
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		info := provider.ModelInfo{ID: obj.Name, Description: obj.Description, Multimodal: obj.Vision}
		if info.ID == "" {
			info.ID = obj.ID
		}
		for _, m := range obj.Input {
			if m == "image" {
				info.Multimodal = true
			}
		}
		if info.ID != "" {
			models = append(models, info)
		}
	}
	if len(models) == 0 {
		return nil, errors.New("モデルが1件も含まれていないのだ")
	}
	return models, nil
}

func baseOrDefault(base, def string) string {
	if base == "" {
		return def
	}
	return strings.TrimRight(base, "/")
}
