package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/runner"
	"github.com/shouni/go-comic-kit/pkg/scene"
)

// ScriptResult は script コマンドの結果です。
type ScriptResult struct {
	Panels   []domain.PanelDescriptor `json:"panels"`
	Fallback bool                     `json:"fallback,omitempty"`
	Path     string                   `json:"-"`
}

// ExecuteScript はシーン台本の取得だけを行い、JSONとして out と出力先に書き出すのだ。
// シーンが1つも得られなければ、フォールバックの1コマを使います。
func ExecuteScript(ctx context.Context, appCtx *builder.AppContext, out io.Writer) (ScriptResult, error) {
	req, err := buildRequest(ctx, appCtx)
	if err != nil {
		return ScriptResult{}, err
	}
	req, err = req.Prepare(appCtx.Config.Kit.MaxComicPages)
	if err != nil {
		return ScriptResult{}, err
	}

	name, acquirer, err := appCtx.Registry.Text(req.TextBackend)
	if err != nil {
		return ScriptResult{}, err
	}
	req.TextBackend = name

	slog.InfoContext(ctx, "シーン台本の生成を開始するのだ！", "text_backend", name, "model", req.TextModel, "num_pages", req.NumPages)
	panels, err := acquirer.Run(ctx, req)
	if err != nil {
		return ScriptResult{}, fmt.Errorf("シーン台本の取得に失敗したのだ: %w", err)
	}

	result := ScriptResult{Panels: scene.SortByScene(panels)}
	if len(result.Panels) == 0 {
		slog.WarnContext(ctx, runner.FallbackWarning)
		result.Panels = []domain.PanelDescriptor{runner.SynthesizeFallback(req)}
		result.Fallback = true
	}

	result.Path, err = writeJSON(ctx, appCtx, asset.DefaultScriptName, result.Panels, out)
	if err != nil {
		return result, err
	}
	return result, nil
}
