package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/scene"
)

// ExecuteImage は保存済みのシーン台本を読み込み、パネル画像の生成と保存だけを行うのだ。
// 1コマの失敗は致命的ではなく、そのパネルにエラーの印を付けて続けます。
func ExecuteImage(ctx context.Context, appCtx *builder.AppContext) (publisher.PublishResult, error) {
	opts := appCtx.Options
	if opts.ScriptFile == "" {
		return publisher.PublishResult{}, fmt.Errorf("台本ファイル（--script-file）を指定してほしいのだ")
	}

	chars, err := appCtx.LoadCharacters(ctx, opts.CharactersFile)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("キャラクター情報の取得に失敗しました: %w", err)
	}
	req := appCtx.NormalizeRequest(RequestFromOptions(opts, ""))
	req.Characters = chars
	req, err = req.PrepareOptions(appCtx.Config.Kit.MaxComicPages)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	raw, err := parser.NewScriptReader(appCtx.Reader).ReadFromPath(ctx, opts.ScriptFile)
	if err != nil {
		return publisher.PublishResult{}, err
	}
	panels, err := scene.Normalize(raw, scene.OptionsFor(req))
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("台本ファイル '%s' の正規化に失敗しました: %w", opts.ScriptFile, err)
	}
	panels = scene.SortByScene(panels)
	if limit := appCtx.Config.Kit.MaxComicPages; limit > 0 && len(panels) > limit {
		slog.WarnContext(ctx, "パネル数が上限を超えたため切り詰めます", "panels", len(panels), "limit", limit)
		panels = panels[:limit]
	}

	slog.InfoContext(ctx, "画像生成を開始するのだ...", "panels", len(panels), "image_backend", req.ImageBackend)
	snap, err := appCtx.Controller.RunScript(ctx, req, panels)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}
	if snap.Error != "" {
		return publisher.PublishResult{}, fmt.Errorf("画像生成に失敗したのだ: %s", snap.Error)
	}
	return publish(ctx, appCtx, req, snap)
}
