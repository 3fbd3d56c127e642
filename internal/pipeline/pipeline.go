package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// StdinPath を入力パスに指定すると標準入力から読み込むのだ。
const StdinPath = "-"

// Stdin は StdinPath のときに読み込む入力元です。テストで差し替えるのだ。
var Stdin io.Reader = os.Stdin

// RequestFromOptions は CLI フラグから StoryRequest を組み立てるのだ。
func RequestFromOptions(opts config.GenerateOptions, story string) domain.StoryRequest {
	return domain.StoryRequest{
		Story:            story,
		NumPages:         opts.NumPages,
		Style:            opts.Style,
		Era:              opts.Era,
		AspectRatio:      domain.AspectRatio(opts.AspectRatio),
		IncludeCaptions:  opts.IncludeCaptions,
		CaptionPlacement: domain.CaptionPlacement(opts.CaptionPlacement),
		TextBackend:      opts.TextBackend,
		ImageBackend:     opts.ImageBackend,
		TextModel:        opts.TextModel,
		ImageModel:       opts.ImageModel,
		LockSeed:         opts.LockSeed,
	}
}

// ExecuteGenerate は物語からシーン台本とパネル画像を生成し、成果物を保存するのだ。
func ExecuteGenerate(ctx context.Context, appCtx *builder.AppContext) (publisher.PublishResult, error) {
	req, err := buildRequest(ctx, appCtx)
	if err != nil {
		return publisher.PublishResult{}, err
	}

	slog.InfoContext(ctx, "生成実行を開始するのだ！",
		"text_backend", req.TextBackend,
		"image_backend", req.ImageBackend,
		"num_pages", req.NumPages,
		"characters", len(req.Characters))

	snap, err := appCtx.Controller.Run(ctx, req)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("生成実行に失敗したのだ: %w", err)
	}
	if snap.Error != "" {
		return publisher.PublishResult{}, fmt.Errorf("生成実行に失敗したのだ: %s", snap.Error)
	}
	for _, w := range snap.Warnings {
		slog.WarnContext(ctx, w)
	}

	return publish(ctx, appCtx, req, snap)
}

func publish(ctx context.Context, appCtx *builder.AppContext, req domain.StoryRequest, snap workflow.Snapshot) (publisher.PublishResult, error) {
	slog.InfoContext(ctx, "成果物の保存を開始するのだ...", "output_dir", appCtx.Options.OutputDir)
	result, err := appCtx.Publisher.Publish(ctx, req, snap, publisher.Options{
		OutputDir:   appCtx.Options.OutputDir,
		JPEGQuality: appCtx.Options.JPEGQuality,
	})
	if err != nil {
		return result, fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}
	return result, nil
}

// buildRequest は物語ファイルとキャラクター定義を読み込み、既定値を補ったリクエストを返します。
func buildRequest(ctx context.Context, appCtx *builder.AppContext) (domain.StoryRequest, error) {
	opts := appCtx.Options
	story, err := readText(ctx, appCtx, opts.StoryFile)
	if err != nil {
		return domain.StoryRequest{}, fmt.Errorf("物語ファイル '%s' の読み込みに失敗しました: %w", opts.StoryFile, err)
	}

	req := appCtx.NormalizeRequest(RequestFromOptions(opts, story))
	chars, err := appCtx.LoadCharacters(ctx, opts.CharactersFile)
	if err != nil {
		return domain.StoryRequest{}, fmt.Errorf("キャラクター情報の取得に失敗しました: %w", err)
	}
	req.Characters = chars
	return req, nil
}

func readText(ctx context.Context, appCtx *builder.AppContext, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("入力ファイルのパスが指定されていないのだ")
	}
	var r io.Reader
	if path == StdinPath {
		r = Stdin
	} else {
		rc, err := appCtx.Reader.Open(ctx, path)
		if err != nil {
			return "", err
		}
		defer rc.Close()
		r = rc
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func writeJSON(ctx context.Context, appCtx *builder.AppContext, fileName string, v any, out io.Writer) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSONの生成に失敗しました: %w", err)
	}
	if out != nil {
		if _, err := out.Write(append(data, '\n')); err != nil {
			return "", err
		}
	}
	if appCtx.Options.OutputDir == "" {
		return "", nil
	}
	outputPath, err := asset.ResolveOutputPath(appCtx.Options.OutputDir, fileName)
	if err != nil {
		return "", fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	if err := appCtx.Writer.Write(ctx, outputPath, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("'%s' の保存に失敗したのだ: %w", outputPath, err)
	}
	return outputPath, nil
}
