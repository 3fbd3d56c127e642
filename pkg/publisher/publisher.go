// Package publisher は完了した生成実行の成果物をローカルまたは GCS に書き出します。
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/gemini-image-kit/pkg/imgutil"

	"github.com/shouni/go-comic-kit/pkg/asset"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// OutputWriter は remoteio.OutputWriter のうち、このパッケージが使う部分です。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// JPEGQuality が1以上ならパネル画像を JPEG に変換して保存するのだ。
	JPEGQuality int
}

// PublishResult はパブリッシュ処理で生成されたファイルの情報を保持します。
type PublishResult struct {
	ManifestPath   string
	StoryboardPath string
	ImagePaths     []string
}

// Manifest は comic.json の内容です。画像のバイナリは含めず、ファイル名だけを持つのだ。
type Manifest struct {
	RunID       string             `json:"run_id,omitempty"`
	State       domain.RunState    `json:"state"`
	Style       string             `json:"style,omitempty"`
	Era         string             `json:"era,omitempty"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Characters  []string           `json:"characters,omitempty"`
	Panels      []ManifestPanel    `json:"panels"`
	Errors      []string           `json:"errors,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	Log         string             `json:"log,omitempty"`
}

// ManifestPanel は1コマ分の記録です。Image は画像ファイル名か "error" なのだ。
type ManifestPanel struct {
	SceneNumber int      `json:"scene_number"`
	ImagePrompt string   `json:"image_prompt"`
	Caption     *string  `json:"caption,omitempty"`
	Dialogues   []string `json:"dialogues"`
	Image       string   `json:"image,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

// ComicPublisher は成果物の永続化を担います。
type ComicPublisher struct {
	writer   OutputWriter
	compress func(data []byte, quality int) ([]byte, error)
}

// NewComicPublisher は新しい ComicPublisher を生成します。
func NewComicPublisher(writer OutputWriter) *ComicPublisher {
	return &ComicPublisher{writer: writer, compress: imgutil.CompressToJPEG}
}

// Publish はパネル画像、comic.json、storyboard.md を書き出すのだ。
func (p *ComicPublisher) Publish(ctx context.Context, req domain.StoryRequest, snap workflow.Snapshot, opts Options) (PublishResult, error) {
	result := PublishResult{}

	imageNames, savedPaths, err := p.saveImages(ctx, snap.Panels, opts)
	if err != nil {
		return result, err
	}
	result.ImagePaths = savedPaths

	manifestPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultManifestName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	manifest, err := json.MarshalIndent(BuildManifest(req, snap, imageNames), "", "  ")
	if err != nil {
		return result, fmt.Errorf("comic.json の生成に失敗しました: %w", err)
	}
	if err := p.writer.Write(ctx, manifestPath, bytes.NewReader(manifest), "application/json"); err != nil {
		return result, fmt.Errorf("comic.json の書き込みに失敗しました: %w", err)
	}
	result.ManifestPath = manifestPath

	storyboardPath, err := asset.ResolveOutputPath(opts.OutputDir, asset.DefaultStoryboardName)
	if err != nil {
		return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
	}
	content := BuildStoryboard(snap.Panels, imageNames)
	if err := p.writer.Write(ctx, storyboardPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("storyboard.md の書き込みに失敗しました: %w", err)
	}
	result.StoryboardPath = storyboardPath

	slog.InfoContext(ctx, "成果物を書き出しました", "dir", opts.OutputDir, "images", len(savedPaths))
	return result, nil
}

// saveImages は画像を持つパネルだけを保存し、scene_number ごとのファイル名を返します。
func (p *ComicPublisher) saveImages(ctx context.Context, panels []domain.PanelDescriptor, opts Options) (map[int]string, []string, error) {
	names := make(map[int]string, len(panels))
	var paths []string
	for _, panel := range panels {
		if panel.Image == nil || len(panel.Image.Data) == 0 {
			continue
		}

		data, mimeType := panel.Image.Data, panel.Image.MimeType
		if opts.JPEGQuality > 0 {
			compressed, err := p.compress(data, opts.JPEGQuality)
			if err != nil {
				return nil, nil, fmt.Errorf("パネル %d の JPEG 変換に失敗しました: %w", panel.SceneNumber, err)
			}
			data, mimeType = compressed, "image/jpeg"
		}

		fullPath, err := asset.PanelPath(opts.OutputDir, panel.SceneNumber, mimeType == "image/jpeg")
		if err != nil {
			return nil, nil, fmt.Errorf("パネル %d の出力パス生成に失敗しました: %w", panel.SceneNumber, err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
			return nil, nil, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		names[panel.SceneNumber] = path.Base(strings.ReplaceAll(fullPath, "\\", "/"))
		paths = append(paths, fullPath)
	}
	return names, paths, nil
}

// BuildManifest は comic.json の内容を組み立てるのだ。
func BuildManifest(req domain.StoryRequest, snap workflow.Snapshot, imageNames map[int]string) Manifest {
	m := Manifest{
		RunID:       snap.RunID,
		State:       snap.State,
		Style:       req.Style,
		Era:         req.Era,
		AspectRatio: req.AspectRatio,
		Panels:      make([]ManifestPanel, 0, len(snap.Panels)),
		Errors:      snap.Errors,
		Warnings:    snap.Warnings,
		Log:         snap.Log,
	}
	for _, c := range req.Characters {
		m.Characters = append(m.Characters, c.Name)
	}
	for _, panel := range snap.Panels {
		mp := ManifestPanel{
			SceneNumber: panel.SceneNumber,
			ImagePrompt: panel.ImagePrompt,
			Caption:     panel.Caption,
			Dialogues:   panel.Dialogues,
			Image:       imageNames[panel.SceneNumber],
		}
		if panel.Failed() {
			mp.Image = domain.ImageErrorSentinel
		}
		if panel.Image != nil {
			mp.Seed = panel.Image.Seed
		}
		m.Panels = append(m.Panels, mp)
	}
	return m
}
