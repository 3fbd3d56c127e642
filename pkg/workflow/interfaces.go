package workflow

import (
	"context"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// SceneAcquirer はシーン台本を取得する責務を持ちます。
// 自由テキスト系では全試行失敗時に空のスライスと nil を返すのだ。
type SceneAcquirer interface {
	Capabilities(ctx context.Context, req domain.StoryRequest) provider.Capabilities
	Run(ctx context.Context, req domain.StoryRequest) ([]domain.PanelDescriptor, error)
}

// PanelImager は1コマ分の画像を取得する責務を持ちます。
type PanelImager interface {
	Generate(ctx context.Context, panel domain.PanelDescriptor, req domain.StoryRequest, seed *int64) (*domain.PanelImage, error)
}

// SeedSource は実行全体で共有するシードを決めます。
type SeedSource interface {
	Seed(req domain.StoryRequest) *int64
}
