package workflow

import (
	"context"
	"errors"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// ErrEmptyScript は台本にシーンが1つもないときのエラーなのだ。
var ErrEmptyScript = errors.New("台本にシーンが1つもないのだ")

// ScriptAcquirer は読み込み済みのシーン台本をそのまま返す SceneAcquirer です。
type ScriptAcquirer struct {
	panels []domain.PanelDescriptor
}

// NewScriptAcquirer は panels のコピーを持つ ScriptAcquirer を生成します。
func NewScriptAcquirer(panels []domain.PanelDescriptor) *ScriptAcquirer {
	out := make([]domain.PanelDescriptor, 0, len(panels))
	for _, p := range panels {
		out = append(out, p.Clone())
	}
	return &ScriptAcquirer{panels: out}
}

// Capabilities はテキストバックエンドを使わないので、キーも試行も不要なのだ。
func (a *ScriptAcquirer) Capabilities(context.Context, domain.StoryRequest) provider.Capabilities {
	return provider.Capabilities{RetryBudget: 1, FailureIsFatal: true}
}

// Run は台本のコピーを返します。
func (a *ScriptAcquirer) Run(context.Context, domain.StoryRequest) ([]domain.PanelDescriptor, error) {
	out := make([]domain.PanelDescriptor, 0, len(a.panels))
	for _, p := range a.panels {
		out = append(out, p.Clone())
	}
	return out, nil
}

// SubmitScript は保存済みの台本で実行を開始します。シーン取得は行わず、画像生成だけを進めるのだ。
func (c *Controller) SubmitScript(ctx context.Context, req domain.StoryRequest, panels []domain.PanelDescriptor) (string, error) {
	if len(panels) == 0 {
		return "", preconditionError(ErrEmptyScript)
	}
	prepared, err := req.PrepareOptions(c.cfg.MaxPages)
	if err != nil {
		return "", preconditionError(err)
	}
	imageName, imager, err := c.registry.Image(prepared.ImageBackend)
	if err != nil {
		return "", preconditionError(err)
	}
	prepared.ImageBackend = imageName
	return c.start(ctx, prepared, NewScriptAcquirer(panels), imager)
}

// RunScript は SubmitScript で開始した実行の完了まで待つのだ。
func (c *Controller) RunScript(ctx context.Context, req domain.StoryRequest, panels []domain.PanelDescriptor) (Snapshot, error) {
	return c.runUntilDone(ctx, func() error {
		_, err := c.SubmitScript(ctx, req, panels)
		return err
	})
}
