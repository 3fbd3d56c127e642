// Package generator は1コマ分のパネル画像の取得を担当します。
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/retry"
)

const (
	// DefaultImageAttempts は初回＋リトライ2回なのだ。
	DefaultImageAttempts = 3
	// DefaultImageBaseDelay は指数バックオフの初期待ち時間です。
	DefaultImageBaseDelay = time.Second
	// DefaultImageJitter は待ち時間の揺らぎの割合です。
	DefaultImageJitter = 0.5
)

// DefaultRetryPolicy はレート制限と 5xx だけをリトライするポリシーを返すのだ。
// ポリシー違反と認証エラーは即座に返します。
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: DefaultImageAttempts,
		Backoff:     retry.Exponential(DefaultImageBaseDelay, DefaultImageJitter),
		Retryable:   provider.IsTransient,
	}
}

// PanelError は1コマ分の画像取得の失敗です。実行全体は止めないのだ。
type PanelError struct {
	SceneNumber int
	Class       provider.ErrorClass
	Err         error
}

func (e *PanelError) Error() string {
	return fmt.Sprintf("パネル %d の画像生成に失敗しました: %s", e.SceneNumber, provider.UserMessage(e.Err))
}

func (e *PanelError) Unwrap() error { return e.Err }

// PanelGenerator はパネルの台本から画像を取得します。
type PanelGenerator struct {
	backend  provider.ImageBackend
	injector *character.Injector
	policy   retry.Policy
	limiter  *rate.Limiter
}

// Option は PanelGenerator の設定を変更します。
type Option func(*PanelGenerator)

// WithRetryPolicy はリトライポリシーを差し替えるのだ。
func WithRetryPolicy(p retry.Policy) Option {
	return func(g *PanelGenerator) {
		g.policy = p
	}
}

// WithMinInterval は画像リクエストの最小間隔を設定します。0 以下なら制限しないのだ。
func WithMinInterval(d time.Duration) Option {
	return func(g *PanelGenerator) {
		if d > 0 {
			g.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewPanelGenerator は新しい PanelGenerator を生成します。
func NewPanelGenerator(backend provider.ImageBackend, injector *character.Injector, opts ...Option) (*PanelGenerator, error) {
	if backend == nil {
		return nil, errors.New("画像バックエンドが指定されていないのだ")
	}
	if injector == nil {
		injector = character.NewDefaultInjector()
	}
	g := &PanelGenerator{
		backend:  backend,
		injector: injector,
		policy:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// BuildRequest はパネルと StoryRequest から画像生成リクエストを組み立てるのだ。
func (g *PanelGenerator) BuildRequest(panel domain.PanelDescriptor, req domain.StoryRequest, seed *int64) provider.ImageRequest {
	relevant := character.Relevant(req.Characters, panel.ImagePrompt)
	attach := len(relevant) > 0 && g.backend.SupportsReferenceImages()

	imgReq := provider.ImageRequest{
		Model: req.ImageModel,
		Prompt: prompts.BuildImagePrompt(prompts.ImagePromptInput{
			Panel:         panel,
			Request:       req,
			CharacterNote: g.injector.ImageNote(relevant, attach),
		}),
		AspectRatio: req.AspectRatio,
		Seed:        seed,
	}
	if attach {
		imgReq.References = g.injector.ImageReferences(relevant)
	}
	return imgReq
}

// Generate は1コマ分の画像を取得します。seed は実行全体で共通の値を渡すのだ。
func (g *PanelGenerator) Generate(ctx context.Context, panel domain.PanelDescriptor, req domain.StoryRequest, seed *int64) (*domain.PanelImage, error) {
	imgReq := g.BuildRequest(panel, req, seed)
	logger := slog.With("scene_number", panel.SceneNumber, "backend", g.backend.Name(), "references", len(imgReq.References))
	logger.InfoContext(ctx, "パネル画像を生成しています")

	start := time.Now()
	var result *provider.ImageResult
	err := g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		res, err := g.backend.GenerateImage(ctx, imgReq)
		if err != nil {
			logger.Warn("画像生成に失敗しました", "attempt", attempt, "class", provider.ClassOf(err), "error", err)
			return err
		}
		result = res
		return nil
	}, func(err error, attempt int, wait time.Duration) {
		logger.Info("画像生成をリトライします", "attempt", attempt, "wait", wait)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		class := provider.ClassOf(err)
		if class == "" {
			class = provider.ClassTransport
		}
		return nil, &PanelError{SceneNumber: panel.SceneNumber, Class: class, Err: err}
	}

	logger.InfoContext(ctx, "パネル画像を生成しました", "duration", time.Since(start).Round(time.Millisecond), "mime_type", result.MimeType)
	return &domain.PanelImage{Data: result.Data, MimeType: result.MimeType, Seed: seed}, nil
}
