// Package runner はシーン台本の取得とフォールバックの合成を担当します。
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/retry"
	"github.com/shouni/go-comic-kit/pkg/scene"
)

// rawLogLimit は診断ログに残す生の応答の最大長なのだ。
const rawLogLimit = 2000

// AcquisitionError は構造化バックエンドでのシーン取得の致命的な失敗です。
type AcquisitionError struct {
	Class provider.ErrorClass
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("シーン台本の取得に失敗しました (%s): %v", e.Class, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// SceneRunner はバックエンドの能力記述子に従ってシーン台本を取得します。
// 構造化バックエンドでは1回で失敗を返し、自由テキストのバックエンドではリトライ後に空の結果を返すのだ。
type SceneRunner struct {
	backend    provider.TextBackend
	builder    *prompts.SceneInstructionBuilder
	injector   *character.Injector
	newBackOff func(time.Duration) func() backoff.BackOff
}

// SceneRunnerOption は SceneRunner の設定を変更します。
type SceneRunnerOption func(*SceneRunner)

// WithRetryBackOff は試行間の待ち時間の作り方を差し替えます。テストで待ち時間をなくすのに使うのだ。
func WithRetryBackOff(fn func(time.Duration) func() backoff.BackOff) SceneRunnerOption {
	return func(r *SceneRunner) {
		r.newBackOff = fn
	}
}

// NewSceneRunner は新しい SceneRunner を生成します。
func NewSceneRunner(backend provider.TextBackend, builder *prompts.SceneInstructionBuilder, injector *character.Injector, opts ...SceneRunnerOption) (*SceneRunner, error) {
	if backend == nil {
		return nil, errors.New("テキストバックエンドが指定されていないのだ")
	}
	if builder == nil {
		return nil, errors.New("SceneInstructionBuilder が指定されていないのだ")
	}
	if injector == nil {
		injector = character.NewDefaultInjector()
	}
	r := &SceneRunner{
		backend:    backend,
		builder:    builder,
		injector:   injector,
		newBackOff: retry.Constant,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Capabilities は選択中のモデルでの能力記述子を返すのだ。
func (r *SceneRunner) Capabilities(ctx context.Context, req domain.StoryRequest) provider.Capabilities {
	return r.backend.Capabilities(ctx, req.TextModel)
}

// Run はシーン台本を取得し、scene_number 昇順の PanelDescriptor を返します。
// 自由テキストのバックエンドで全試行が失敗した場合は、エラーではなく空のスライスを返すのだ。
func (r *SceneRunner) Run(ctx context.Context, req domain.StoryRequest) ([]domain.PanelDescriptor, error) {
	caps := r.Capabilities(ctx, req)
	multimodal := caps.SupportsMultimodal && req.HasCharacters()

	data := prompts.NewTemplateData(req, r.injector.SceneInstruction(req.Characters, multimodal))
	instruction, err := r.builder.Build(prompts.ModeFor(caps.SupportsResponseFormat), data)
	if err != nil {
		return nil, err
	}

	textReq := provider.TextRequest{
		Model:        req.TextModel,
		Instruction:  instruction,
		JSONResponse: caps.SupportsResponseFormat,
	}
	if multimodal {
		textReq.Parts = r.injector.SceneAttachments(req.Characters)
	}

	policy := retry.Policy{
		MaxAttempts: caps.RetryBudget,
		Backoff:     r.newBackOff(caps.RetryDelay),
		Retryable:   func(err error) bool { return !provider.IsPermanent(err) },
	}

	logger := slog.With("backend", r.backend.Name(), "model", req.TextModel)
	logger.InfoContext(ctx, "シーン台本を取得しています", "num_pages", req.NumPages, "attempts", caps.RetryBudget, "multimodal", multimodal)

	var panels []domain.PanelDescriptor
	err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		got, err := r.attempt(ctx, textReq, req, logger.With("attempt", attempt))
		if err != nil {
			return err
		}
		panels = got
		return nil
	}, func(err error, attempt int, wait time.Duration) {
		logger.Warn("シーン取得をリトライします", "attempt", attempt, "wait", wait, "error", err)
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if caps.FailureIsFatal {
			class := provider.ClassOf(err)
			if class == "" {
				class = provider.ClassTransport
			}
			return nil, &AcquisitionError{Class: class, Err: err}
		}
		logger.Warn("すべての試行が失敗したため、空のシーン一覧を返すのだ", "error", err)
		return []domain.PanelDescriptor{}, nil
	}

	logger.InfoContext(ctx, "シーン台本を取得しました", "scenes", len(panels))
	return panels, nil
}

// attempt は1回分の呼び出し、抽出、正規化を行うのだ。失敗した応答は診断ログに残します。
func (r *SceneRunner) attempt(ctx context.Context, textReq provider.TextRequest, req domain.StoryRequest, logger *slog.Logger) ([]domain.PanelDescriptor, error) {
	resp, err := r.backend.GenerateText(ctx, textReq)
	if err != nil {
		logger.Warn("テキスト生成に失敗しました", "class", provider.ClassOf(err), "error", err)
		return nil, err
	}

	raw, err := parser.Extract(resp.Text)
	if err != nil {
		logger.Warn("応答からJSONを抽出できませんでした", "error", err, "raw", parser.Truncate(resp.Text, rawLogLimit))
		return nil, provider.NewError(provider.ClassMalformedOutput, "extract", err)
	}

	panels, err := scene.Normalize(raw, scene.OptionsFor(req))
	if err != nil {
		logger.Warn("シーンを正規化できませんでした", "error", err, "raw", parser.Truncate(resp.Text, rawLogLimit))
		return nil, provider.NewError(provider.ClassMalformedOutput, "normalize", err)
	}
	return scene.SortByScene(panels), nil
}
