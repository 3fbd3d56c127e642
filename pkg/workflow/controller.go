// Package workflow は1回の生成実行の状態遷移を管理する Controller を提供します。
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/runner"
	"github.com/shouni/go-comic-kit/pkg/scene"
)

const (
	// scenePercent まででシーン取得、それ以降を画像生成に割り当てるのだ。
	scenePercent = 30

	StepAcquiringScenes  = "シーン台本を取得中"
	StepScenesReady      = "シーン台本を取得しました"
	StepFallback         = "フォールバックの台本を使用します"
	StepGeneratingImages = "パネル画像を生成中"
	StepComplete         = "完了"
	StepFailed           = "失敗"
)

// ErrRunInProgress は実行中に新しい実行を投入したときのエラーなのだ。
var ErrRunInProgress = errors.New("別の生成実行が進行中なのだ")

// RunError は実行を中断させた致命的なエラーです。
type RunError struct {
	Class provider.ErrorClass
	Err   error
}

// Error は分類名を含む利用者向けのメッセージを返すのだ。生の応答は含めません。
func (e *RunError) Error() string {
	return provider.UserMessage(e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Config は Controller の設定です。
type Config struct {
	// MaxPages はページ数の上限 (MAX_COMIC_PAGES) なのだ。
	MaxPages int
	// Concurrency が2以上なら、その数まで画像生成を並行させます。既定は逐次なのだ。
	Concurrency int
	// Credentials はバックエンドの APIキーが設定済みかを返します。nil なら確認しないのだ。
	Credentials func(backend string) bool
}

// Snapshot はある時点の実行状態のコピーです。
// Log は警告とエラーを発生順に改行でつないだもの、Error は致命的エラーの利用者向けメッセージなのだ。
type Snapshot struct {
	RunID    string                    `json:"run_id,omitempty"`
	State    domain.RunState           `json:"state"`
	Progress domain.GenerationProgress `json:"progress"`
	Panels   []domain.PanelDescriptor  `json:"panels"`
	Errors   []string                  `json:"errors,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
	Log      string                    `json:"log,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// Controller は同時に1つだけの生成実行を所有し、パネル一覧と進捗を更新します。
type Controller struct {
	cfg      Config
	registry *Registry
	seeds    SeedSource
	events   *broadcaster

	mu         sync.Mutex
	generation uint64
	runID      string
	state      domain.RunState
	progress   domain.GenerationProgress
	panels     []domain.PanelDescriptor
	errs       []string
	warnings   []string
	log        []string
	lastErr    error
	completed  int
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewController は新しい Controller を生成します。
func NewController(cfg Config, registry *Registry, seeds SeedSource) (*Controller, error) {
	if registry == nil {
		return nil, errors.New("Registry が指定されていないのだ")
	}
	if seeds == nil {
		return nil, errors.New("SeedSource が指定されていないのだ")
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = domain.DefaultMaxComicPages
	}
	return &Controller{
		cfg:      cfg,
		registry: registry,
		seeds:    seeds,
		events:   newBroadcaster(),
		state:    domain.StateIdle,
	}, nil
}

// Subscribe はイベントの購読を開始します。返り値の関数で購読を解除するのだ。
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// Submit はリクエストを検証し、実行をバックグラウンドで開始して実行IDを返します。
// 前提条件を満たさないリクエストは状態を変えずに拒否するのだ。
func (c *Controller) Submit(ctx context.Context, req domain.StoryRequest) (string, error) {
	prepared, acquirer, imager, err := c.prepare(ctx, req)
	if err != nil {
		return "", err
	}
	return c.start(ctx, prepared, acquirer, imager)
}

// start は検証済みのリクエストで新しい実行を開始するのだ。
func (c *Controller) start(ctx context.Context, prepared domain.StoryRequest, acquirer SceneAcquirer, imager PanelImager) (string, error) {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return "", ErrRunInProgress
	}
	c.generation++
	gen := c.generation
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.runID = runID
	c.panels = nil
	c.errs = nil
	c.warnings = nil
	c.log = nil
	c.lastErr = nil
	c.completed = 0
	c.cancel = cancel
	c.done = done
	c.progress = domain.GenerationProgress{}
	c.progress.Advance(StepAcquiringScenes, 0)
	c.setStateLocked(domain.StateAcquiringScenes)
	c.mu.Unlock()

	slog.InfoContext(ctx, "生成実行を開始します",
		"run_id", runID, "text_backend", prepared.TextBackend, "image_backend", prepared.ImageBackend,
		"num_pages", prepared.NumPages, "characters", len(prepared.Characters))

	go func() {
		defer close(done)
		defer cancel()
		c.execute(runCtx, gen, prepared, acquirer, imager)
	}()
	return runID, nil
}

// Wait は現在の実行が終わるまで待ち、スナップショットと致命的エラーを返します。
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}

	c.mu.Lock()
	err := c.lastErr
	c.mu.Unlock()
	return c.Snapshot(), err
}

// Run は実行を開始して完了まで待ちます。ctx が終了したら実行を破棄するのだ。
func (c *Controller) Run(ctx context.Context, req domain.StoryRequest) (Snapshot, error) {
	return c.runUntilDone(ctx, func() error {
		_, err := c.Submit(ctx, req)
		return err
	})
}

func (c *Controller) runUntilDone(ctx context.Context, submit func() error) (Snapshot, error) {
	if err := submit(); err != nil {
		return c.Snapshot(), err
	}
	snap, err := c.Wait(ctx)
	if ctx.Err() != nil {
		c.Abandon()
	}
	return snap, err
}

// Abandon は実行中の実行を破棄し、idle に戻します。
// 破棄後に届いた結果は古い実行のものとして捨てられるのだ。
func (c *Controller) Abandon() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Active() {
		return false
	}
	c.generation++
	if c.cancel != nil {
		c.cancel()
	}
	slog.Info("生成実行を破棄しました", "run_id", c.runID)
	c.setStateLocked(domain.StateIdle)
	return true
}

// Snapshot は現在の状態のコピーを返すのだ。
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	panels := make([]domain.PanelDescriptor, 0, len(c.panels))
	for _, p := range c.panels {
		panels = append(panels, p.Clone())
	}
	snap := Snapshot{
		RunID:    c.runID,
		State:    c.state,
		Progress: c.progress,
		Panels:   panels,
		Errors:   append([]string(nil), c.errs...),
		Warnings: append([]string(nil), c.warnings...),
		Log:      strings.Join(c.log, "\n"),
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}

// prepare は状態遷移の前に行う前提条件の確認なのだ。
func (c *Controller) prepare(ctx context.Context, req domain.StoryRequest) (domain.StoryRequest, SceneAcquirer, PanelImager, error) {
	prepared, err := req.Prepare(c.cfg.MaxPages)
	if err != nil {
		return domain.StoryRequest{}, nil, nil, preconditionError(err)
	}

	textName, acquirer, err := c.registry.Text(prepared.TextBackend)
	if err != nil {
		return domain.StoryRequest{}, nil, nil, preconditionError(err)
	}
	prepared.TextBackend = textName

	if acquirer.Capabilities(ctx, prepared).RequiresKey && c.cfg.Credentials != nil && !c.cfg.Credentials(textName) {
		return domain.StoryRequest{}, nil, nil, preconditionError(fmt.Errorf("テキストバックエンド '%s' にはAPIキーが必要なのだ", textName))
	}

	imageName, imager, err := c.registry.Image(prepared.ImageBackend)
	if err != nil {
		return domain.StoryRequest{}, nil, nil, preconditionError(err)
	}
	prepared.ImageBackend = imageName
	return prepared, acquirer, imager, nil
}

func preconditionError(err error) *RunError {
	if provider.ClassOf(err) == "" {
		err = provider.NewError(provider.ClassPrecondition, "", err)
	}
	return &RunError{Class: provider.ClassPrecondition, Err: err}
}

// execute はシーン取得から画像生成までを1本の流れで実行するのだ。
func (c *Controller) execute(ctx context.Context, gen uint64, req domain.StoryRequest, acquirer SceneAcquirer, imager PanelImager) {
	c.advance(gen, StepAcquiringScenes, 5)

	panels, err := acquirer.Run(ctx, req)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.fail(gen, err)
		return
	}

	state := domain.StateScenesReady
	if len(panels) == 0 {
		panels = []domain.PanelDescriptor{runner.SynthesizeFallback(req)}
		state = domain.StateFallbackReady
	}
	total := len(panels)
	if !c.setScenes(gen, state, scene.SortByScene(panels)) {
		return
	}

	seed := c.seeds.Seed(req)
	if !c.beginImages(gen) {
		return
	}

	if c.cfg.Concurrency > 1 {
		c.generateConcurrently(ctx, gen, req, imager, total, seed)
	} else {
		c.generateSequentially(ctx, gen, req, imager, total, seed)
	}
	if ctx.Err() != nil {
		return
	}
	c.finish(gen)
}

// generateSequentially は scene_number 昇順に1コマずつ画像を取得します。
func (c *Controller) generateSequentially(ctx context.Context, gen uint64, req domain.StoryRequest, imager PanelImager, total int, seed *int64) {
	for i := range total {
		if ctx.Err() != nil {
			return
		}
		img, err := imager.Generate(ctx, c.panelAt(gen, i), req, seed)
		if ctx.Err() != nil {
			return
		}
		c.applyPanel(gen, i, img, err)
	}
}

// generateConcurrently は Concurrency の上限まで並行して画像を取得します。
func (c *Controller) generateConcurrently(ctx context.Context, gen uint64, req domain.StoryRequest, imager PanelImager, total int, seed *int64) {
	var eg errgroup.Group
	eg.SetLimit(c.cfg.Concurrency)

	for i := range total {
		panel := c.panelAt(gen, i)
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			img, err := imager.Generate(ctx, panel, req, seed)
			if ctx.Err() != nil {
				return nil
			}
			c.applyPanel(gen, i, img, err)
			return nil
		})
	}
	_ = eg.Wait()
}

func (c *Controller) panelAt(gen uint64, i int) domain.PanelDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || i >= len(c.panels) {
		return domain.PanelDescriptor{}
	}
	return c.panels[i].Clone()
}

func (c *Controller) advance(gen uint64, step string, percent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.progress.Advance(step, percent)
	c.publishLocked(Event{Type: EventProgress})
}

func (c *Controller) setScenes(gen uint64, state domain.RunState, panels []domain.PanelDescriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		slog.Debug("古い実行のシーン台本を破棄します")
		return false
	}
	c.panels = panels
	c.progress.TotalPanels = len(panels)

	step := StepScenesReady
	if state == domain.StateFallbackReady {
		step = StepFallback
		c.appendWarningLocked(runner.FallbackWarning)
	}
	c.progress.Advance(step, scenePercent)
	c.setStateLocked(state)
	c.publishLocked(Event{Type: EventProgress})
	return true
}

func (c *Controller) beginImages(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.progress.Advance(StepGeneratingImages, scenePercent)
	c.setStateLocked(domain.StateGeneratingImages)
	return true
}

// applyPanel は1コマ分の結果を反映します。失敗は致命的でないエラーとしてログに積むのだ。
func (c *Controller) applyPanel(gen uint64, i int, img *domain.PanelImage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || i >= len(c.panels) {
		slog.Debug("古い実行のパネル結果を破棄します", "index", i)
		return
	}

	panel := &c.panels[i]
	if err != nil || img == nil {
		if err == nil {
			err = errors.New("画像が返されなかったのだ")
		}
		panel.ImageURL = domain.ImageErrorSentinel
		panel.Image = nil
		msg := fmt.Sprintf("パネル %d: %s", panel.SceneNumber, provider.UserMessage(err))
		c.errs = append(c.errs, msg)
		c.log = append(c.log, msg)
		slog.Warn("パネル画像の生成に失敗しました", "scene_number", panel.SceneNumber, "error", err)
	} else {
		panel.Image = img
		panel.ImageURL = img.DataURI()
	}

	c.completed++
	total := len(c.panels)
	c.progress.CurrentPanel = c.completed
	c.progress.Advance(StepGeneratingImages, scenePercent+(100-scenePercent)*c.completed/total)

	snapshot := panel.Clone()
	c.publishLocked(Event{Type: EventPanel, Panel: &snapshot})
}

func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.progress.Advance(StepComplete, 100)
	c.setStateLocked(domain.StateComplete)
	slog.Info("生成実行が完了しました", "run_id", c.runID, "panels", len(c.panels), "panel_errors", len(c.errs))
}

// fail は failed を経由して idle に戻り、エラーを残すのだ。
func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}

	class := provider.ClassOf(err)
	var acqErr *runner.AcquisitionError
	if errors.As(err, &acqErr) {
		class = acqErr.Class
	}
	if class == "" {
		class = provider.ClassTransport
	}
	runErr := &RunError{Class: class, Err: err}

	c.lastErr = runErr
	c.errs = append(c.errs, runErr.Error())
	c.log = append(c.log, runErr.Error())
	slog.Error("生成実行が失敗しました", "run_id", c.runID, "class", class, "error", err)

	c.progress.Step = StepFailed
	c.setStateLocked(domain.StateFailed)
	c.publishLocked(Event{Type: EventError, Message: runErr.Error()})
	c.setStateLocked(domain.StateIdle)
}

func (c *Controller) appendWarningLocked(msg string) {
	c.warnings = append(c.warnings, msg)
	c.log = append(c.log, msg)
	c.publishLocked(Event{Type: EventWarning, Message: msg})
}

func (c *Controller) setStateLocked(state domain.RunState) {
	c.state = state
	c.publishLocked(Event{Type: EventState})
}

func (c *Controller) publishLocked(ev Event) {
	ev.RunID = c.runID
	ev.State = c.state
	ev.Progress = c.progress
	c.events.publish(ev)
}
