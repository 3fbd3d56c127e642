package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/runner"
)

// scriptedTextBackend は呼ばれるたびに replies を順番に返す自由テキストのバックエンドなのだ。
type scriptedTextBackend struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (b *scriptedTextBackend) Name() string { return "scripted" }

func (b *scriptedTextBackend) Capabilities(context.Context, string) provider.Capabilities {
	return provider.FreeTextCapabilities()
}

func (b *scriptedTextBackend) GenerateText(context.Context, provider.TextRequest) (*provider.TextResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.calls
	b.calls++
	if i < len(b.replies) {
		return &provider.TextResponse{Text: b.replies[i]}, nil
	}
	return &provider.TextResponse{Text: "still not json"}, nil
}

func (b *scriptedTextBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newRunnerController(t *testing.T, backend provider.TextBackend, img PanelImager) *Controller {
	t.Helper()
	instructions, err := prompts.NewSceneInstructionBuilder()
	require.NoError(t, err)
	injector := character.NewDefaultInjector()
	noWait := func(time.Duration) func() backoff.BackOff {
		return func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}
	sceneRunner, err := runner.NewSceneRunner(backend, instructions, injector, runner.WithRetryBackOff(noWait))
	require.NoError(t, err)

	reg := NewRegistry("scripted", "mock")
	reg.RegisterText("scripted", sceneRunner)
	reg.RegisterImage("mock", img)
	c, err := NewController(Config{}, reg, injector)
	require.NoError(t, err)
	return c
}

func TestController_WithSceneRunner(t *testing.T) {
	req := domain.StoryRequest{Story: testStory, NumPages: 2, IncludeCaptions: true, Style: "noir", Era: "1920s"}

	t.Run("2回不正な応答の後に末尾カンマ付きの配列が返れば2コマで完了する", func(t *testing.T) {
		backend := &scriptedTextBackend{replies: []string{
			"sorry {not json",
			"``` nope",
			"Here you go:\n```json\n[{\"scene_number\": 2, \"image_prompt\": \"the cat eats\", \"dialogues\": []},\n" +
				"{\"scene_number\": 1, \"image_prompt\": \"the robot arrives\", \"caption\": \"Rain.\", \"dialogues\": [\"Robot: Hi\"]},]\n```",
		}}
		img := &mockImager{}
		c := newRunnerController(t, backend, img)

		snap, err := c.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 3, backend.callCount())
		assert.Equal(t, domain.StateComplete, snap.State)
		require.Len(t, snap.Panels, 2)
		assert.Equal(t, 1, snap.Panels[0].SceneNumber)
		assert.Equal(t, 2, snap.Panels[1].SceneNumber)
		assert.Empty(t, snap.Errors)
		assert.Empty(t, snap.Warnings)
		assert.Equal(t, []int{1, 2}, img.order)
	})

	t.Run("すべての試行が失敗したらフォールバックの1コマで完了する", func(t *testing.T) {
		backend := &scriptedTextBackend{replies: []string{"no", "nope", "```still no```"}}
		img := &mockImager{}
		c := newRunnerController(t, backend, img)

		snap, err := c.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, provider.DefaultFreeTextAttempts, backend.callCount())
		assert.Equal(t, domain.StateComplete, snap.State)
		require.Len(t, snap.Panels, 1)
		assert.Equal(t, 1, snap.Panels[0].SceneNumber)
		assert.True(t, strings.HasSuffix(snap.Panels[0].ImagePrompt, "Style: noir. Era: 1920s."))
		assert.Contains(t, snap.Panels[0].ImagePrompt, testStory)
		assert.Equal(t, []string{runner.FallbackWarning}, snap.Warnings)
		assert.Empty(t, snap.Errors)
	})
}

func TestController_RunScript(t *testing.T) {
	req := domain.StoryRequest{IncludeCaptions: true, LockSeed: true}

	t.Run("台本のパネルだけで画像生成が進み、失敗はエラーログに残る", func(t *testing.T) {
		img := &mockImager{fail: map[int]error{2: provider.NewError(provider.ClassContentPolicy, "IMAGE_SAFETY", errors.New("blocked"))}}
		acq := &mockAcquirer{caps: provider.StructuredCapabilities(true)}
		c := newTestController(t, Config{Credentials: func(string) bool { return false }}, acq, img)

		snap, err := c.RunScript(context.Background(), req, scenes(1, 2))
		require.NoError(t, err)
		assert.Zero(t, acq.called)
		assert.Equal(t, domain.StateComplete, snap.State)
		require.Len(t, snap.Panels, 2)
		assert.NotEqual(t, domain.ImageErrorSentinel, snap.Panels[0].ImageURL)
		assert.Equal(t, domain.ImageErrorSentinel, snap.Panels[1].ImageURL)
		require.Len(t, snap.Errors, 1)
		assert.True(t, strings.HasPrefix(snap.Errors[0], "パネル 2:"))
		assert.Equal(t, snap.Errors[0], snap.Log)
		require.Len(t, img.seeds, 2)
		require.NotNil(t, img.seeds[0])
		assert.Equal(t, character.DefaultPinnedSeed, *img.seeds[0])
	})

	t.Run("空の台本は前提条件エラーになる", func(t *testing.T) {
		c := newTestController(t, Config{}, &mockAcquirer{}, &mockImager{})
		_, err := c.RunScript(context.Background(), req, nil)
		require.ErrorIs(t, err, ErrEmptyScript)
		var runErr *RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, provider.ClassPrecondition, runErr.Class)
		assert.Equal(t, domain.StateIdle, c.Snapshot().State)
	})
}
