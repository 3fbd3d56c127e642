package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/generator"
	"github.com/shouni/go-comic-kit/pkg/models"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/provider/gemini"
	"github.com/shouni/go-comic-kit/pkg/provider/pollinations"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/runner"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// BuildAppContext は、設定からすべての依存関係を組み立てた AppContext を返すのだ。
func BuildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}
	return NewAppContext(ctx, cfg, reader, writer)
}

// NewAppContext は入出力を受け取り、バックエンド、Controller、カタログを組み立てます。
func NewAppContext(ctx context.Context, cfg *config.Config, reader parser.InputReader, writer publisher.OutputWriter) (*AppContext, error) {
	kit := cfg.Kit
	timeout := kit.HTTPTimeout
	if cfg.Options.HTTPTimeout > 0 {
		timeout = cfg.Options.HTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	injector := character.NewInjector(kit.PinnedSeed)
	instructions, err := prompts.NewSceneInstructionBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	interval := kit.ImageInterval
	if cfg.Options.ImageInterval > 0 {
		interval = cfg.Options.ImageInterval
	}

	registry := workflow.NewRegistry(kit.TextBackend, kit.ImageBackend)
	catalog := models.NewCatalog(kit.ModelCacheTTL)

	if err := registerPollinations(registry, catalog, httpClient, injector, instructions, kit.PollinationsTextURL, kit.PollinationsImageURL, interval); err != nil {
		return nil, err
	}
	if kit.HasGeminiKey() {
		if err := registerGemini(ctx, registry, catalog, kit.GeminiAPIKey, kit.Temperature, injector, instructions, interval); err != nil {
			return nil, err
		}
	} else {
		slog.Debug("GEMINI_API_KEY が未設定のため、gemini バックエンドは利用できません")
		registry.MarkUnavailable(gemini.BackendName, provider.NewError(provider.ClassPrecondition, "missing_api_key",
			fmt.Errorf("gemini バックエンドを使うには GEMINI_API_KEY を設定してほしいのだ")))
	}
	catalog.Register(gemini.BackendName, nil, geminiDefaults)

	concurrency := kit.ImageWorkers
	if cfg.Options.Concurrency > 0 {
		concurrency = cfg.Options.Concurrency
	}
	controller, err := workflow.NewController(workflow.Config{
		MaxPages:    kit.MaxComicPages,
		Concurrency: concurrency,
		Credentials: func(backend string) bool {
			return backend != gemini.BackendName || kit.HasGeminiKey()
		},
	}, registry, injector)
	if err != nil {
		return nil, fmt.Errorf("Controllerの初期化に失敗しました: %w", err)
	}

	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Reader:     reader,
		Writer:     writer,
		Registry:   registry,
		Controller: controller,
		Catalog:    catalog,
		Publisher:  publisher.NewComicPublisher(writer),
		Injector:   injector,
		httpClient: httpClient,
	}, nil
}

func registerPollinations(
	registry *workflow.Registry,
	catalog *models.Catalog,
	httpClient httpkit.ClientInterface,
	injector *character.Injector,
	instructions *prompts.SceneInstructionBuilder,
	textURL, imageURL string,
	interval time.Duration,
) error {
	textBackend, err := pollinations.NewTextBackend(httpClient, textURL, catalog.MultimodalLookup(pollinations.BackendName))
	if err != nil {
		return fmt.Errorf("pollinations テキストバックエンドの初期化に失敗しました: %w", err)
	}
	sceneRunner, err := runner.NewSceneRunner(textBackend, instructions, injector)
	if err != nil {
		return err
	}
	registry.RegisterText(pollinations.BackendName, sceneRunner)

	imageBackend, err := pollinations.NewImageBackend(httpClient, imageURL)
	if err != nil {
		return fmt.Errorf("pollinations 画像バックエンドの初期化に失敗しました: %w", err)
	}
	panelGen, err := generator.NewPanelGenerator(imageBackend, injector, generator.WithMinInterval(interval))
	if err != nil {
		return err
	}
	registry.RegisterImage(pollinations.BackendName, panelGen)

	catalog.Register(pollinations.BackendName, pollinations.NewModelLister(httpClient, textURL, imageURL), pollinationsDefaults)
	return nil
}

func registerGemini(
	ctx context.Context,
	registry *workflow.Registry,
	catalog *models.Catalog,
	apiKey string,
	temperature float32,
	injector *character.Injector,
	instructions *prompts.SceneInstructionBuilder,
	interval time.Duration,
) error {
	aiClient, err := gemini.NewClient(ctx, apiKey, temperature)
	if err != nil {
		return err
	}
	modelsClient, err := gemini.NewModelsClient(ctx, apiKey)
	if err != nil {
		return err
	}

	textBackend, err := gemini.NewTextBackend(modelsClient.Models, temperature, catalog.MultimodalLookup(gemini.BackendName))
	if err != nil {
		return err
	}
	sceneRunner, err := runner.NewSceneRunner(textBackend, instructions, injector)
	if err != nil {
		return err
	}
	registry.RegisterText(gemini.BackendName, sceneRunner)

	imageBackend, err := gemini.NewImageBackend(aiClient)
	if err != nil {
		return err
	}
	panelGen, err := generator.NewPanelGenerator(imageBackend, injector, generator.WithMinInterval(interval))
	if err != nil {
		return err
	}
	registry.RegisterImage(gemini.BackendName, panelGen)
	return nil
}

func pollinationsDefaults(kind provider.ModelKind) []provider.ModelInfo {
	if kind == provider.KindImage {
		return pollinations.DefaultImageModels()
	}
	return pollinations.DefaultTextModels()
}

func geminiDefaults(kind provider.ModelKind) []provider.ModelInfo {
	if kind == provider.KindImage {
		return gemini.DefaultImageModels()
	}
	return gemini.DefaultTextModels()
}
