package builder

import (
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/models"
	"github.com/shouni/go-comic-kit/pkg/parser"
	"github.com/shouni/go-comic-kit/pkg/provider/gemini"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config            // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、バックエンドなど）。
	Options    config.GenerateOptions    // Optionsは、コマンドラインから渡された実行時の設定です。
	Reader     parser.InputReader        // Readerは、物語・台本・キャラクター定義の読み込みに使用する入力元です。
	Writer     publisher.OutputWriter    // Writerは、生成された内容を保存するための出力先です。
	Registry   *workflow.Registry        // Registryは、バックエンド名と取得処理の対応表です。
	Controller *workflow.Controller      // Controllerは、生成実行の状態遷移を管理します。
	Catalog    *models.Catalog           // Catalogは、モデル一覧の短時間キャッシュです。
	Publisher  *publisher.ComicPublisher // Publisherは、成果物の書き出しを担います。
	Injector   *character.Injector       // Injectorは、キャラクター参照とシードを扱う共通の Injector です。
	httpClient httpkit.ClientInterface   // httpClient は外部APIとの通信に使う共通クライアント
}

// NormalizeRequest はリクエストの空欄を設定の既定値で埋めるのだ。
func (a *AppContext) NormalizeRequest(req domain.StoryRequest) domain.StoryRequest {
	kit := a.Config.Kit
	if req.TextBackend == "" {
		req.TextBackend = kit.TextBackend
	}
	if req.ImageBackend == "" {
		req.ImageBackend = kit.ImageBackend
	}
	if req.TextModel == "" && req.TextBackend == gemini.BackendName {
		req.TextModel = kit.GeminiModel
	}
	if req.ImageModel == "" && req.ImageBackend == gemini.BackendName {
		req.ImageModel = kit.GeminiImageModel
	}
	return req
}
