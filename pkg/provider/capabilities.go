package provider

import (
	"context"
	"time"
)

const (
	// DefaultFreeTextAttempts は自由テキスト系バックエンドの試行回数（初回＋リトライ2回）なのだ。
	DefaultFreeTextAttempts = 3
	// DefaultFreeTextRetryDelay は自由テキスト系バックエンドの試行間隔です。
	DefaultFreeTextRetryDelay = 2 * time.Second
)

// Capabilities はシーン取得のオーケストレーションを切り替える能力記述子です。
type Capabilities struct {
	// SupportsResponseFormat は JSON 応答形式の指定ができるかどうか。
	SupportsResponseFormat bool
	// SupportsMultimodal は画像パーツの添付ができるかどうか。
	SupportsMultimodal bool
	// RetryBudget は最大試行回数（初回を含む）。
	RetryBudget int
	// RetryDelay は試行間の固定待ち時間。
	RetryDelay time.Duration
	// FailureIsFatal が true なら枯渇時にエラー、false なら空の結果を返してフォールバックさせる。
	FailureIsFatal bool
	// RequiresKey は APIキーが必須かどうか。
	RequiresKey bool
}

// StructuredCapabilities は JSON 応答形式に対応したバックエンド向けの記述子なのだ。
func StructuredCapabilities(multimodal bool) Capabilities {
	return Capabilities{
		SupportsResponseFormat: true,
		SupportsMultimodal:     multimodal,
		RetryBudget:            1,
		FailureIsFatal:         true,
		RequiresKey:            true,
	}
}

// FreeTextCapabilities は形式保証のない認証不要バックエンド向けの記述子なのだ。
func FreeTextCapabilities() Capabilities {
	return Capabilities{
		RetryBudget: DefaultFreeTextAttempts,
		RetryDelay:  DefaultFreeTextRetryDelay,
	}
}

// MultimodalFunc はテキストモデルが画像パーツを受け付けるかを返します。
// nil のときはどのモデルもマルチモーダルではない扱いなのだ。
type MultimodalFunc func(ctx context.Context, model string) bool

// Supports は f が nil でも安全に呼び出せるのだ。
func (f MultimodalFunc) Supports(ctx context.Context, model string) bool {
	if f == nil {
		return false
	}
	return f(ctx, model)
}
