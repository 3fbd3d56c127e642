// Package retry はシーン取得と画像取得の両方に適用するリトライポリシーを提供します。
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy は最大試行回数、待ち時間の関数、リトライ可否の判定をまとめたものなのだ。
type Policy struct {
	// MaxAttempts は初回を含む最大試行回数。1未満なら1回として扱うのだ。
	MaxAttempts int
	// Backoff は試行ごとに新しい待ち時間のシーケンスを返す関数です。nil なら待たないのだ。
	Backoff func() backoff.BackOff
	// Retryable が false を返したエラーは即座に返します。nil ならすべてリトライ対象なのだ。
	Retryable func(error) bool
}

// Attempt は1回分の試行関数です。attempt は1始まりなのだ。
type Attempt func(ctx context.Context, attempt int) error

// Notify はリトライ前に呼ばれるフックです。
type Notify func(err error, attempt int, wait time.Duration)

// Constant は固定間隔で待つ Backoff 関数を返すのだ。
func Constant(d time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(d)
	}
}

// Exponential は base から倍々に伸び、jitter の割合で揺らぐ Backoff 関数を返すのだ。
func Exponential(base time.Duration, jitter float64) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.Multiplier = 2
		b.RandomizationFactor = jitter
		b.MaxInterval = base * 16
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}

// None は待ち時間なしでリトライする Backoff 関数なのだ。
func None() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

// Do は op をポリシーに従って実行します。
// 最後の試行のエラー、リトライ不可のエラー、またはコンテキストのエラーを返すのだ。
func (p Policy) Do(ctx context.Context, op Attempt, notify Notify) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	newBackOff := p.Backoff
	if newBackOff == nil {
		newBackOff = None
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(attempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, attempt, wait)
		}
	})
}
