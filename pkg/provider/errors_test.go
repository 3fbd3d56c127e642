package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

type codedError struct{ code int }

func (e codedError) Error() string   { return "request failed" }
func (e codedError) StatusCode() int { return e.code }

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"StatusCodeメソッドの429", codedError{429}, ClassTransient},
		{"StatusCodeメソッドの401", fmt.Errorf("wrap: %w", codedError{401}), ClassAuth},
		{"メッセージ中の503", errors.New("HTTPリクエスト失敗: ステータスコード 503"), ClassTransient},
		{"メッセージ中の403", errors.New("status 403 Forbidden"), ClassAuth},
		{"コードを含まないエラー", errors.New("connection reset by peer"), ClassTransport},
		{"タイムアウト", context.DeadlineExceeded, ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassOf(ClassifyHTTPError(tt.err)))
		})
	}

	t.Run("分類済みのエラーはそのまま返ること", func(t *testing.T) {
		orig := NewError(ClassContentPolicy, "SAFETY", nil)
		assert.Same(t, orig, ClassifyHTTPError(orig))
	})
	assert.NoError(t, ClassifyHTTPError(nil))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(NewError(ClassContentPolicy, "", nil)))
	assert.True(t, IsPermanent(fmt.Errorf("x: %w", NewError(ClassAuth, "", nil))))
	assert.False(t, IsPermanent(NewError(ClassTransient, "", nil)))
	assert.False(t, IsPermanent(NewError(ClassMalformedOutput, "", nil)))
	assert.True(t, IsTransient(NewError(ClassTransient, "", nil)))
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage(NewError(ClassContentPolicy, "SAFETY", errors.New("blocked")))
	assert.Contains(t, msg, "SAFETY")
	assert.Contains(t, UserMessage(NewError(ClassMalformedOutput, "", errors.New(`{"raw":"secret"}`))), "malformed")
	assert.NotContains(t, UserMessage(NewError(ClassMalformedOutput, "", errors.New(`{"raw":"secret"}`))), "secret")
}

func TestAspectEncoding(t *testing.T) {
	assert.Equal(t, "1:1", AspectEnum(domain.AspectSquare))
	assert.Equal(t, "3:4", AspectEnum(domain.AspectPortrait))
	assert.Equal(t, "16:9", AspectEnum(domain.AspectLandscape))

	w, h := AspectDimensions(domain.AspectPortrait)
	assert.Less(t, w, h)
	w, h = AspectDimensions(domain.AspectLandscape)
	assert.Greater(t, w, h)
}
