package parser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	const payload = `[{"scene_number":1,"image_prompt":"a robot"},{"scene_number":2,"image_prompt":"a cat"}]`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"そのままのJSON配列", payload, payload},
		{"前後に説明文がある場合", "Sure! Here are your scenes:\n" + payload + "\nEnjoy the comic.", payload},
		{"jsonフェンスで囲まれている場合", "Result:\n```json\n" + payload + "\n```\nThanks", payload},
		{"大文字のJSONタグのフェンス", "```JSON\n" + payload + "```", payload},
		{"ラッパーオブジェクト", `Here: {"scenes": ` + payload + `} done`, `{"scenes": ` + payload + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtract_RepairsTrailingCommas(t *testing.T) {
	input := "```json\n[{\"scene_number\": 1, \"dialogues\": [\"hi\",],},]\n```"
	got, err := Extract(input)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"scene_number": 1, "dialogues": ["hi"]}]`, string(got))
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"空文字列", "", ErrNoCandidate},
		{"括弧がない文章", "I cannot help with that request.", ErrNoCandidate},
		{"途中で切れた配列", `[{"scene_number": 1, "image_prompt": "a robot"`, ErrNoCandidate},
		{"修復できない壊れたJSON", `[{"scene_number": 1 "image_prompt": }]`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractCandidate_WidestSpan(t *testing.T) {
	got, ok := ExtractCandidate(`noise [1] middle [2] tail`)
	require.True(t, ok)
	assert.Equal(t, "[1] middle [2]", got, "最初の開き括弧から最後の閉じ括弧までを選ぶのだ")
}

func TestDecode(t *testing.T) {
	var v []map[string]any
	require.NoError(t, Decode("prefix [{\"a\": 1},] suffix", &v))
	require.Len(t, v, 1)
	assert.EqualValues(t, 1, v[0]["a"])

	var s struct{ A string }
	err := Decode(`{"A": 5}`, &s)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab...(truncated)", Truncate("abcdef", 2))
	assert.Equal(t, "あい...(truncated)", Truncate("あいうえ", 2))
}

type mockReader struct {
	openFunc func(ctx context.Context, path string) (io.ReadCloser, error)
}

func (m *mockReader) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return m.openFunc(ctx, path)
}

func TestScriptReader_ReadFromPath(t *testing.T) {
	t.Run("ファイル内容からJSONを抽出できること", func(t *testing.T) {
		r := NewScriptReader(&mockReader{openFunc: func(ctx context.Context, path string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("saved reply:\n[{\"scene_number\": 3}]")), nil
		}})
		raw, err := r.ReadFromPath(context.Background(), "script.json")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"scene_number": 3}]`, string(raw))
	})

	t.Run("オープン失敗はラップされて返ること", func(t *testing.T) {
		openErr := errors.New("not found")
		r := NewScriptReader(&mockReader{openFunc: func(ctx context.Context, path string) (io.ReadCloser, error) {
			return nil, openErr
		}})
		_, err := r.ReadFromPath(context.Background(), "missing.json")
		assert.ErrorIs(t, err, openErr)
	})
}
