package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// InputReader はローカルやGCSのファイルを開くためのリーダーなのだ。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ScriptReader は保存済みのシーン台本ファイルを読み込む構造体です。
// script コマンドの出力だけでなく、説明文付きの応答をそのまま保存したファイルも扱えます。
type ScriptReader struct {
	reader InputReader
}

// NewScriptReader は新しい ScriptReader インスタンスを生成します。
func NewScriptReader(r InputReader) *ScriptReader {
	return &ScriptReader{reader: r}
}

// ReadFromPath は GCS URI やローカルファイルパスから台本を読み込み、
// 抽出済みの生JSONを返します。
func (p *ScriptReader) ReadFromPath(ctx context.Context, path string) (json.RawMessage, error) {
	slog.InfoContext(ctx, "台本ファイルを読み込んでいます", "path", path)
	rc, err := p.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("台本ファイルのオープンに失敗しました (%s): %w", path, err)
	}
	defer rc.Close()

	var sb strings.Builder
	if _, err := io.Copy(&sb, rc); err != nil {
		return nil, fmt.Errorf("台本ファイルの読み込みに失敗しました: %w", err)
	}

	raw, err := Extract(sb.String())
	if err != nil {
		return nil, fmt.Errorf("台本JSONの抽出に失敗しました (%s): %w", path, err)
	}
	return raw, nil
}
