// Package asset は成果物の出力パスを GCS とローカルの両方で解決します。
package asset

import (
	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultManifestName はパネル一覧と実行状態を書き出す JSON のファイル名です。
	DefaultManifestName = "comic.json"
	// DefaultStoryboardName はキャプションと台詞をまとめた Markdown のファイル名です。
	DefaultStoryboardName = "storyboard.md"
	// DefaultScriptName は script コマンドが書き出すシーン台本のファイル名です。
	DefaultScriptName = "scenes.json"
	// DefaultPanelFileName はパネル画像の共通のベースファイル名です。
	DefaultPanelFileName = "panel.png"
	// DefaultPanelJPEGFileName は JPEG で保存するときのベースファイル名なのだ。
	DefaultPanelJPEGFileName = "panel.jpg"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolveOutputPath(baseDir, fileName)
}

// ResolveBaseURL は、入力パス（URLまたはローカルパス）から
// 親ディレクトリのパスを解決し、末尾がセパレータで終わるように正規化します。
func ResolveBaseURL(rawPath string) string {
	return urlpath.ResolveBaseURL(rawPath)
}

// PanelPath は scene_number を付けたパネル画像のパスを返すのだ。
// 例: ("out", 2, false) -> "out/panel_2.png"
func PanelPath(baseDir string, sceneNumber int, jpeg bool) (string, error) {
	name := DefaultPanelFileName
	if jpeg {
		name = DefaultPanelJPEGFileName
	}
	base, err := ResolveOutputPath(baseDir, name)
	if err != nil {
		return "", err
	}
	return urlpath.GenerateIndexedPath(base, sceneNumber)
}
