package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ErrNoScenes はシーンが1件も得られなかったことを示します。
// ハードエラーにするかフォールバックにするかは呼び出し側が決めるのだ。
var ErrNoScenes = errors.New("シーンが1件も得られなかったのだ")

// RawSceneRecord は検証前のプロバイダ応答の1件です。型は信用しないのだ。
type RawSceneRecord struct {
	SceneNumber json.RawMessage `json:"scene_number"`
	ImagePrompt json.RawMessage `json:"image_prompt"`
	Caption     json.RawMessage `json:"caption"`
	Dialogues   json.RawMessage `json:"dialogues"`
}

// Options は正規化の挙動を制御します。
type Options struct {
	IncludeCaptions bool
}

// OptionsFor は StoryRequest から正規化オプションを作るのだ。
func OptionsFor(req domain.StoryRequest) Options {
	return Options{IncludeCaptions: req.IncludeCaptions}
}

// Normalize は抽出済みJSONを PanelDescriptor の列に変換します。
// 自身の出力を再度入力しても同じ結果になるのだ。
func Normalize(raw json.RawMessage, opts Options) ([]domain.PanelDescriptor, error) {
	reply := DecodeReply(raw)
	if reply.Kind == ReplyUnparseable {
		return nil, fmt.Errorf("%w: 応答の形式が %s なのだ", ErrNoScenes, reply.Kind)
	}
	return NormalizeRecords(reply.Records, opts)
}

// NormalizeRecords はレコード列を正規化します。
// オブジェクトでない要素は読み飛ばし、番号は元の配列位置から補うのだ。
func NormalizeRecords(records []json.RawMessage, opts Options) ([]domain.PanelDescriptor, error) {
	panels := make([]domain.PanelDescriptor, 0, len(records))
	used := make(map[int]struct{}, len(records))
	maxNumber := 0

	for i, raw := range records {
		var rec RawSceneRecord
		if isNull(raw) || json.Unmarshal(raw, &rec) != nil {
			slog.Warn("オブジェクトでないシーンを読み飛ばすのだ", "index", i)
			continue
		}
		panel := normalizeRecord(rec, i, opts)

		if _, dup := used[panel.SceneNumber]; dup {
			next := maxNumber + 1
			slog.Warn("重複したシーン番号を振り直すのだ", "index", i, "scene_number", panel.SceneNumber, "reassigned", next)
			panel.SceneNumber = next
		}
		used[panel.SceneNumber] = struct{}{}
		if panel.SceneNumber > maxNumber {
			maxNumber = panel.SceneNumber
		}
		panels = append(panels, panel)
	}

	if len(panels) == 0 {
		return nil, ErrNoScenes
	}
	return panels, nil
}

// SortByScene は scene_number の昇順に安定ソートしたコピーを返すのだ。
func SortByScene(panels []domain.PanelDescriptor) []domain.PanelDescriptor {
	sorted := make([]domain.PanelDescriptor, len(panels))
	copy(sorted, panels)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SceneNumber < sorted[j].SceneNumber
	})
	return sorted
}

func normalizeRecord(rec RawSceneRecord, index int, opts Options) domain.PanelDescriptor {
	panel := domain.PanelDescriptor{
		SceneNumber: sceneNumber(rec.SceneNumber, index),
		ImagePrompt: stringify(rec.ImagePrompt),
		Dialogues:   []string{},
	}
	if strings.TrimSpace(panel.ImagePrompt) == "" {
		slog.Warn("image_prompt が空なのでプレースホルダーを使うのだ", "scene_number", panel.SceneNumber)
		panel.ImagePrompt = domain.DefaultImagePrompt
	}

	if !opts.IncludeCaptions {
		return panel
	}

	panel.Caption = domain.StringPtr(stringify(rec.Caption))
	panel.Dialogues = dialogues(rec.Dialogues)
	return panel
}

// sceneNumber は正の整数として読める値ならそれを、そうでなければ index+1 を返すのだ。
func sceneNumber(raw json.RawMessage, index int) int {
	fallback := index + 1
	if isNull(raw) {
		return fallback
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if n := int(num); n >= 1 {
			return n
		}
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 1 {
			return n
		}
	}
	return fallback
}

func dialogues(raw json.RawMessage) []string {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, dialogueLine(item))
	}
	return out
}

// dialogueLine は {character, line} を `Name: "line"` 形式に整形するのだ。
func dialogueLine(raw json.RawMessage) string {
	var pair struct {
		Character *string `json:"character"`
		Line      *string `json:"line"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) && json.Unmarshal(raw, &pair) == nil &&
		pair.Character != nil && pair.Line != nil {
		return fmt.Sprintf("%s: \"%s\"", *pair.Character, *pair.Line)
	}
	return stringify(raw)
}

// stringify は JSON 文字列ならその中身を、null や未指定なら空文字を、
// それ以外は圧縮したJSON表現を返します。
func stringify(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
