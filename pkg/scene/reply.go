package scene

import (
	"bytes"
	"encoding/json"
)

// ReplyKind はプロバイダ応答の形を表すタグなのだ。
type ReplyKind int

const (
	// ReplyUnparseable は配列でも scenes ラッパーでもない応答です。
	ReplyUnparseable ReplyKind = iota
	// ReplyArray はシーン配列そのものです。
	ReplyArray
	// ReplyWrapped は {"scenes": [...]} 形式の応答です。
	ReplyWrapped
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyArray:
		return "array"
	case ReplyWrapped:
		return "wrapped"
	default:
		return "unparseable"
	}
}

// Reply は抽出済みJSONを分類した結果です。
type Reply struct {
	Kind    ReplyKind
	Records []json.RawMessage
}

// DecodeReply は生JSONを3種類のいずれかに分類します。
// 配列とラッパー以外はすべて ReplyUnparseable として扱い、暗黙の変換はしないのだ。
func DecodeReply(raw json.RawMessage) Reply {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Reply{Kind: ReplyUnparseable}
	}

	switch trimmed[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return Reply{Kind: ReplyUnparseable}
		}
		return Reply{Kind: ReplyArray, Records: records}
	case '{':
		var wrapper struct {
			Scenes json.RawMessage `json:"scenes"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return Reply{Kind: ReplyUnparseable}
		}
		var records []json.RawMessage
		if err := json.Unmarshal(wrapper.Scenes, &records); err != nil || records == nil {
			return Reply{Kind: ReplyUnparseable}
		}
		return Reply{Kind: ReplyWrapped, Records: records}
	}
	return Reply{Kind: ReplyUnparseable}
}
