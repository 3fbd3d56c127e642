package parser

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNoCandidate はテキスト中にJSONらしき部分が見つからなかったことを示すのだ。
	ErrNoCandidate = errors.New("応答からJSONの候補が見つからなかったのだ")
	// ErrMalformed は候補は見つかったが修復しても解析できなかったことを示すのだ。
	ErrMalformed = errors.New("応答のJSONを解析できなかったのだ")
)

// ExtractCandidate は任意のテキストからJSON候補の部分文字列を取り出します。
//
// 1. ```json フェンスがあればその中身を使います。
// 2. なければ最初の '{' または '[' から、対応する種類の閉じ括弧の最後の出現までを取ります。
// 前後の説明文を許容するため、最も広い範囲をわざと選ぶのだ。
func ExtractCandidate(text string) (string, bool) {
	if m := jsonFenceRegex.FindStringSubmatch(text); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return inner, true
		}
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// RepairTrailingCommas は閉じ括弧の直前のカンマを取り除きます。
func RepairTrailingCommas(candidate string) string {
	return trailingCommaRegex.ReplaceAllString(candidate, "$1")
}

// Extract はテキストからJSON値を取り出して検証済みの生JSONを返します。
// 厳密な解析に失敗した場合だけ、末尾カンマの修復を1回だけ試すのだ。
// 失敗はパニックではなくエラーとして返るので、呼び出し側のリトライに任せられます。
func Extract(text string) (json.RawMessage, error) {
	candidate, ok := ExtractCandidate(text)
	if !ok {
		return nil, ErrNoCandidate
	}
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	repaired := RepairTrailingCommas(candidate)
	if json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired), nil
	}
	return nil, ErrMalformed
}

// Decode は Extract した結果を v にデコードするのだ。
func Decode(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(ErrMalformed, err)
	}
	return nil
}
