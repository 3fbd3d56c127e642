package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxCharacters は1回の生成で登録できるキャラクター参照の上限なのだ。
	MaxCharacters = 5
	// MaxCharacterNameLength はキャラクター名の最大文字数なのだ。
	MaxCharacterNameLength = 32
)

var (
	ErrTooManyCharacters     = fmt.Errorf("キャラクターは最大%d人までなのだ", MaxCharacters)
	ErrEmptyCharacterName    = errors.New("キャラクター名が空なのだ")
	ErrCharacterNameTooLong  = fmt.Errorf("キャラクター名は%d文字以内にしてほしいのだ", MaxCharacterNameLength)
	ErrDuplicateCharacter    = errors.New("キャラクター名が重複しているのだ")
	ErrMissingReferenceImage = errors.New("キャラクターの参照画像がないのだ")
	ErrInvalidDataURI        = errors.New("data URI の形式が正しくないのだ")
)

// ReferenceImage は MIME タイプ付きの参照画像ペイロードです。
// JSON では Data が base64 文字列として表現されます。
type ReferenceImage struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// DataURI は画像を data:<mime>;base64,<payload> 形式で返します。
func (img ReferenceImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// ParseDataURI は base64 形式の data URI を ReferenceImage に変換するのだ。
func ParseDataURI(uri string) (ReferenceImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ReferenceImage{}, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ReferenceImage{}, ErrInvalidDataURI
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || mime == "" {
		return ReferenceImage{}, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ReferenceImage{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return ReferenceImage{MimeType: mime, Data: data}, nil
}

// CharacterReference は、生成中のパネル間で一貫させたいキャラクターの定義を保持します。
// 1回の StoryRequest の間だけ保持され、永続化されません。
type CharacterReference struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Image ReferenceImage `json:"image"`
}

// NewCharacterReference は名前と参照画像からキャラクター参照を生成します。
func NewCharacterReference(name string, image ReferenceImage) CharacterReference {
	name = strings.TrimSpace(name)
	return CharacterReference{
		ID:    CharacterIDFromName(name),
		Name:  name,
		Image: image,
	}
}

// CharacterIDFromName は名前から決定論的なIDを生成します。
// 大文字小文字を区別しないので、同じ名前は常に同じIDになるのだ。
func CharacterIDFromName(name string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return "char_" + hex.EncodeToString(hash[:6])
}

// String はキャラクターの情報を文字列で返すのだ。
func (c CharacterReference) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// ValidateCharacters は件数、名前の長さ、大文字小文字を無視した重複を検証するのだ。
func ValidateCharacters(chars []CharacterReference) error {
	if len(chars) > MaxCharacters {
		return ErrTooManyCharacters
	}
	seen := make(map[string]struct{}, len(chars))
	for _, c := range chars {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return ErrEmptyCharacterName
		}
		if utf8.RuneCountInString(name) > MaxCharacterNameLength {
			return fmt.Errorf("%w: %q", ErrCharacterNameTooLong, name)
		}
		if len(c.Image.Data) == 0 {
			return fmt.Errorf("%w: %q", ErrMissingReferenceImage, name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateCharacter, name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
