package character

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// DefaultPinnedSeed は実行全体で共有する固定シードの既定値なのだ。
const DefaultPinnedSeed int64 = 42

// Injector はキャラクターの同一性をテキスト生成と画像生成の両方に織り込みます。
type Injector struct {
	pinnedSeed int64
}

// NewInjector は固定シード値を指定して Injector を作るのだ。0 もそのまま固定シードになります。
func NewInjector(pinnedSeed int64) *Injector {
	return &Injector{pinnedSeed: pinnedSeed}
}

// NewDefaultInjector は DefaultPinnedSeed を使う Injector を作ります。
func NewDefaultInjector() *Injector {
	return NewInjector(DefaultPinnedSeed)
}

// Relevant は名前が大文字小文字を無視した部分文字列として text に含まれるキャラクターを返します。
// 短い名前は他の単語の一部にも一致してしまうが、既知の近似として扱うのだ。
func Relevant(refs []domain.CharacterReference, text string) []domain.CharacterReference {
	lower := strings.ToLower(text)
	var out []domain.CharacterReference
	for _, ref := range refs {
		name := strings.ToLower(strings.TrimSpace(ref.Name))
		if name != "" && strings.Contains(lower, name) {
			out = append(out, ref)
		}
	}
	return out
}

// Names はキャラクター名の一覧を返すのだ。
func Names(refs []domain.CharacterReference) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names
}

// SceneInstruction はシーン台本生成向けのキャラクター指示文を組み立てます。
// multimodal なら添付画像から外見を読み取らせ、そうでなければ初出時に考えた外見を毎回そのまま繰り返させるのだ。
func (i *Injector) SceneInstruction(refs []domain.CharacterReference, multimodal bool) string {
	if len(refs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Recurring characters: ")
	sb.WriteString(strings.Join(Names(refs), ", "))
	sb.WriteString(".\n")
	if multimodal {
		sb.WriteString("A reference image is attached for each character, in the order listed. ")
		sb.WriteString("Derive each character's face, hair and clothing from their attached image instead of inventing them, ")
		sb.WriteString("and describe them the same way in every image_prompt where they appear.\n")
	} else {
		sb.WriteString("On a character's first appearance, invent one detailed physical description for them. ")
		sb.WriteString("Repeat that exact description, word for word, in every later image_prompt that mentions the character.\n")
	}
	return sb.String()
}

// SceneAttachments はマルチモーダル対応バックエンドに添付する画像パーツを返すのだ。
func (i *Injector) SceneAttachments(refs []domain.CharacterReference) []provider.Part {
	parts := make([]provider.Part, 0, len(refs)*2)
	for _, ref := range refs {
		parts = append(parts,
			provider.TextPart(fmt.Sprintf("Reference image for %s:", ref.Name)),
			provider.ImagePart(ref.Image),
		)
	}
	return parts
}

// ImageNote はパネル画像のプロンプトに追記するキャラクターの一貫性指示を返します。
func (i *Injector) ImageNote(relevant []domain.CharacterReference, referencesAttached bool) string {
	if len(relevant) == 0 {
		return ""
	}
	names := strings.Join(Names(relevant), ", ")
	if referencesAttached {
		return fmt.Sprintf("Characters in this panel: %s. Match each character's appearance to the attached reference images exactly.", names)
	}
	return fmt.Sprintf("Characters in this panel: %s. Keep each character's established appearance identical to previous panels.", names)
}

// ImageReferences は画像生成に添付する参照画像を返すのだ。
func (i *Injector) ImageReferences(relevant []domain.CharacterReference) []provider.InlineData {
	refs := make([]provider.InlineData, 0, len(relevant))
	for _, ref := range relevant {
		refs = append(refs, provider.InlineData{MimeType: ref.Image.MimeType, Data: ref.Image.Data})
	}
	return refs
}

// Seed は実行全体で使うシードを返します。
// lock-seed が指定されているか、キャラクターが1人でもいれば全パネル共通の固定値、そうでなければ nil なのだ。
// 背景まで似通ってしまうが、キャラクターの見た目の安定を優先するのだ。
func (i *Injector) Seed(req domain.StoryRequest) *int64 {
	if !req.LockSeed && !req.HasCharacters() {
		return nil
	}
	seed := i.pinnedSeed
	return &seed
}
