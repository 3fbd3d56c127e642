package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func refs(names ...string) []domain.CharacterReference {
	out := make([]domain.CharacterReference, 0, len(names))
	for _, n := range names {
		out = append(out, domain.NewCharacterReference(n, domain.ReferenceImage{MimeType: "image/png", Data: []byte(n)}))
	}
	return out
}

func TestRelevant(t *testing.T) {
	t.Run("登場するキャラクターだけが選ばれること", func(t *testing.T) {
		got := Relevant(refs("Zoe", "Mark", "Ilsa"), "Zoe waves at Mark")
		assert.Equal(t, []string{"Zoe", "Mark"}, Names(got))
	})

	t.Run("大文字小文字を区別しないこと", func(t *testing.T) {
		got := Relevant(refs("Zoe"), "ZOE runs")
		assert.Len(t, got, 1)
	})

	t.Run("部分文字列でも一致してしまうこと（既知の近似）", func(t *testing.T) {
		got := Relevant(refs("Al"), "The Alley is dark")
		assert.Len(t, got, 1)
	})

	t.Run("該当なしなら空であること", func(t *testing.T) {
		assert.Empty(t, Relevant(refs("Ilsa"), "A cat sleeps"))
	})
}

func TestInjector_Seed(t *testing.T) {
	inj := NewDefaultInjector()

	t.Run("キャラクターもlock-seedもなければnilであること", func(t *testing.T) {
		assert.Nil(t, inj.Seed(domain.StoryRequest{}))
	})

	t.Run("lock-seedなら固定値であること", func(t *testing.T) {
		seed := inj.Seed(domain.StoryRequest{LockSeed: true})
		require.NotNil(t, seed)
		assert.Equal(t, DefaultPinnedSeed, *seed)
	})

	t.Run("キャラクターがいれば毎回同じ値であること", func(t *testing.T) {
		req := domain.StoryRequest{Characters: refs("Zoe")}
		a, b := inj.Seed(req), inj.Seed(req)
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, *a, *b)
	})

	t.Run("設定した固定値が使われること", func(t *testing.T) {
		seed := NewInjector(777).Seed(domain.StoryRequest{LockSeed: true})
		assert.Equal(t, int64(777), *seed)
	})

	t.Run("0も固定値として使われること", func(t *testing.T) {
		seed := NewInjector(0).Seed(domain.StoryRequest{LockSeed: true})
		require.NotNil(t, seed)
		assert.Equal(t, int64(0), *seed)
	})
}

func TestInjector_SceneInstruction(t *testing.T) {
	inj := NewDefaultInjector()
	chars := refs("Zoe", "Mark")

	multi := inj.SceneInstruction(chars, true)
	assert.Contains(t, multi, "Zoe, Mark")
	assert.Contains(t, multi, "attached")

	text := inj.SceneInstruction(chars, false)
	assert.Contains(t, text, "word for word")
	assert.NotContains(t, text, "attached")

	assert.Empty(t, inj.SceneInstruction(nil, true))
}

func TestInjector_SceneAttachments(t *testing.T) {
	parts := NewDefaultInjector().SceneAttachments(refs("Zoe"))
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "Zoe")
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MimeType)
}

func TestInjector_ImageNote(t *testing.T) {
	inj := NewDefaultInjector()
	assert.Empty(t, inj.ImageNote(nil, true))
	assert.Contains(t, inj.ImageNote(refs("Zoe"), true), "reference images")
	assert.Contains(t, inj.ImageNote(refs("Zoe"), false), "previous panels")
	assert.Len(t, inj.ImageReferences(refs("Zoe", "Mark")), 2)
}
