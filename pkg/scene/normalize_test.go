package scene

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ReplyKind
		n    int
	}{
		{"配列", `[{"scene_number":1},{"scene_number":2}]`, ReplyArray, 2},
		{"scenesラッパー", `{"scenes":[{"scene_number":1}]}`, ReplyWrapped, 1},
		{"scenesを持たないオブジェクト", `{"panels":[{"scene_number":1}]}`, ReplyUnparseable, 0},
		{"scenesが配列でないオブジェクト", `{"scenes":"none"}`, ReplyUnparseable, 0},
		{"文字列", `"hello"`, ReplyUnparseable, 0},
		{"空", ``, ReplyUnparseable, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeReply(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got.Kind)
			assert.Len(t, got.Records, tt.n)
		})
	}
}

func TestNormalize_Numbering(t *testing.T) {
	t.Run("連番のscene_numberはそのまま保たれること", func(t *testing.T) {
		raw := `[{"scene_number":1,"image_prompt":"a"},{"scene_number":2,"image_prompt":"b"},{"scene_number":3,"image_prompt":"c"}]`
		panels, err := Normalize(json.RawMessage(raw), Options{IncludeCaptions: true})
		require.NoError(t, err)
		require.Len(t, panels, 3)
		for i, p := range panels {
			assert.Equal(t, i+1, p.SceneNumber)
		}
	})

	t.Run("欠落や不正なscene_numberは位置+1になること", func(t *testing.T) {
		raw := `[{"image_prompt":"a"},{"scene_number":0,"image_prompt":"b"},{"scene_number":"x","image_prompt":"c"},{"scene_number":null,"image_prompt":"d"},{"scene_number":-2,"image_prompt":"e"}]`
		panels, err := Normalize(json.RawMessage(raw), Options{})
		require.NoError(t, err)
		require.Len(t, panels, 5)
		for i, p := range panels {
			assert.Equal(t, i+1, p.SceneNumber, "index %d", i)
		}
	})

	t.Run("数値文字列のscene_numberは数値として扱われること", func(t *testing.T) {
		panels, err := Normalize(json.RawMessage(`[{"scene_number":"4","image_prompt":"a"}]`), Options{})
		require.NoError(t, err)
		assert.Equal(t, 4, panels[0].SceneNumber)
	})

	t.Run("重複した番号は最大値+1に振り直されること", func(t *testing.T) {
		panels, err := Normalize(json.RawMessage(`[{"scene_number":2,"image_prompt":"a"},{"scene_number":2,"image_prompt":"b"}]`), Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, panels[0].SceneNumber)
		assert.Equal(t, 3, panels[1].SceneNumber)
	})
}

func TestNormalize_Captions(t *testing.T) {
	raw := json.RawMessage(`{"scenes":[{"scene_number":1,"image_prompt":"Zoe waves","caption":"Morning","dialogues":[{"character":"Zoe","line":"Hi!"},"(rain falls)",42,{"speaker":"Mark"}]}]}`)

	t.Run("キャプション無効時は caption が無く dialogues が空になること", func(t *testing.T) {
		panels, err := Normalize(raw, Options{IncludeCaptions: false})
		require.NoError(t, err)
		require.Len(t, panels, 1)
		assert.Nil(t, panels[0].Caption)
		assert.NotNil(t, panels[0].Dialogues)
		assert.Empty(t, panels[0].Dialogues)
	})

	t.Run("キャプション有効時は台詞が整形されること", func(t *testing.T) {
		panels, err := Normalize(raw, Options{IncludeCaptions: true})
		require.NoError(t, err)
		require.NotNil(t, panels[0].Caption)
		assert.Equal(t, "Morning", *panels[0].Caption)
		assert.Equal(t, []string{`Zoe: "Hi!"`, "(rain falls)", "42", `{"speaker":"Mark"}`}, panels[0].Dialogues)
	})

	t.Run("captionがnullなら空文字になり、dialoguesが配列でなければ空になること", func(t *testing.T) {
		panels, err := Normalize(json.RawMessage(`[{"image_prompt":"x","caption":null,"dialogues":"oops"}]`), Options{IncludeCaptions: true})
		require.NoError(t, err)
		require.NotNil(t, panels[0].Caption)
		assert.Equal(t, "", *panels[0].Caption)
		assert.Equal(t, []string{}, panels[0].Dialogues)
	})
}

func TestNormalize_NoScenes(t *testing.T) {
	for _, raw := range []string{`[]`, `{"scenes":[]}`, `{"title":"x"}`, `[1, "two", null]`, `42`} {
		t.Run(raw, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(raw), Options{IncludeCaptions: true})
			assert.ErrorIs(t, err, ErrNoScenes)
		})
	}
}

func TestNormalize_PlaceholderPrompt(t *testing.T) {
	panels, err := Normalize(json.RawMessage(`[{"scene_number":1}]`), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultImagePrompt, panels[0].ImagePrompt)
}

func TestNormalize_PromptVerbatim(t *testing.T) {
	panels, err := Normalize(json.RawMessage(`[{"scene_number":1,"image_prompt":"  a rainy street\n"},{"image_prompt":"   "}]`), Options{})
	require.NoError(t, err)
	assert.Equal(t, "  a rainy street\n", panels[0].ImagePrompt)
	assert.Equal(t, domain.DefaultImagePrompt, panels[1].ImagePrompt)
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`[{"scene_number":3,"image_prompt":"a","caption":"c","dialogues":[{"character":"Zoe","line":"Hi"}]},{"image_prompt":"b"}]`,
		`{"scenes":[{"image_prompt":"only prompt"},{"scene_number":"7","caption":null}]}`,
	}
	for i, in := range inputs {
		for _, captions := range []bool{true, false} {
			t.Run(fmt.Sprintf("input%d/captions=%v", i, captions), func(t *testing.T) {
				opts := Options{IncludeCaptions: captions}
				first, err := Normalize(json.RawMessage(in), opts)
				require.NoError(t, err)

				encoded, err := json.Marshal(first)
				require.NoError(t, err)
				second, err := Normalize(encoded, opts)
				require.NoError(t, err)

				assert.Equal(t, first, second)
			})
		}
	}
}

func TestSortByScene(t *testing.T) {
	panels := []domain.PanelDescriptor{{SceneNumber: 3}, {SceneNumber: 1}, {SceneNumber: 2}}
	sorted := SortByScene(panels)
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].SceneNumber, sorted[1].SceneNumber, sorted[2].SceneNumber})
	assert.Equal(t, 3, panels[0].SceneNumber, "元のスライスは変更しないのだ")
}
