package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterIDFromName(t *testing.T) {
	t.Run("大文字小文字が違っても同じIDになること", func(t *testing.T) {
		assert.Equal(t, CharacterIDFromName("Zoe"), CharacterIDFromName(" zoe "))
	})
	t.Run("別の名前は別のIDになること", func(t *testing.T) {
		assert.NotEqual(t, CharacterIDFromName("Zoe"), CharacterIDFromName("Mark"))
	})
}

func TestParseDataURI(t *testing.T) {
	img := ReferenceImage{MimeType: "image/png", Data: []byte("png-bytes")}

	got, err := ParseDataURI(img.DataURI())
	require.NoError(t, err)
	assert.Equal(t, img, got)

	for _, bad := range []string{"", "image/png;base64,AAAA", "data:image/png,AAAA", "data:image/png;base64,@@@"} {
		_, err := ParseDataURI(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURI, bad)
	}
}

func TestParseCharacterFile(t *testing.T) {
	t.Run("トップレベル配列を読み込めること", func(t *testing.T) {
		entries, err := ParseCharacterFile([]byte("- name: Zoe\n  image: zoe.png\n- name: Mark\n  image: https://example.com/mark.png\n"))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Mark", entries[1].Name)
	})

	t.Run("characters キーで包まれたJSONも読み込めること", func(t *testing.T) {
		entries, err := ParseCharacterFile([]byte(`{"characters": [{"name": "Ilsa", "image": "ilsa.jpg"}]}`))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "ilsa.jpg", entries[0].Image)
	})

	t.Run("空ファイルは空の結果になること", func(t *testing.T) {
		entries, err := ParseCharacterFile([]byte("  \n"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
