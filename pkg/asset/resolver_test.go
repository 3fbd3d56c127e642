package asset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanelPath(t *testing.T) {
	t.Run("ローカルパスに連番を付ける", func(t *testing.T) {
		got, err := PanelPath("out", 3, false)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out", "panel_3.png"), got)
	})

	t.Run("JPEG では拡張子が jpg になる", func(t *testing.T) {
		got, err := PanelPath("out", 1, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out", "panel_1.jpg"), got)
	})
}
