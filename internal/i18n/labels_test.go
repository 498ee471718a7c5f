package i18n_test

import (
	"testing"

	"github.com/easypoll/easypoll/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels(t *testing.T) {
	t.Run("loads english", func(t *testing.T) {
		labels, err := i18n.Labels("en")
		require.NoError(t, err)
		assert.Equal(t, "Create poll", labels["createPoll"])
	})

	t.Run("loads swedish", func(t *testing.T) {
		labels, err := i18n.Labels("sv")
		require.NoError(t, err)
		assert.Equal(t, "Skapa omröstning", labels["createPoll"])
	})

	t.Run("falls back to english for unknown languages", func(t *testing.T) {
		labels, err := i18n.Labels("de")
		require.NoError(t, err)
		assert.Equal(t, "Create poll", labels["createPoll"])

		labels, err = i18n.Labels("")
		require.NoError(t, err)
		assert.Equal(t, "Create poll", labels["createPoll"])
	})

	t.Run("dictionaries cover the same keys", func(t *testing.T) {
		en, err := i18n.Labels("en")
		require.NoError(t, err)
		sv, err := i18n.Labels("sv")
		require.NoError(t, err)

		require.Equal(t, len(en), len(sv))
		for key := range en {
			assert.Contains(t, sv, key)
		}
	})
}
