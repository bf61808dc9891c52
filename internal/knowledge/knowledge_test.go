package knowledge

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	items := All()
	require.Len(t, items, 8)

	assert.Equal(t, "Basic Basketball Rules", items[0].Title)
	assert.Equal(t, "Game Duration", items[2].Title)
	assert.Equal(t, "Point Guard (PG)", items[3].Title)
	assert.Equal(t, "Center (C)", items[7].Title)

	for _, it := range items {
		assert.NotEmpty(t, it.Title)
		assert.NotEmpty(t, it.Content)
	}

	// Callers get a copy.
	items[0].Title = "changed"
	assert.Equal(t, "Basic Basketball Rules", All()[0].Title)
}

func TestByCategory(t *testing.T) {
	assert.Len(t, ByCategory(CategoryRules), 3)
	assert.Len(t, ByCategory(CategoryPositions), 5)
	assert.Nil(t, ByCategory("strategy"))
	assert.Equal(t, []Category{CategoryRules, CategoryPositions}, Categories())
}

func TestItemText(t *testing.T) {
	it, ok := Find("Scoring System")
	require.True(t, ok)
	assert.Equal(t,
		"Scoring System: 2 points for a field goal inside the three-point line, 3 points for a field goal beyond the three-point line, and 1 point for each successful free throw.",
		it.Text())

	_, ok = Find("Sixth Man")
	assert.False(t, ok)
}

func TestExampleQuestions(t *testing.T) {
	qs := ExampleQuestions()
	require.Len(t, qs, 5)
	assert.Contains(t, qs, "How many points is a three-pointer worth?")
}

func TestExport(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, All(), FormatJSON))

		var doc Document
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Len(t, doc.Categories[CategoryRules], 3)
		assert.Len(t, doc.Categories[CategoryPositions], 5)
		assert.Contains(t, buf.String(), "\n  \"categories\"")
	})

	t.Run("toml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, All(), FormatTOML))

		var doc Document
		_, err := toml.Decode(buf.String(), &doc)
		require.NoError(t, err)
		assert.Equal(t, ByCategory(CategoryPositions), doc.Categories[CategoryPositions])
	})

	t.Run("unknown", func(t *testing.T) {
		err := Export(&bytes.Buffer{}, All(), "yaml")
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}
