package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mensajemagico/internal/domain"
)

func TestContextWords_Add(t *testing.T) {
	w := NewContextWords(3, stubFilter{banned: "idiota"})

	require.NoError(t, w.Add("  playa "))
	require.NoError(t, w.Add("verano"))
	require.NoError(t, w.Add("PLAYA"), "duplicates are ignored")
	assert.Equal(t, []string{"playa", "verano"}, w.Words())

	assert.ErrorIs(t, w.Add(""), domain.ErrMissingField)
	assert.ErrorIs(t, w.Add("tonto idiota"), domain.ErrOffensiveContent)
	assert.ErrorIs(t, w.Add("idiota"), domain.ErrInvalidInput)
	assert.Equal(t, 2, w.Len())

	require.NoError(t, w.Add("sol"))
	err := w.Add("mar")
	assert.ErrorIs(t, err, domain.ErrTooManyContextWords)
	assert.Equal(t, 3, w.Len())

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ContextWords.Add", de.Op)
	assert.Equal(t, "at most 3", de.Detail)
	assert.Equal(t, domain.CodeTooManyWords, domain.ErrorCodeOf(err))
}

func TestContextWords_Remove(t *testing.T) {
	w := NewContextWords(0, nil)
	require.NoError(t, w.Add("playa"))
	require.NoError(t, w.Add("sol"))

	assert.True(t, w.Remove("Playa"))
	assert.False(t, w.Remove("playa"))
	assert.Equal(t, []string{"sol"}, w.Words())
}

func TestContextWords_DefaultLimit(t *testing.T) {
	w := NewContextWords(0, nil)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, w.Add(s))
	}
	assert.ErrorIs(t, w.Add("f"), domain.ErrTooManyContextWords)
}

func TestContextWords_WordsIsCopy(t *testing.T) {
	w := NewContextWords(2, nil)
	require.NoError(t, w.Add("playa"))

	got := w.Words()
	got[0] = "changed"
	assert.Equal(t, []string{"playa"}, w.Words())
}
