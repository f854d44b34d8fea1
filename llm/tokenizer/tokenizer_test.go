package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter 每个空格分隔的词计 1 token，便于断言
type wordCounter struct{}

func (wordCounter) CountTokens(text string) (int, error) { return len(strings.Fields(text)), nil }
func (wordCounter) Name() string                         { return "words" }

func TestTrimToBudget(t *testing.T) {
	texts := []string{"a b c", "d e", "f g h i", "j"}

	assert.Equal(t, texts, TrimToBudget(wordCounter{}, texts, 0))
	assert.Equal(t, []string{"f g h i", "j"}, TrimToBudget(wordCounter{}, texts, 5))
	assert.Equal(t, []string{"d e", "f g h i", "j"}, TrimToBudget(wordCounter{}, texts, 7))
	assert.Equal(t, texts, TrimToBudget(wordCounter{}, texts, 100))
}

func TestTrimToBudget_KeepsNewestEvenIfOversized(t *testing.T) {
	texts := []string{"old", "one two three four five"}
	assert.Equal(t, []string{"one two three four five"}, TrimToBudget(wordCounter{}, texts, 2))
}

func TestEstimator(t *testing.T) {
	e := NewEstimator()

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = e.CountTokens("hi")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.CountTokens(strings.Repeat("abcd", 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = e.CountTokens("黑色星期五促销")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNewTiktoken_EncodingSelection(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":   "o200k_base",
		"gpt-4o":        "o200k_base",
		"gpt-4-turbo":   "cl100k_base",
		"gpt-3.5-turbo": "cl100k_base",
		"local-llama":   "cl100k_base",
	}
	for model, want := range tests {
		assert.Equal(t, want, NewTiktoken(model).Encoding(), model)
	}
}

func TestForModel_NeverNil(t *testing.T) {
	c := ForModel("gpt-4o-mini", nil)
	require.NotNil(t, c)
	n, err := c.CountTokens("Create a Black Friday banner for Nike")
	require.NoError(t, err)
	assert.Positive(t, n)
}
