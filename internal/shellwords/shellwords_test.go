package shellwords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for shellwords:
// - Split handles plain whitespace-separated words
// - Split collapses runs of whitespace
// - Split honors single quotes (everything literal)
// - Split honors double quotes with the POSIX escape subset
// - Split honors bare backslash escapes
// - Split returns errors for unterminated quotes
// - Split handles empty input
// - Quote passes safe words through and single-quotes the rest
// - Join round-trips through Split

func TestSplit_PlainWords(t *testing.T) {
	t.Parallel()

	words, err := Split("gcc -c foo.c -o foo.o")
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc", "-c", "foo.c", "-o", "foo.o"}, words)
}

func TestSplit_CollapsesWhitespace(t *testing.T) {
	t.Parallel()

	words, err := Split("  a \t b  \n c ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, words)
}

func TestSplit_SingleQuotes(t *testing.T) {
	t.Parallel()

	words, err := Split(`-DMSG='hello world' '-I/with space'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-DMSG=hello world", "-I/with space"}, words)
}

func TestSplit_DoubleQuotes(t *testing.T) {
	t.Parallel()

	words, err := Split(`-DPATH="C:\\temp" "two words"`)
	require.NoError(t, err)
	assert.Equal(t, []string{`-DPATH=C:\temp`, "two words"}, words)
}

func TestSplit_DoubleQuoteKeepsLiteralBackslash(t *testing.T) {
	t.Parallel()

	// Inside double quotes, backslash before an ordinary character is literal.
	words, err := Split(`"a\b"`)
	require.NoError(t, err)
	assert.Equal(t, []string{`a\b`}, words)
}

func TestSplit_BackslashEscape(t *testing.T) {
	t.Parallel()

	words, err := Split(`one\ word two`)
	require.NoError(t, err)
	assert.Equal(t, []string{"one word", "two"}, words)
}

func TestSplit_EmptyQuotedWord(t *testing.T) {
	t.Parallel()

	words, err := Split(`-D '' x`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-D", "", "x"}, words)
}

func TestSplit_UnterminatedQuotes(t *testing.T) {
	t.Parallel()

	_, err := Split(`'open`)
	require.Error(t, err)

	_, err = Split(`"open`)
	require.Error(t, err)
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	words, err := Split("")
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", Quote("plain"))
	assert.Equal(t, "''", Quote(""))
	assert.Equal(t, "'two words'", Quote("two words"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}

func TestJoin_RoundTrips(t *testing.T) {
	t.Parallel()

	original := []string{"clang", "-DMSG=hello world", "-I/include", "it's", ""}
	words, err := Split(Join(original))
	require.NoError(t, err)
	assert.Equal(t, original, words)
}
