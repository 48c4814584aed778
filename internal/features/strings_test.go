package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStringsMinimumLength(t *testing.T) {
	data := []byte("ab\x00hello\x01hi\x02world!")
	got := ExtractStrings(data, 4)

	require.Equal(t, []string{"hello", "world!"}, got)
	for _, s := range got {
		assert.GreaterOrEqual(t, len(s), 4)
	}
}

func TestExtractStringsPreservesAppearanceOrder(t *testing.T) {
	data := []byte("\x00zzzz\x00aaaa\x00mmmm\x00")
	assert.Equal(t, []string{"zzzz", "aaaa", "mmmm"}, ExtractStrings(data, 4))
}

func TestExtractStringsRunAtBufferEnd(t *testing.T) {
	// Trailing run is flushed at end of buffer, not dropped.
	assert.Equal(t, []string{"tail"}, ExtractStrings([]byte("\xff\xfetail"), 4))
}

func TestExtractStringsNonPrintableOnly(t *testing.T) {
	assert.Empty(t, ExtractStrings([]byte{0, 1, 2, 3, 255, 31, 127}, 4))
}

func TestExtractStringsIdempotentOnOwnOutput(t *testing.T) {
	data := []byte("one\x00two22\x00\x01three333\x02x")
	first := ExtractStrings(data, 4)

	rescanned := ExtractStrings([]byte(strings.Join(first, "\x00")), 4)
	assert.Equal(t, first, rescanned)
}

func TestScanStringsEarlyStop(t *testing.T) {
	var seen []string
	ScanStrings([]byte("first\x00second\x00third"), 4, func(s string) bool {
		seen = append(seen, s)
		return len(seen) < 2
	})
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestScanStringsDefaultMinimum(t *testing.T) {
	var seen []string
	ScanStrings([]byte("abc\x00abcd"), 0, func(s string) bool {
		seen = append(seen, s)
		return true
	})
	assert.Equal(t, []string{"abcd"}, seen)
}
