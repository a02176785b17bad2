package environment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBufferKeepsMostRecentLines(t *testing.T) {
	b := newLineBuffer(3)
	_, _ = b.Write([]byte("one\ntwo\nthr"))
	_, _ = b.Write([]byte("ee\nfour\r\nfive"))

	assert.Equal(t, []string{"three", "four", "five"}, b.Tail(3))
	assert.Equal(t, []string{"five"}, b.Tail(1))
}

func TestLineBufferTailLargerThanContent(t *testing.T) {
	b := newLineBuffer(10)
	_, _ = b.Write([]byte("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, b.Tail(5))
}

func TestTailLines(t *testing.T) {
	r := strings.NewReader("1\n2\n3\n4\n5\n")
	assert.Equal(t, []string{"4", "5"}, tailLines(r, 2))
}
