package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfElse(t *testing.T) {
	assert.Equal(t, 3, IfElse(true, 3, 4))
	assert.Equal(t, 4, IfElse(false, 3, 4))
	assert.Equal(t, "a", IfElse(true, "a", "b"))
	assert.Equal(t, "b", IfElse(false, "a", "b"))
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Len(t, SortedKeys(map[string]int{}), 0)
}

func TestLastN(t *testing.T) {
	s := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"c", "d"}, LastN(s, 2))
	assert.Equal(t, s, LastN(s, 10))
	assert.Len(t, LastN(s, 0), 0)

	out := LastN(s, 4)
	out[0] = "x"
	assert.Equal(t, "a", s[0])
}
