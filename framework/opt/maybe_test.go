package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type kind string

func (k kind) String() string { return "kind:" + string(k) }

func TestNone(t *testing.T) {
	assert.False(t, None[string]().IsDefined())
	assert.Equal(t, 0, None[int]().Value())
	assert.Equal(t, "[none]", None[int]().String())

	_, ok := None[string]().Get()
	assert.False(t, ok)
}

func TestSome(t *testing.T) {
	assert.True(t, Some("").IsDefined())
	assert.Equal(t, "x", Some("x").Value())

	v, ok := Some(2).Get()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestOrElse(t *testing.T) {
	assert.Equal(t, 3, None[int]().OrElse(3))
	assert.Equal(t, 4, Some(4).OrElse(3))
}

func TestStringUsesStringer(t *testing.T) {
	assert.Equal(t, "kind:web", Some(kind("web")).String())
	assert.Equal(t, "5", Some(5).String())
}
