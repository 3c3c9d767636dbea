package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentOrderedNames(t *testing.T) {
	env := NewEnvironment()
	env.Set("b", &IntValue{Value: 2})
	env.Set("a", &IntValue{Value: 1})
	env.Set("b", &IntValue{Value: 20}) // re-assignment must not move position

	names := env.OrderedNames()
	require.Len(t, names, 2)
	assert.Equal(t, "b", names[0].Name)
	assert.Equal(t, "a", names[1].Name)
	assert.Equal(t, int64(20), names[0].Value.(*IntValue).Value)
}

func TestEnvironmentParentLookup(t *testing.T) {
	root := NewEnvironment()
	root.Set("x", &IntValue{Value: 1})
	child := root.NewChildEnvironment()

	v, ok := child.Get("x")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.(*IntValue).Value)

	_, ok = child.Get("missing")
	assert.False(t, ok)
}

func TestEnvironmentBuiltinsFallback(t *testing.T) {
	root := NewEnvironment()
	root.SetBuiltins(map[string]Value{"len": &BuiltinFunction{Name: "len"}})
	child := root.NewChildEnvironment()

	v, ok := child.Get("len")
	require.True(t, ok)
	assert.Equal(t, "len", v.(*BuiltinFunction).Name)
}

func TestEnvironmentClonePreservesOrder(t *testing.T) {
	env := NewEnvironment()
	env.Set("a", &IntValue{Value: 1})
	env.Set("b", &IntValue{Value: 2})

	clone := env.Clone()
	clone.Set("c", &IntValue{Value: 3})

	assert.Len(t, env.OrderedNames(), 2)
	assert.Len(t, clone.OrderedNames(), 3)
}
