package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryApplyAndRead(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Apply(map[Key]Value{"a": Value("1"), "b": Value("2")}))

	got, err := m.Read([]Key{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, Value("1"), got["a"])
	assert.Equal(t, Value("2"), got["b"])
	assert.Nil(t, got["missing"])
}

func TestMemoryApplyOverwrites(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Apply(map[Key]Value{"a": Value("1")}))
	require.NoError(t, m.Apply(map[Key]Value{"a": Value("2")}))

	got, err := m.Read([]Key{"a"})
	require.NoError(t, err)
	assert.Equal(t, Value("2"), got["a"])
}
