package elasticsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireVersion(t *testing.T) {
	v, err := wireVersion(0)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	v, err = wireVersion(42)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = wireVersion(-1)
	assert.Error(t, err)
}
