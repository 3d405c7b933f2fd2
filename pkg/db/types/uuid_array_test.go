package dbtypes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDArrayRoundTrip(t *testing.T) {
	ids := UUIDArray{uuid.New(), uuid.New()}

	value, err := ids.Value()
	require.NoError(t, err)

	var decoded UUIDArray
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, ids, decoded)
}

func TestUUIDArrayScanEmpty(t *testing.T) {
	var decoded UUIDArray
	require.NoError(t, decoded.Scan("{}"))
	assert.Empty(t, decoded)
}

func TestUUIDArrayScanRejectsGarbage(t *testing.T) {
	var decoded UUIDArray
	assert.Error(t, decoded.Scan("{not-a-uuid}"))
}

func TestUUIDArrayContains(t *testing.T) {
	id := uuid.New()
	arr := UUIDArray{id}
	assert.True(t, arr.Contains(id))
	assert.False(t, arr.Contains(uuid.New()))
}
