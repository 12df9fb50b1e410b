package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndSnapshot(t *testing.T) {
	r := New()
	r.Set("conn_count", 42)
	snap := r.Snapshot()
	assert.Equal(t, 42, snap["conn_count"])
	_, ok := snap["updated_at"]
	require.True(t, ok, "expected updated_at in snapshot")
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New()
	r.Set("k", 1)
	snap := r.Snapshot()
	snap["k"] = 999
	assert.Equal(t, 1, r.Snapshot()["k"], "registry must be unaffected by snapshot mutation")
}
