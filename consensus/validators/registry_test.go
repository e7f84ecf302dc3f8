package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesora-labs/tesora/types"
)

func newTestRegistry(t *testing.T) *Registry {
	r, err := NewRegistry([]string{"v1", "v2", "v3"}, 2, 3)
	require.NoError(t, err)
	return r
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry([]string{"v1"}, 2, 3)
	assert.ErrorIs(t, err, types.ErrInvalidThreshold)

	_, err = NewRegistry([]string{"v1", "v1"}, 1, 3)
	assert.ErrorIs(t, err, types.ErrDuplicateValidator)

	_, err = NewRegistry([]string{"v1", ""}, 1, 3)
	assert.ErrorIs(t, err, types.ErrZeroAddress)
}

func TestAddRemove(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Add("v4"))
	assert.True(t, r.IsValidator("v4"))
	assert.Equal(t, []string{"v1", "v2", "v3", "v4"}, r.Validators())

	assert.ErrorIs(t, r.Add("v4"), types.ErrDuplicateValidator)
	assert.ErrorIs(t, r.Add(""), types.ErrZeroAddress)

	require.NoError(t, r.Remove("v2"))
	assert.False(t, r.IsValidator("v2"))
	// Order preserved, index rebuilt
	assert.Equal(t, []string{"v1", "v3", "v4"}, r.Validators())

	assert.ErrorIs(t, r.Remove("v9"), types.ErrUnknownValidator)
}

func TestRemoveBelowMinimum(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.Remove("v3"))
	// count == required now: nobody is removable
	assert.ErrorIs(t, r.Remove("v1"), types.ErrBelowMinimum)
	assert.ErrorIs(t, r.Remove("v2"), types.ErrBelowMinimum)
	assert.Equal(t, 2, r.Count())
}

func TestSlashRequiresMissedThreshold(t *testing.T) {
	r := newTestRegistry(t)

	assert.ErrorIs(t, r.Slash("v3"), types.ErrNotSlashable)

	r.RecordMissed([]string{"v3"})
	r.RecordMissed([]string{"v3"})
	assert.ErrorIs(t, r.Slash("v3"), types.ErrNotSlashable)

	r.RecordMissed([]string{"v3"})
	require.NoError(t, r.Slash("v3"))
	assert.False(t, r.IsValidator("v3"))

	assert.ErrorIs(t, r.Slash("v9"), types.ErrUnknownValidator)
}

func TestRecordMissedIgnoresOutsiders(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordMissed([]string{"v1", "stranger"})
	assert.Equal(t, 1, r.Missed("v1"))
	assert.Equal(t, 0, r.Missed("stranger"))
}

func TestSetRequired(t *testing.T) {
	r := newTestRegistry(t)

	assert.ErrorIs(t, r.SetRequired(0), types.ErrInvalidThreshold)
	assert.ErrorIs(t, r.SetRequired(4), types.ErrInvalidThreshold)

	require.NoError(t, r.SetRequired(3))
	assert.Equal(t, 3, r.Required())

	// With required == count, removal is impossible
	assert.ErrorIs(t, r.Remove("v1"), types.ErrBelowMinimum)
}

func TestSnapshotRestore(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordMissed([]string{"v2"})

	snap := r.Snapshot()
	restored := &Registry{}
	restored.Restore(snap)

	assert.Equal(t, r.Validators(), restored.Validators())
	assert.Equal(t, 1, restored.Missed("v2"))
	assert.Equal(t, 2, restored.Required())
	assert.True(t, restored.IsValidator("v3"))
}
