package blobstore

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageLifecycle(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	owner := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())

	id, err := s.Create([]byte("payload"), "image/png", owner)
	require.NoError(t, err)
	_, err = s.Create([]byte("x"), "image/jpeg", other)
	require.NoError(t, err)

	data, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	ok, err := s.Exist(id)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err := s.GetByOwner(owner)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "image/png", records[0].ContentType)
	assert.EqualValues(t, len("payload"), records[0].Size)

	require.NoError(t, s.Delete(id))
	ok, err = s.Exist(id)
	require.NoError(t, err)
	assert.False(t, ok)

	records, err = s.GetByOwner(owner)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLocalStorageDeleteMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Delete(uuid.Must(uuid.NewV4())))
}
