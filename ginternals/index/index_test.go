package index_test

import (
	"testing"
	"time"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/ginternals/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEmpty(t *testing.T) {
	t.Parallel()

	idx, err := index.Read(nil)
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	oid := ginternals.NewOidFromContent([]byte("content"))
	idx := &index.Index{
		Version: 2,
		Entries: []index.Entry{
			{
				CTime:     time.Unix(1000, 500),
				MTime:     time.Unix(1001, 600),
				Dev:       1,
				Ino:       2,
				ModeType:  index.ModeRegular,
				ModePerms: 0o644,
				UID:       1000,
				GID:       1000,
				Size:      7,
				ID:        oid,
				Path:      "README.md",
			},
			{
				CTime:     time.Unix(2000, 0),
				MTime:     time.Unix(2000, 0),
				ModeType:  index.ModeRegular,
				ModePerms: 0o755,
				ID:        oid,
				Path:      "a/very/long/nested/path/to/a/script.sh",
			},
		},
	}

	data, err := index.Write(idx)
	require.NoError(t, err)
	assert.Equal(t, 0, (len(data)-12)%8, "entries should be padded to a multiple of 8 bytes")

	got, err := index.Read(data)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)

	assert.Equal(t, "README.md", got.Entries[0].Path)
	assert.Equal(t, oid, got.Entries[0].ID)
	assert.Equal(t, uint32(0o644), got.Entries[0].ModePerms)
	assert.Equal(t, int64(1000), got.Entries[0].CTime.Unix())

	assert.Equal(t, "a/very/long/nested/path/to/a/script.sh", got.Entries[1].Path)
}

func TestReadRejectsBadSignature(t *testing.T) {
	t.Parallel()

	_, err := index.Read([]byte("NOPE00000000"))
	require.Error(t, err)
}

func TestReadRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	data := []byte("DIRC")
	data = append(data, 0, 0, 0, 3) // version 3
	data = append(data, 0, 0, 0, 0) // count
	_, err := index.Read(data)
	require.Error(t, err)
}
