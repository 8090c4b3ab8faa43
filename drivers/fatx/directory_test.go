package fatx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootDirectoryStartsEmpty(t *testing.T) {
	vol := newTestVolume(t, 4*1024*1024, 512, 8)
	empty, err := vol.Dir.IsEmpty(vol.RootCluster)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestCreateFileThenListDir(t *testing.T) {
	vol := newTestVolume(t, 4*1024*1024, 512, 8)

	_, err := vol.CreateFile(vol.RootCluster, "hello.txt")
	require.NoError(t, err)

	names, err := vol.Dir.List(vol.RootCluster)
	require.NoError(t, err)
	require.Equal(t, []string{"hello.txt"}, names)
}

func TestUnlinkReusesDeletedSlot(t *testing.T) {
	vol := newTestVolume(t, 4*1024*1024, 512, 8)

	_, err := vol.CreateFile(vol.RootCluster, "a")
	require.NoError(t, err)
	require.NoError(t, vol.Unlink(vol.RootCluster, "a"))

	slot, err := vol.Dir.AllocSlot(vol.RootCluster)
	require.NoError(t, err)
	require.Equal(t, DirCursor{Cluster: vol.RootCluster, Entry: 0}, slot,
		"a deleted slot must be reused before the directory grows")
}

func TestDirectoryOverflowGrowsChain(t *testing.T) {
	// 16 KiB clusters / 64-byte entries = 256 entries per cluster.
	vol := newTestVolume(t, 64*1024*1024, 512, 32)
	entriesPerCluster := int(vol.Device.BytesPerCluster / DirEntrySize)
	require.Equal(t, 256, entriesPerCluster)

	for i := 0; i < entriesPerCluster+1; i++ {
		_, err := vol.CreateFile(vol.RootCluster, fmt.Sprintf("f%03d", i))
		require.NoError(t, err)
	}

	names, err := vol.Dir.List(vol.RootCluster)
	require.NoError(t, err)
	require.Len(t, names, entriesPerCluster+1)

	// The root's chain must now span two clusters.
	class, _, err := vol.FAT.ReadEntry(vol.RootCluster)
	require.NoError(t, err)
	require.Equal(t, ClassData, class)
}

func TestDirectoryLookupSkipsDeletedEntries(t *testing.T) {
	vol := newTestVolume(t, 4*1024*1024, 512, 8)

	_, err := vol.CreateFile(vol.RootCluster, "a")
	require.NoError(t, err)
	_, err = vol.CreateFile(vol.RootCluster, "b")
	require.NoError(t, err)
	require.NoError(t, vol.Unlink(vol.RootCluster, "a"))

	_, attr, err := vol.Dir.Lookup(vol.RootCluster, "b")
	require.NoError(t, err)
	require.Equal(t, "b", attr.Filename)

	_, _, err = vol.Dir.Lookup(vol.RootCluster, "a")
	require.Error(t, err)
}
