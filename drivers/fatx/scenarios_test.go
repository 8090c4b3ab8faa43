package fatx

// These tests exercise spec.md section 8's literal end-to-end scenarios.
// Scenario 1 names the real retail "c" partition (offset 0x8CA80000, size
// 0x1F400000, on a disk laid out with the full five-partition retail
// table): allocating an in-memory image that size for a unit test
// isn't practical, so these use a volume with the same cluster-size and
// sector-size ratios (16 KiB clusters, 512 B sectors, so
// sectors_per_cluster = 32) at a smaller, directly-addressable size. The
// geometry relationships under test are identical; only the absolute
// offsets differ.

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenario1_FreshFormatAndProbe(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32) // 16 KiB clusters

	require.Equal(t, uint32(32), vol.SectorsPerCluster)
	require.Equal(t, EntryWidth16, vol.EntryWidth, "small volumes use a 16-bit FAT")
	require.Equal(t, ClusterID(1), vol.RootCluster)

	names, err := vol.Dir.List(vol.RootCluster)
	require.NoError(t, err)
	require.Empty(t, names)

	result, _, err := vol.Dir.Read(DirCursor{Cluster: vol.RootCluster, Entry: 0})
	require.NoError(t, err)
	require.Equal(t, ReadEndOfDir, result)
}

func TestScenario2_CreateWriteReadSmallFile(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32)

	attr, err := vol.CreateFile(vol.RootCluster, "hello.txt")
	require.NoError(t, err)

	_, err = vol.Write(attr, 0, []byte("hi\n"))
	require.NoError(t, err)
	require.NoError(t, vol.Dir.Write(DirCursor{Cluster: vol.RootCluster, Entry: 0}, attr))

	buf := make([]byte, 3)
	n, err := vol.Read(attr, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "hi\n", string(buf))

	require.EqualValues(t, 3, attr.FileSize)
	require.False(t, attr.IsDirectory())
}

func TestScenario3_GrowAcrossClusterBoundary(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32) // bytes_per_cluster = 16384
	attr, err := vol.CreateFile(vol.RootCluster, "big")
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB}, 20000)
	n, err := vol.Write(attr, 0, payload)
	require.NoError(t, err)
	require.Equal(t, 20000, n)
	require.EqualValues(t, 20000, attr.FileSize)

	chainLen := countChain(t, vol, attr.FirstCluster)
	require.Equal(t, 2, chainLen)

	out := make([]byte, 20000)
	n, err = vol.Read(attr, 0, out)
	require.NoError(t, err)
	require.Equal(t, 20000, n)
	require.Equal(t, payload, out)
}

func TestScenario4_TruncateDownAndBackUp(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32)
	attr, err := vol.CreateFile(vol.RootCluster, "big")
	require.NoError(t, err)

	_, err = vol.Write(attr, 0, bytes.Repeat([]byte{0xAB}, 20000))
	require.NoError(t, err)

	require.NoError(t, vol.Truncate(attr, 4))
	require.Equal(t, 1, countChain(t, vol, attr.FirstCluster))

	_, err = vol.Write(attr, 50000, []byte{0x00})
	require.NoError(t, err)
	require.Equal(t, 4, countChain(t, vol, attr.FirstCluster))
	require.EqualValues(t, 50001, attr.FileSize)
}

func TestScenario5_DirectoryOverflow(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32) // 256 entries per cluster
	perCluster := int(vol.Device.BytesPerCluster / DirEntrySize)
	require.Equal(t, 256, perCluster)

	for i := 0; i < perCluster+1; i++ {
		_, err := vol.CreateFile(vol.RootCluster, nameFor(i))
		require.NoError(t, err)
	}

	names, err := vol.Dir.List(vol.RootCluster)
	require.NoError(t, err)
	require.Len(t, names, perCluster+1)

	chainLen := countChain(t, vol, vol.RootCluster)
	require.Equal(t, 2, chainLen)
}

func TestScenario6_UnlinkReclaimsClusters(t *testing.T) {
	vol := newTestVolume(t, 64*1024*1024, 512, 32)
	attr, err := vol.CreateFile(vol.RootCluster, "a")
	require.NoError(t, err)
	_, err = vol.Write(attr, 0, bytes.Repeat([]byte{1}, 33000))
	require.NoError(t, err)
	require.NoError(t, vol.Dir.Write(DirCursor{Cluster: vol.RootCluster, Entry: 0}, attr))

	var chain []ClusterID
	current := attr.FirstCluster
	for {
		chain = append(chain, current)
		class, _, err := vol.FAT.ReadEntry(current)
		require.NoError(t, err)
		if class != ClassData {
			break
		}
		current, err = vol.FAT.NextCluster(current)
		require.NoError(t, err)
	}
	require.Greater(t, len(chain), 1)

	require.NoError(t, vol.Unlink(vol.RootCluster, "a"))

	for _, c := range chain {
		class, _, err := vol.FAT.ReadEntry(c)
		require.NoError(t, err)
		require.Equal(t, ClassAvailable, class)
	}

	result, _, err := vol.Dir.Read(DirCursor{Cluster: vol.RootCluster, Entry: 0})
	require.NoError(t, err)
	require.Equal(t, ReadDeleted, result)

	names, err := vol.Dir.List(vol.RootCluster)
	require.NoError(t, err)
	require.Empty(t, names)
}

func countChain(t *testing.T, vol *Volume, first ClusterID) int {
	t.Helper()
	count := 1
	current := first
	for {
		class, _, err := vol.FAT.ReadEntry(current)
		require.NoError(t, err)
		if class != ClassData {
			return count
		}
		current, err = vol.FAT.NextCluster(current)
		require.NoError(t, err)
		count++
	}
}

func nameFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string([]byte{letters[i%26], letters[(i/26)%26], letters[(i/676)%26]})
}
