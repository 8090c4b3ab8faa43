package fatx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackDateRoundTrip(t *testing.T) {
	ts := Timestamp{Year: 2021, Month: 11, Day: 23}
	date := packDate(ts)
	year, month, day := unpackDate(date)

	require.Equal(t, 2021, year)
	require.Equal(t, 11, month)
	require.Equal(t, 23, day)
}

func TestPackUnpackTimeRoundTrip(t *testing.T) {
	ts := Timestamp{Hour: 17, Minute: 42, Second: 30}
	packed := packTime(ts)
	hour, minute, second := unpackTime(packed)

	require.Equal(t, 17, hour)
	require.Equal(t, 42, minute)
	require.Equal(t, 30, second) // 30 is even, survives the /2 *2 round trip exactly
}

func TestPackTimeHalvesOddSeconds(t *testing.T) {
	ts := Timestamp{Hour: 1, Minute: 1, Second: 31}
	_, _, second := unpackTime(packTime(ts))
	require.Equal(t, 30, second, "odd seconds are truncated to 2-second resolution")
}

func TestYearRollsOverModulo128(t *testing.T) {
	// 2000 + 128 wraps back to 2000 once masked to 7 bits.
	ts := Timestamp{Year: 2128, Month: 1, Day: 1}
	date := packDate(ts)
	year, _, _ := unpackDate(date)
	require.Equal(t, 2000, year)
}

func TestAttrDirEntryRoundTrip(t *testing.T) {
	original := &Attr{
		Filename:     "hello.txt",
		Attributes:   AttrReadOnly,
		FirstCluster: 7,
		FileSize:     1234,
		Modified:     Timestamp{Year: 2020, Month: 6, Day: 15, Hour: 10, Minute: 30, Second: 0},
		Created:      Timestamp{Year: 2019, Month: 1, Day: 2, Hour: 3, Minute: 4, Second: 6},
		Accessed:     Timestamp{Year: 2021, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 58},
	}

	raw := attrToRaw(original)
	encoded := encodeDirEntry(raw)
	require.Len(t, encoded, DirEntrySize)

	decoded, err := decodeDirEntry(encoded)
	require.NoError(t, err)

	roundTripped := rawToAttr(decoded)
	require.Equal(t, original.Filename, roundTripped.Filename)
	require.Equal(t, original.Attributes, roundTripped.Attributes)
	require.Equal(t, original.FirstCluster, roundTripped.FirstCluster)
	require.Equal(t, original.FileSize, roundTripped.FileSize)
	require.Equal(t, original.Modified, roundTripped.Modified)
	require.Equal(t, original.Created, roundTripped.Created)
	require.Equal(t, original.Accessed, roundTripped.Accessed)
}

func TestFilenameLengthBoundary(t *testing.T) {
	ok := &Attr{Filename: string(make([]byte, MaxFilenameLength))}
	raw := attrToRaw(ok)
	require.Equal(t, uint8(MaxFilenameLength), raw.FilenameLength)
}
