package container

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPack(t *testing.T, payloads ...string) []byte {
	t.Helper()
	w := NewWriter()
	for i, p := range payloads {
		require.NoError(t, w.Add(string(rune('a'+i))+".opus", []byte(p)))
	}
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWriterLayout(t *testing.T) {
	data := buildPack(t, "hello", "opus!!", "x")

	var h Header
	require.NoError(t, binary.Read(bytes.NewReader(data), binary.LittleEndian, &h))
	assert.Equal(t, uint32(3), h.NumFiles)
	assert.Zero(t, h.Reserved0)
	assert.Zero(t, h.Reserved1)

	p, err := UnpackPack(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 3, p.NumFiles())
	assert.Equal(t, []Entry{{5, 0}, {6, 5}, {1, 11}}, p.Entries)
	assert.Equal(t, int64(12), p.DataSize())
	assert.Len(t, data, 12+3*8+12)
}

func TestOpenEntries(t *testing.T) {
	p, err := UnpackPack(bytes.NewReader(buildPack(t, "first", "second")))
	require.NoError(t, err)

	got, err := p.ReadEntry(1)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	sec, err := p.Open(0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sec.Size())

	_, err = p.Open(2)
	require.ErrorIs(t, err, ErrEntryOutOfRange)
	_, err = p.Open(-1)
	require.ErrorIs(t, err, ErrEntryOutOfRange)
}

func TestUnpackRejectsBadTables(t *testing.T) {
	_, err := UnpackPack(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, ErrInvalidHeader)

	// Claims 100 entries in a 12-byte file.
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, Header{NumFiles: 100}))
	_, err = UnpackPack(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrInvalidHeader)

	// Entry runs past the data area.
	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, Header{NumFiles: 1}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, Entry{Size: 10, Offset: 0}))
	buf.WriteString("short")
	_, err = UnpackPack(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestEmptyPack(t *testing.T) {
	p, err := UnpackPack(bytes.NewReader(buildPack(t)))
	require.NoError(t, err)
	assert.Zero(t, p.NumFiles())
}

func TestSealedPack(t *testing.T) {
	w := NewWriter()
	w.Seal("pw")
	require.NoError(t, w.Add("se0.opus", []byte("click")))
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "click")

	p, err := UnpackPack(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, p.Sealed())

	_, err = p.Open(0)
	require.ErrorIs(t, err, ErrSealed)

	p.Unseal("nope")
	_, err = p.Open(0)
	require.Error(t, err)

	p.Unseal("pw")
	got, err := p.ReadEntry(0)
	require.NoError(t, err)
	assert.Equal(t, "click", string(got))
}

func TestOpenFileStreamAndMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "se.pak")
	list := filepath.Join(dir, "se.txt")

	w := NewWriter()
	require.NoError(t, w.Add("a.opus", []byte("aaa")))
	require.NoError(t, w.Add("b.opus", []byte("bb")))
	require.NoError(t, w.WriteFile(path, list))

	listData, err := os.ReadFile(list)
	require.NoError(t, err)
	assert.Equal(t, "a.opus\r\nb.opus\r\n", string(listData))

	for _, stream := range []bool{true, false} {
		p, err := OpenFile(path, stream)
		require.NoError(t, err)
		got, err := p.ReadEntry(1)
		require.NoError(t, err)
		assert.Equal(t, "bb", string(got))
		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
	}

	_, err = OpenFile(filepath.Join(dir, "missing.pak"), true)
	require.Error(t, err)
}

func TestOpenFS(t *testing.T) {
	fsys := fstest.MapFS{"bgm.pak": {Data: buildPack(t, "loop")}}

	for _, stream := range []bool{true, false} {
		p, err := OpenFS(fsys, "bgm.pak", stream)
		require.NoError(t, err)
		got, err := p.ReadEntry(0)
		require.NoError(t, err)
		assert.Equal(t, "loop", string(got))
		require.NoError(t, p.Close())
	}

	_, err := OpenFS(fsys, "se.pak", false)
	require.Error(t, err)
}
