package audio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	pcm := PCM([]int16{0, 100, -100, 32767, -32768, 7})

	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, pcm, CaptureFormat))
	require.Equal(t, "RIFF", buf.String()[:4])

	got, f, err := DecodeWAV(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, CaptureFormat, f)
	require.Equal(t, pcm, got)
}

func TestSaveWAV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	pcm := constChunk(300)

	path, err := SaveWAV(dir, pcm, CaptureFormat)
	require.NoError(t, err)
	require.Equal(t, dir, filepath.Dir(path))
	require.Equal(t, ".wav", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, _, err := DecodeWAV(data)
	require.NoError(t, err)
	require.Equal(t, pcm, got)

	other, err := SaveWAV(dir, pcm, CaptureFormat)
	require.NoError(t, err)
	require.NotEqual(t, path, other)
}

func TestFixedChunkReader(t *testing.T) {
	r := NewFixedChunkReader(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7}), 3)
	buf := make([]byte, 3)

	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])

	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5, 6}, buf[:n])

	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, buf[:n])

	_, err = r.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	_, err = r.Read(make([]byte, 2))
	require.Error(t, err)
}
