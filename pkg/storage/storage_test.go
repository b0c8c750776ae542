package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("coverImage", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest("POST", "/", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))
	return r.MultipartForm.File["coverImage"][0]
}

func TestDisk_Save(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	d, err := NewDisk(Config{Dir: dir})
	require.NoError(t, err)
	d.now = func() time.Time { return time.Unix(0, 42) }

	name, err := d.Save(context.Background(), fileHeader(t, "cover.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "42.png", name)

	stored, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, pngHeader, stored)
}

func TestDisk_SaveRejects(t *testing.T) {
	t.Parallel()
	d, err := NewDisk(Config{Dir: t.TempDir(), MaxSize: 8})
	require.NoError(t, err)

	_, err = d.Save(context.Background(), fileHeader(t, "cover.png", pngHeader))
	require.ErrorIs(t, err, ErrFileTooLarge)

	d.cfg.MaxSize = 1 << 20
	_, err = d.Save(context.Background(), fileHeader(t, "cover.png", []byte("plain text, not an image")))
	require.ErrorIs(t, err, ErrInvalidFileType)
}
