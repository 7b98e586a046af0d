package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/alex-zharinov/hw05-final/internal/config"
	"github.com/alex-zharinov/hw05-final/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestImageService_StoreAvoidsCollisions(t *testing.T) {
	t.Parallel()
	svc := newTestImages(t)
	ctx := context.Background()

	checked, msg := svc.Check(ImageUpload{Filename: "My Cat.gif", Content: testutil.SmallGIF(t)})
	require.Empty(t, msg)

	first, err := svc.Store(ctx, checked)
	require.NoError(t, err)
	assert.Equal(t, "posts/My_Cat.gif", first)

	second, err := svc.Store(ctx, checked)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^posts/My_Cat_[0-9a-f]{7}\.gif$`, second)

	for _, rel := range []string{first, second} {
		_, statErr := os.Stat(filepath.Join(svc.MediaRoot(), filepath.FromSlash(rel)))
		assert.NoError(t, statErr)
	}
}

func TestImageService_CheckFormats(t *testing.T) {
	t.Parallel()
	svc := newTestImages(t)

	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.White)
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, img))

	_, msg := svc.Check(ImageUpload{Filename: "a.bmp", Content: bmpBuf.Bytes()})
	assert.Empty(t, msg)

	_, msg = svc.Check(ImageUpload{Filename: "a.png", Content: testutil.TinyPNG(t, 4, 4)})
	assert.Empty(t, msg)

	_, msg = svc.Check(ImageUpload{Filename: "a.png", Content: []byte("GIF89a-truncated")})
	assert.Equal(t, invalidImageMessage, msg)

	_, msg = svc.Check(ImageUpload{Filename: "notes.txt", Content: []byte("hello")})
	assert.Equal(t, invalidImageMessage, msg)
}

func TestImageService_CheckSizeLimit(t *testing.T) {
	t.Parallel()
	svc := NewImageService(&config.Config{MediaRoot: t.TempDir(), ImageMaxUploadSizeMB: 1})

	big := make([]byte, 1024*1024+1)
	_, msg := svc.Check(ImageUpload{Filename: "big.png", Content: big})
	assert.Contains(t, msg, "too large")
}

// withPNGSize rewrites the IHDR dimensions of a PNG without touching its pixels.
func withPNGSize(t *testing.T, png []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), png...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestImageService_CheckRejectsHugeDimensions(t *testing.T) {
	t.Parallel()
	svc := newTestImages(t)

	bomb := withPNGSize(t, testutil.TinyPNG(t, 1, 1), 50_000, 50_000)
	_, msg := svc.Check(ImageUpload{Filename: "bomb.png", Content: bomb})
	assert.Contains(t, msg, "Image too large")

	_, msg = svc.Check(ImageUpload{Filename: "ok.png", Content: testutil.TinyPNG(t, 1, 1)})
	assert.Empty(t, msg)
}

func TestImageService_StoreUsesDecodedExtension(t *testing.T) {
	t.Parallel()
	svc := newTestImages(t)

	checked, msg := svc.Check(ImageUpload{Filename: "котик", Content: testutil.TinyPNG(t, 2, 2)})
	require.Empty(t, msg)
	rel, err := svc.Store(context.Background(), checked)
	require.NoError(t, err)
	assert.Equal(t, "posts/image.png", rel)
}

func TestImageService_Remove(t *testing.T) {
	t.Parallel()
	svc := newTestImages(t)
	checked, _ := svc.Check(ImageUpload{Filename: "a.gif", Content: testutil.SmallGIF(t)})
	rel, err := svc.Store(context.Background(), checked)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(rel))
	_, statErr := os.Stat(filepath.Join(svc.MediaRoot(), filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(statErr))

	assert.NoError(t, svc.Remove(rel), "missing files are ignored")
	assert.NoError(t, svc.Remove(""))
	assert.Error(t, svc.Remove("../etc/passwd"))
}
