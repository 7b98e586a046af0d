// Package testutil provides shared fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// SmallGIF returns a 2x1 two-colour GIF.
func SmallGIF(t TB) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.Black, color.White})
	img.SetColorIndex(1, 0, 1)
	buf := bytes.NewBuffer(nil)
	if err := gif.Encode(buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}
