package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	// decoders for uploaded thumbnails
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// FitInside scales w x h down to fit maxW x maxH keeping the aspect ratio.
// Images already inside the bounds are not enlarged.
func FitInside(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH > h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}

// Compress resizes the image at path to fit the configured bounds and
// rewrites it as JPEG with a .jpg extension. The returned path replaces the
// input, which is removed when its name differs.
func Compress(path string, opts Options) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := FitInside(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	tmp := target + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if target != path {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return target, nil
}
