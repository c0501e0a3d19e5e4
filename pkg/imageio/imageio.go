// Package imageio decodes image files into floating point pixel buffers and
// encodes buffers back to disk.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"envmap/internal/models"
)

// ErrUnsupportedExtension is returned when a file extension has no encoder.
var ErrUnsupportedExtension = errors.New("unsupported image extension")

// Load decodes an image file into an RGB buffer with samples in [0, 1].
func Load(path string) (*models.PixelData, error) {
	return LoadChannels(path, false)
}

// LoadChannels decodes an image file, keeping the alpha channel when
// keepAlpha is set.
func LoadChannels(path string, keepAlpha bool) (*models.PixelData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Decode(file, keepAlpha)
}

// Decode reads any registered image format (PNG, JPEG, TIFF, WebP).
func Decode(r io.Reader, keepAlpha bool) (*models.PixelData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	return FromImage(img, keepAlpha), nil
}

// FromImage converts an image to a float buffer. Samples keep the full
// 16-bit precision of the color model.
func FromImage(img image.Image, keepAlpha bool) *models.PixelData {
	bounds := img.Bounds()
	channels := 3
	if keepAlpha {
		channels = 4
	}
	data := models.NewPixelData(bounds.Dy(), bounds.Dx(), channels)

	for y := 0; y < data.Rows; y++ {
		for x := 0; x < data.Cols; x++ {
			c := color.NRGBA64Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			off := data.Offset(y, x)
			data.Pix[off] = float64(c.R) / 65535.0
			data.Pix[off+1] = float64(c.G) / 65535.0
			data.Pix[off+2] = float64(c.B) / 65535.0
			if keepAlpha {
				data.Pix[off+3] = float64(c.A) / 65535.0
			}
		}
	}
	return data
}

// ToImage converts a buffer with 1, 3 or 4 channels to a 16-bit image.
// Samples are clamped to [0, 1]; NaN becomes 0.
func ToImage(data *models.PixelData) (image.Image, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	switch data.Channels {
	case 1:
		img := image.NewGray16(image.Rect(0, 0, data.Cols, data.Rows))
		for y := 0; y < data.Rows; y++ {
			for x := 0; x < data.Cols; x++ {
				img.SetGray16(x, y, color.Gray16{Y: quantize(data.At(y, x, 0))})
			}
		}
		return img, nil

	case 3, 4:
		img := image.NewNRGBA64(image.Rect(0, 0, data.Cols, data.Rows))
		for y := 0; y < data.Rows; y++ {
			for x := 0; x < data.Cols; x++ {
				a := uint16(0xffff)
				if data.Channels == 4 {
					a = quantize(data.At(y, x, 3))
				}
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: quantize(data.At(y, x, 0)),
					G: quantize(data.At(y, x, 1)),
					B: quantize(data.At(y, x, 2)),
					A: a,
				})
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("cannot encode %d channels as an image", data.Channels)
	}
}

// Save encodes data to path, choosing the encoder by file extension.
func Save(path string, data *models.PixelData) error {
	img, err := ToImage(data)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) || ext == ".webp" {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, img, ext); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes img in the format named by ext (".png", ".jpg", ".tif", ...).
func Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// Supported reports whether files with extension ext can be read.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

func quantize(v float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	return uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
}
