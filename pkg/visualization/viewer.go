package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"envmap/pkg/envmap"
	"envmap/pkg/imageio"
)

// Viewer renders inspection images of an environment map: single channels,
// the validity mask of its projection and scaled previews.
type Viewer struct {
	// env is the map being inspected
	env *envmap.EnvironmentMap
}

// NewViewer creates a viewer for an environment map
func NewViewer(env *envmap.EnvironmentMap) *Viewer {
	return &Viewer{env: env}
}

// ExtractChannel renders one channel as a 16-bit grayscale image
func (v *Viewer) ExtractChannel(ch int) (image.Image, error) {
	data := v.env.Data()
	if ch < 0 || ch >= data.Channels {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", ch, data.Channels)
	}

	img := image.NewGray16(image.Rect(0, 0, data.Cols, data.Rows))
	for y := 0; y < data.Rows; y++ {
		for x := 0; x < data.Cols; x++ {
			value := data.At(y, x, ch)
			if math.IsNaN(value) {
				value = 0
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value*65535)))})
		}
	}
	return img, nil
}

// MaskImage renders the validity mask of the map's projection, white where a
// pixel holds a direction
func (v *Viewer) MaskImage() image.Image {
	return RenderMask(v.env.ValidMask())
}

// RenderMask renders any mask as a black and white image
func RenderMask(mask *envmap.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Cols, mask.Rows))
	for y := 0; y < mask.Rows; y++ {
		for x := 0; x < mask.Cols; x++ {
			if mask.At(y, x) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Preview renders the map scaled so its longer side is at most maxSize
// pixels. Maps already smaller are returned at full size.
func (v *Viewer) Preview(maxSize int) (image.Image, error) {
	full, err := imageio.ToImage(v.env.Data())
	if err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		return full, nil
	}

	bounds := full.Bounds()
	longest := max(bounds.Dx(), bounds.Dy())
	if longest <= maxSize {
		return full, nil
	}

	scale := float64(maxSize) / float64(longest)
	w := max(1, int(math.Round(float64(bounds.Dx())*scale)))
	h := max(1, int(math.Round(float64(bounds.Dy())*scale)))

	dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), full, bounds, xdraw.Src, nil)
	return dst, nil
}

// SaveImage writes img as PNG or JPEG depending on the file extension
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return png.Encode(file, img)
	default:
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	}
}

// SaveChannelSequence writes every channel of the map to outputDir
func (v *Viewer) SaveChannelSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for ch := 0; ch < v.env.Data().Channels; ch++ {
		img, err := v.ExtractChannel(ch)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_channel_%d.png", v.env.Format(), ch))
		if err := v.SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}
