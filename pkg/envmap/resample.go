package envmap

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"envmap/internal/models"
	"envmap/pkg/grid"
	"envmap/pkg/interpolation"
)

// ProgressCallback reports how many channels have been resampled.
type ProgressCallback func(completed, total int, message string)

// Options control how pixel data is resampled.
type Options struct {
	// Method is the grid interpolation used for each channel
	Method interpolation.Method

	// Workers bounds the number of channels interpolated concurrently.
	// Zero means one per CPU.
	Workers int

	// Progress is called after each channel completes. It may be called
	// from several goroutines but never concurrently.
	Progress ProgressCallback
}

// Option adjusts resampling options.
type Option func(*Options)

// WithMethod selects the interpolation method.
func WithMethod(m interpolation.Method) Option {
	return func(o *Options) { o.Method = m }
}

// WithWorkers bounds channel concurrency.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithProgress installs a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(o *Options) { o.Progress = cb }
}

func buildOptions(opts []Option) Options {
	o := Options{Method: interpolation.Linear}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Resample interpolates src at the (u, v) query grid and returns a new buffer
// shaped like the query grid. Pixels flagged invalid, and pixels whose query
// fell outside src's sampling domain in any channel, are set to background.
// The returned mask flags the pixels that hold interpolated data.
func Resample(src *models.PixelData, u, v *mat.Dense, valid *Mask, background []float64, opts ...Option) (*models.PixelData, *Mask, error) {
	if err := src.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBuffer, err)
	}
	rows, cols := u.Dims()
	if vr, vc := v.Dims(); vr != rows || vc != cols {
		return nil, nil, fmt.Errorf("%w: u is %dx%d, v is %dx%d", ErrShapeMismatch, rows, cols, vr, vc)
	}
	if valid == nil {
		return nil, nil, fmt.Errorf("%w: valid must be a boolean mask", ErrTypeMismatch)
	}
	if valid.Rows != rows || valid.Cols != cols {
		return nil, nil, fmt.Errorf("%w: mask is %dx%d, query is %dx%d", ErrShapeMismatch, valid.Rows, valid.Cols, rows, cols)
	}
	if len(background) != src.Channels {
		return nil, nil, fmt.Errorf("%w: background has %d values, image has %d channels",
			ErrChannelMismatch, len(background), src.Channels)
	}
	o := buildOptions(opts)

	// The source's own pixel centers are the interpolation domain
	xs := grid.Centers(src.Cols)
	ys := grid.Centers(src.Rows)

	points := make([]interpolation.Point2D, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			points = append(points, interpolation.Point2D{X: u.At(r, c), Y: v.At(r, c)})
		}
	}

	out := models.NewPixelData(rows, cols, src.Channels)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)
	sem := make(chan struct{}, o.Workers)

	for ch := 0; ch < src.Channels; ch++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(ch int) {
			defer wg.Done()
			defer func() { <-sem }()

			g, err := interpolation.NewRegularGrid(xs, ys, src.Channel(ch), o.Method)
			if err == nil {
				// Each goroutine writes only its own channel's samples
				for k, val := range g.Interpolate(points) {
					out.Pix[k*out.Channels+ch] = val
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("channel %d: %w", ch, err)
			}
			completed++
			if o.Progress != nil {
				o.Progress(completed, src.Channels, fmt.Sprintf("resampled channel %d", ch))
			}
		}(ch)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}

	filled := effectiveMask(out, valid)
	fillBackground(out, filled, background)
	return out, filled, nil
}

// effectiveMask clears pixels that hold the invalid sentinel in any channel,
// so out-of-domain samples are never passed through as valid data.
func effectiveMask(data *models.PixelData, valid *Mask) *Mask {
	m := NewMask(valid.Rows, valid.Cols, false)
	for r := 0; r < data.Rows; r++ {
		for c := 0; c < data.Cols; c++ {
			if !valid.At(r, c) {
				continue
			}
			ok := true
			off := data.Offset(r, c)
			for _, s := range data.Pix[off : off+data.Channels] {
				if interpolation.IsInvalid(s) {
					ok = false
					break
				}
			}
			m.Set(r, c, ok)
		}
	}
	return m
}
