// Package pipeline runs file-to-file environment map conversions.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"envmap/internal/models"
	"envmap/pkg/envmap"
	"envmap/pkg/imageio"
	"envmap/pkg/interpolation"
	"envmap/pkg/projection"
	"envmap/pkg/visualization"
)

// Params holds the parameters of a single conversion job.
type Params struct {
	// InputFile is the image to convert (PNG, JPEG, TIFF or WebP)
	InputFile string

	// OutputFile is where the converted image is written (PNG, JPEG or TIFF)
	OutputFile string

	// SourceFormat is the projection of the input image
	SourceFormat string

	// TargetFormat is the projection to convert to
	TargetFormat string

	// Background fills pixels outside the target's field of view. Empty
	// means black.
	Background []float64

	// Method is the interpolation method name
	Method string

	// Workers bounds channel concurrency; zero means one per CPU
	Workers int

	// Verify converts the result back to the source projection and records
	// round-trip metrics over pixels valid in both projections
	Verify bool

	// SaveIntermediaryResults writes validity masks, channel images and
	// previews of each stage into IntermediaryDir
	SaveIntermediaryResults bool

	// IntermediaryDir is where intermediary results are written
	IntermediaryDir string

	// PreviewSize bounds the longer side of preview images
	PreviewSize int

	// Verbose prints progress to stderr
	Verbose bool
}

// Converter runs a load -> convert -> save job.
type Converter struct {
	// params stores the job configuration
	params *Params

	// env is the map being converted
	env *envmap.EnvironmentMap

	// metrics holds round-trip metrics when Verify is set
	metrics envmap.Metrics
}

// NewConverter creates a converter with the provided parameters.
func NewConverter(params *Params) *Converter {
	return &Converter{params: params}
}

// Process runs the complete conversion.
func (c *Converter) Process() error {
	source, err := projection.ParseFormat(c.params.SourceFormat)
	if err != nil {
		return fmt.Errorf("source format: %w", err)
	}
	target, err := projection.ParseFormat(c.params.TargetFormat)
	if err != nil {
		return fmt.Errorf("target format: %w", err)
	}
	method, err := interpolation.ParseMethod(c.params.Method)
	if err != nil {
		return err
	}
	if c.params.SaveIntermediaryResults {
		if err := os.MkdirAll(c.params.IntermediaryDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	c.logf("Loading %s...\n", c.params.InputFile)
	data, err := imageio.Load(c.params.InputFile)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}
	c.logf("Loaded %dx%d image with %d channels\n", data.Cols, data.Rows, data.Channels)

	env, err := envmap.NewWithFormat(data, source)
	if err != nil {
		return err
	}

	// Paint the source's own invalid region so it never leaks into the output
	background := c.params.Background
	if len(background) == 0 {
		background = make([]float64, data.Channels)
	}
	if err := env.SetBackgroundColor(background, env.ValidMask()); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	c.env = env

	if err := c.saveStage("01_source", env); err != nil {
		return err
	}

	opts := []envmap.Option{
		envmap.WithMethod(method),
		envmap.WithWorkers(c.params.Workers),
		envmap.WithProgress(func(completed, total int, message string) {
			c.logf("\rResampling channels: %.1f%% complete", float64(completed)/float64(total)*100)
		}),
	}

	c.logf("Converting %s -> %s (%s)...\n", source, target, method)
	original := env.Data().Clone()
	if err := env.ConvertToFormat(target, opts...); err != nil {
		return err
	}
	c.logf("\n")

	if err := c.saveStage("02_target", env); err != nil {
		return err
	}

	if c.params.Verify {
		if err := c.verify(original, source, opts); err != nil {
			return err
		}
	}

	c.logf("Saving %s...\n", c.params.OutputFile)
	if err := imageio.Save(c.params.OutputFile, env.Data()); err != nil {
		return fmt.Errorf("failed to save output: %w", err)
	}
	return nil
}

// verify converts a copy of the result back to the source projection and
// compares it against the original over pixels valid in both projections.
func (c *Converter) verify(original *models.PixelData, source projection.Format, opts []envmap.Option) error {
	back, err := envmap.NewWithFormat(c.env.Data().Clone(), c.env.Format())
	if err != nil {
		return err
	}
	if err := back.SetBackgroundColor(c.env.BackgroundColor(), back.ValidMask()); err != nil {
		return err
	}

	c.logf("Verifying round trip %s -> %s...\n", back.Format(), source)
	restored, filled, err := back.Reproject(source, opts...)
	if err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	c.logf("\n")

	mask, err := filled.And(envmap.Coverage(source, c.env.Format(), original.Rows, original.Cols))
	if err != nil {
		return err
	}
	c.metrics, err = envmap.Compare(original, restored, mask)
	if err != nil {
		return fmt.Errorf("round trip: %w", err)
	}

	c.logf("Round trip over %d samples: RMSE %.6f, MAE %.6f, max %.6f, correlation %.4f\n",
		c.metrics.Samples, c.metrics.RMSE, c.metrics.MAE, c.metrics.MaxError, c.metrics.Correlation)
	return nil
}

// GetMetrics returns the round-trip metrics of the last verified run.
func (c *Converter) GetMetrics() envmap.Metrics {
	return c.metrics
}

// Result returns the converted map, or nil before Process succeeds.
func (c *Converter) Result() *envmap.EnvironmentMap {
	return c.env
}

// saveStage writes the mask, channels and preview of env under stage.
func (c *Converter) saveStage(stage string, env *envmap.EnvironmentMap) error {
	if !c.params.SaveIntermediaryResults {
		return nil
	}

	stageDir := filepath.Join(c.params.IntermediaryDir, stage)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return fmt.Errorf("failed to create intermediary directory: %w", err)
	}

	viewer := visualization.NewViewer(env)
	if err := viewer.SaveImage(viewer.MaskImage(), filepath.Join(stageDir, "mask.png")); err != nil {
		return fmt.Errorf("failed to save mask: %w", err)
	}
	if err := viewer.SaveChannelSequence(filepath.Join(stageDir, "channels")); err != nil {
		return fmt.Errorf("failed to save channels: %w", err)
	}

	preview, err := viewer.Preview(c.params.PreviewSize)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	name := fmt.Sprintf("preview_%s.jpg", strings.ToLower(env.Format().String()))
	return viewer.SaveImage(preview, filepath.Join(stageDir, name))
}

func (c *Converter) logf(format string, args ...interface{}) {
	if c.params.Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
