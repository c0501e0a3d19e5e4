package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envmap/pkg/pipeline"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert an environment map image to another projection",
	Long: `Convert reads an image in one projection and writes it in another at the
same resolution.

Input may be PNG, JPEG, TIFF or WebP; output may be PNG, JPEG or TIFF and is
chosen by the output file extension.`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("input", "i", "", "input image (required)")
	convertCmd.Flags().StringP("output", "o", "", "output image (required)")
	convertCmd.Flags().StringP("from", "f", "latlong", "projection of the input image")
	convertCmd.Flags().StringP("to", "t", "angular", "projection to convert to")
	convertCmd.Flags().StringSlice("background", []string{"0", "0", "0"}, "background color as r,g,b")
	convertCmd.Flags().StringP("method", "m", "linear", "interpolation method (linear|nearest)")
	convertCmd.Flags().Int("workers", 0, "channels resampled concurrently (0 = all CPUs)")
	convertCmd.Flags().Bool("verify", false, "convert back and report round-trip error")
	convertCmd.Flags().Bool("save-intermediary", false, "save masks, channels and previews of each stage")
	convertCmd.Flags().String("intermediary-dir", "intermediary_results", "directory for intermediary results")
	convertCmd.Flags().Int("preview-size", 512, "longest side of preview images")

	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")

	// Bind flags to viper
	viper.BindPFlag("conversion.from", convertCmd.Flags().Lookup("from"))
	viper.BindPFlag("conversion.to", convertCmd.Flags().Lookup("to"))
	viper.BindPFlag("conversion.background", convertCmd.Flags().Lookup("background"))
	viper.BindPFlag("conversion.verify", convertCmd.Flags().Lookup("verify"))
	viper.BindPFlag("processing.method", convertCmd.Flags().Lookup("method"))
	viper.BindPFlag("processing.workers", convertCmd.Flags().Lookup("workers"))
	viper.BindPFlag("output.saveIntermediaryResults", convertCmd.Flags().Lookup("save-intermediary"))
	viper.BindPFlag("output.intermediaryDir", convertCmd.Flags().Lookup("intermediary-dir"))
	viper.BindPFlag("output.previewSize", convertCmd.Flags().Lookup("preview-size"))
}

func runConvert(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")

	background, err := parseBackground(viper.GetStringSlice("conversion.background"))
	if err != nil {
		return err
	}

	params := &pipeline.Params{
		InputFile:               input,
		OutputFile:              output,
		SourceFormat:            viper.GetString("conversion.from"),
		TargetFormat:            viper.GetString("conversion.to"),
		Background:              background,
		Method:                  viper.GetString("processing.method"),
		Workers:                 viper.GetInt("processing.workers"),
		Verify:                  viper.GetBool("conversion.verify"),
		SaveIntermediaryResults: viper.GetBool("output.saveIntermediaryResults"),
		IntermediaryDir:         viper.GetString("output.intermediaryDir"),
		PreviewSize:             viper.GetInt("output.previewSize"),
		Verbose:                 viper.GetBool("output.verbose"),
	}

	converter := pipeline.NewConverter(params)

	startTime := time.Now()
	if err := converter.Process(); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	processingTime := time.Since(startTime)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Converted %s -> %s in %.2f seconds\n", params.SourceFormat, params.TargetFormat, processingTime.Seconds())
	fmt.Fprintf(out, "Output saved to: %s\n", params.OutputFile)

	if params.Verify {
		metrics := converter.GetMetrics()
		fmt.Fprintf(out, "\nRound-trip metrics:\n")
		fmt.Fprintf(out, "===================\n")
		fmt.Fprintf(out, "Samples compared: %d\n", metrics.Samples)
		fmt.Fprintf(out, "Root Mean Square Error (RMSE): %.6f\n", metrics.RMSE)
		fmt.Fprintf(out, "Mean Absolute Error (MAE): %.6f\n", metrics.MAE)
		fmt.Fprintf(out, "Maximum error: %.6f\n", metrics.MaxError)
		fmt.Fprintf(out, "Correlation: %.4f\n", metrics.Correlation)
	}

	if params.SaveIntermediaryResults {
		fmt.Fprintf(out, "\nIntermediary results saved to: %s\n", params.IntermediaryDir)
		fmt.Fprintln(out, "- 01_source: input map with its validity mask")
		fmt.Fprintln(out, "- 02_target: converted map with its validity mask")
	}
	return nil
}
