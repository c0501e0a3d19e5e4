package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envmap/pkg/config"
)

const version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "envmap",
	Short: "Convert environment maps between spherical projections",
	Long: `envmap reprojects omnidirectional environment maps (light probes, sky
domes, panoramas) between the angular, skyangular and latlong projections.

Pixels outside the field of view of the target projection are filled with a
background color. Settings come from a YAML config file, ENVMAP_* environment
variables and command line flags, in increasing order of precedence.

Examples:
  # Convert an equirectangular panorama to a light probe
  envmap convert -i panorama.png -o probe.png --from latlong --to angular

  # Convert a sky dome to latlong with a grey background and check the result
  envmap convert -i sky.tiff -o sky_latlong.tiff --from skyangular --to latlong --background 0.5,0.5,0.5 --verify

  # Start HTTP server
  envmap serve --port 8080`,
	Version:      version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, see 'envmap config init')")
	rootCmd.PersistentFlags().BoolP("verbose", "v", true, "print progress to stderr")
	viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig seeds viper with the YAML configuration and enables environment
// overrides. Flags bound to the same keys take precedence over both.
func initConfig() {
	cfg := config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.LoadConfig(cfgFile)
		cobra.CheckErr(err)
		cfg = loaded
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
	setDefaults(cfg)

	viper.SetEnvPrefix("ENVMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setDefaults(cfg *config.Config) {
	viper.SetDefault("processing.workers", cfg.Processing.Workers)
	viper.SetDefault("processing.method", cfg.Processing.Method)

	viper.SetDefault("conversion.from", cfg.Conversion.From)
	viper.SetDefault("conversion.to", cfg.Conversion.To)
	viper.SetDefault("conversion.background", formatBackground(cfg.Conversion.Background))
	viper.SetDefault("conversion.verify", cfg.Conversion.Verify)

	viper.SetDefault("output.saveIntermediaryResults", cfg.Output.SaveIntermediaryResults)
	viper.SetDefault("output.intermediaryDir", cfg.Output.IntermediaryDir)
	viper.SetDefault("output.previewSize", cfg.Output.PreviewSize)
	viper.SetDefault("output.verbose", cfg.Output.Verbose)

	viper.SetDefault("server.bind", cfg.Server.Bind)
	viper.SetDefault("server.port", cfg.Server.Port)
	viper.SetDefault("server.timeout", cfg.Server.Timeout)
	viper.SetDefault("server.maxBodyBytes", cfg.Server.MaxBodyBytes)
}

// parseBackground accepts values from a string slice flag, a config default or
// a single comma separated environment variable.
func parseBackground(values []string) ([]float64, error) {
	var color []float64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid background value %q: %v", part, err)
			}
			color = append(color, f)
		}
	}
	return color, nil
}

func formatBackground(color []float64) []string {
	values := make([]string, len(color))
	for i, c := range color {
		values[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return values
}
