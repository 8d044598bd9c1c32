// Package bind centralizes the translation of Cobra flags into service
// layer parameter structs, so commands stay thin and the mapping is
// testable.
package bind

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aditya-xq/PicToWebP/pkg/config"
	"github.com/aditya-xq/PicToWebP/pkg/convexec"
)

// ConvertOptions is the bound form of the convert command's flags.
type ConvertOptions struct {
	Params convexec.Params

	// Progress enables the live console progress line.
	Progress bool

	// Lossless selects lossless WebP encoding.
	Lossless bool

	// OutputFormat selects the summary rendering: text, json, or yaml.
	OutputFormat string
}

// BindConvertOptions extracts and validates convert command flags.
//
// Flags read:
//   - --out: Output folder (defaults to a _webp sibling of the source)
//   - --quality: WebP quality, 0-100
//   - --threads: Worker count
//   - --timeout: Per-file timeout (e.g. "30s"); empty disables it
//   - --clean: Move an existing output folder aside before converting
//   - --reencode-webp: Also re-encode files that are already WebP
//   - --lossless: Use lossless WebP encoding
//   - --progress: Print a live progress line
//   - --output: Summary format (text, json, yaml)
//
// Config defaults fill any flag the user did not set explicitly.
func BindConvertOptions(cmd *cobra.Command, source string, defaults config.ConvertConfig) (ConvertOptions, error) {
	out, _ := cmd.Flags().GetString("out")
	quality, _ := cmd.Flags().GetInt("quality")
	threads, _ := cmd.Flags().GetInt("threads")
	timeout, _ := cmd.Flags().GetString("timeout")
	clean, _ := cmd.Flags().GetBool("clean")
	reencode, _ := cmd.Flags().GetBool("reencode-webp")
	progress, _ := cmd.Flags().GetBool("progress")
	lossless, _ := cmd.Flags().GetBool("lossless")
	format, _ := cmd.Flags().GetString("output")

	if !cmd.Flags().Changed("quality") && defaults.Quality > 0 {
		quality = defaults.Quality
	}
	if !cmd.Flags().Changed("threads") && defaults.Threads > 0 {
		threads = defaults.Threads
	}

	jobTimeout := defaults.JobTimeout
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return ConvertOptions{}, fmt.Errorf("invalid --timeout value %q: %w", timeout, err)
		}
		jobTimeout = d
	}

	switch format {
	case "text", "json", "yaml":
	default:
		return ConvertOptions{}, fmt.Errorf("invalid --output format %q (expected text, json, or yaml)", format)
	}

	return ConvertOptions{
		Params: convexec.Params{
			SourceDir:    source,
			OutputDir:    out,
			Quality:      quality,
			Threads:      threads,
			JobTimeout:   jobTimeout,
			ReencodeWebP: reencode || defaults.ReencodeWebP,
			CleanOutput:  clean,
		},
		Progress:     progress,
		Lossless:     lossless || defaults.Lossless,
		OutputFormat: format,
	}, nil
}
