package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aditya-xq/PicToWebP/cmd/pictowebp/internal/bind"
	"github.com/aditya-xq/PicToWebP/pkg/codec"
	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/notify"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// timeRounding keeps elapsed times readable in the text summary.
const timeRounding = 10 * time.Millisecond

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	savedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// NewConvertCommand constructs the 'convert' command for one-shot folder
// conversion.
func NewConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <source-folder>",
		Short: "Convert a folder of images to WebP",
		Long: `Recursively converts every supported image under the source folder to
WebP, mirroring the directory structure into the output folder. Individual
file failures are reported in the summary and do not abort the run.`,
		Args: cobra.ExactArgs(1),
		RunE: runConvertCommand,
	}

	cmd.Flags().StringP("out", "o", "", "Output folder (default: <source>_webp sibling)")
	cmd.Flags().IntP("quality", "q", 80, "WebP quality, 0-100")
	cmd.Flags().IntP("threads", "t", 16, "Number of concurrent workers")
	cmd.Flags().String("timeout", "", "Per-file timeout (e.g. '30s'); empty disables it")
	cmd.Flags().Bool("clean", false, "Move an existing output folder aside before converting")
	cmd.Flags().Bool("reencode-webp", false, "Also re-encode files that are already WebP")
	cmd.Flags().Bool("lossless", false, "Use lossless WebP encoding")
	cmd.Flags().Bool("progress", true, "Print a live progress line")
	cmd.Flags().String("output", "text", "Summary format: text, json, yaml")

	return cmd
}

func runConvertCommand(cmd *cobra.Command, args []string) error {
	cfg := configFromContext(cmd.Context())

	opts, err := bind.BindConvertOptions(cmd, args[0], cfg.Convert)
	if err != nil {
		return err
	}

	logger := log.With().Str("command", "convert").Logger()
	logger.Info().
		Str("source", opts.Params.SourceDir).
		Int("quality", opts.Params.Quality).
		Int("threads", opts.Params.Threads).
		Msg("starting conversion")

	svc := convexec.NewService().
		WithEncoder(codec.WebP{Lossless: opts.Lossless}).
		WithRegistry(runs.NewStore())

	colorEnabled := isatty.IsTerminal(os.Stdout.Fd())
	if opts.Progress && opts.OutputFormat == "text" {
		svc = svc.WithSink(notify.NewConsole(cmd.OutOrStdout(), colorEnabled))
	}

	res, runErr := svc.Run(cmd.Context(), opts.Params)
	if res == nil {
		logger.Error().Err(runErr).Msg("conversion failed")
		return runErr
	}
	if runErr != nil {
		// Cancelled mid-run. Render the partial summary, then surface the
		// cancellation as the exit status.
		renderSummary(cmd, opts.OutputFormat, res, colorEnabled)
		return runErr
	}

	return renderSummary(cmd, opts.OutputFormat, res, colorEnabled)
}

func renderSummary(cmd *cobra.Command, format string, res *convexec.Result, color bool) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "yaml":
		data, err := yaml.Marshal(res)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	default:
		printTextSummary(cmd, res, color)
	}
	return nil
}

func printTextSummary(cmd *cobra.Command, res *convexec.Result, color bool) {
	out := cmd.OutOrStdout()
	s := res.Stats

	render := func(style lipgloss.Style, text string) string {
		if color {
			return style.Render(text)
		}
		return text
	}

	fmt.Fprintln(out, render(headerStyle, "Conversion summary"))
	fmt.Fprintf(out, "  State:      %s\n", res.State)
	fmt.Fprintf(out, "  Files:      %d converted, %d failed (of %d)\n",
		s.CompletedJobs, s.FailedJobs, s.TotalJobs)
	fmt.Fprintf(out, "  Original:   %s\n", humanize.Bytes(uint64(s.TotalOriginalBytes)))
	fmt.Fprintf(out, "  Converted:  %s\n", humanize.Bytes(uint64(s.TotalConvertedBytes)))

	saved := fmt.Sprintf("  Saved:      %s (%.1f%%)\n",
		humanize.Bytes(uint64(max(s.BytesSaved(), 0))), s.SavedPercent())
	fmt.Fprint(out, render(savedStyle, saved))

	fmt.Fprintf(out, "  Elapsed:    %s\n", s.Elapsed.Round(timeRounding))
	fmt.Fprintf(out, "  Output:     %s\n", res.OutputDir)

	if s.FailedJobs > 0 {
		fmt.Fprint(out, render(failStyle,
			fmt.Sprintf("  %d file(s) failed; rerun with -v for details\n", s.FailedJobs)))
	}
}
