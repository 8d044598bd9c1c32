// Package commands defines the pictowebp CLI command tree.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aditya-xq/PicToWebP/pkg/config"
)

const cliExecutable = "pictowebp"

type configKeyType struct{}

// configKey carries the loaded *config.Manager through the command context.
var configKey = configKeyType{}

// configFromContext returns the loaded configuration for a command. Falls
// back to defaults when the root PersistentPreRunE did not run (tests).
func configFromContext(ctx context.Context) config.Config {
	if mgr, ok := ctx.Value(configKey).(*config.Manager); ok {
		return mgr.Get()
	}
	return config.DefaultConfig()
}

// NewCommand constructs the top-level pictowebp CLI command, wiring global
// flags, configuration loading, and log level selection.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "PicToWebP converts folders of images to WebP",
		Long: `PicToWebP recursively converts a folder of raster images (JPEG, PNG,
BMP, TIFF, GIF) into WebP, preserving the directory structure in a sibling
output folder. Runs either as a one-shot CLI conversion or as a small web
front end with live progress.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			manager := config.NewManager()
			if err := manager.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

			// Configure global log level based on verbosity flags.
			// If explicit --verbose is set, show debug and above.
			// Else use -v count: 0=>Error, 1=>Info, 2+=>Debug.
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				switch {
				case verbosityCount <= 0:
					zerolog.SetGlobalLevel(zerolog.ErrorLevel)
				case verbosityCount == 1:
					zerolog.SetGlobalLevel(zerolog.InfoLevel)
				default:
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
			}
			if lvl, err := zerolog.ParseLevel(manager.Get().Log.Level); err == nil && verbosityCount == 0 && !verbose {
				zerolog.SetGlobalLevel(lvl)
			}

			ctx := context.WithValue(cmd.Context(), configKey, manager)
			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewConvertCommand())
	cmd.AddCommand(NewServerCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
