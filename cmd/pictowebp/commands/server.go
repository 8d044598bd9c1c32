package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aditya-xq/PicToWebP/pkg/server/app"
)

// NewServerCommand constructs the 'server' command running the web front
// end.
func NewServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web front end for folder conversions",
		Long: `Starts an HTTP server with a conversion form, a JSON API, and a live
progress event stream. The server runs until interrupted and shuts down
gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())

			serverCfg := cfg.Server
			if addr, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
				serverCfg.Addr = addr
			}
			if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
				serverCfg.Port = port
			}

			log.Info().
				Str("command", "server").
				Str("addr", serverCfg.Addr).
				Int("port", serverCfg.Port).
				Msg("starting web front end")

			return app.New(serverCfg, cfg.Convert, nil).Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "127.0.0.1", "Address to listen on")
	cmd.Flags().IntP("port", "p", 5000, "Port to listen on")

	return cmd
}
