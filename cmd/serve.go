package cmd

import (
	"github.com/spf13/cobra"

	"github.com/emrgen/grantcore/internal/config"
	"github.com/emrgen/grantcore/internal/server"
)

func serveCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "run the grpc server, scheduled tasks and the corpus consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			config.ConfigureLogging(cfg)
			return server.Start(cfg)
		},
	}

	return command
}
