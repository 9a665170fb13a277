package cli

import (
	"github.com/spf13/cobra"

	"github.com/vbonduro/sitecheck/internal/app"
	"github.com/vbonduro/sitecheck/internal/config"
)

// ServeCmd runs the HTTP API.
func ServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App, cfg *config.Config) error {
				if addr == "" {
					addr = cfg.ListenAddr
				}
				return a.Server().ListenAndServe(addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LISTEN_ADDR)")
	return cmd
}
