package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/internal/server"
	"github.com/matzehuels/depscope/pkg/index"
	"github.com/matzehuels/depscope/pkg/index/indexes"
)

const defaultServeAddr = "127.0.0.1:8080"

func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the package indexes as a read-only JSON API",
		Long: `Serve info, versions and search for every package index over HTTP.

Responses share the configured cache, so pointing several instances at one
Redis or MongoDB cache (--cache-url) spreads the registry load.`,
		Example: `  depscope serve --addr :8080 --cache-url redis://localhost:6379/0
  curl localhost:8080/v1/indexes/crates/packages/serde`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := c.openCache(ctx); err != nil {
				return err
			}
			srv := server.New(server.Options{
				Open: func(name string) (index.PackageIndex, error) {
					return c.openIndex(ctx, cmd, name)
				},
				Names:  indexes.Names(),
				Logger: c.Logger,
			})
			return srv.ListenAndServe(ctx, c.config.GetString("serve.addr"))
		},
	}
	cmd.Flags().String("addr", defaultServeAddr, "listen address")
	c.bind(cmd.Flags().Lookup("addr"), "serve.addr")
	return cmd
}
