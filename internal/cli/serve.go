package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/internal/api"
	"github.com/matzehuels/ergraph/pkg/observability"
)

// serveCommand exposes the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion pipeline over HTTP",
		Long: `Start an HTTP server exposing:

  GET  /healthz      liveness and version
  POST /v1/convert   schema and document in, rendered files out

The server stops gracefully on interrupt.`,
		Example: `  ergraph serve --addr :9090
  curl -s localhost:8080/v1/convert -d '{"schema":"person: [\"@id\"]","data":{"person":[{"id":"a"}]}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			observability.SetHTTPHooks(observability.NewLogHooks(c.Logger))
			return api.New(runner, c.Config, c.Logger).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}
