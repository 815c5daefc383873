package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/pkg/config"
	"github.com/matzehuels/ergraph/pkg/pipeline"
	"github.com/matzehuels/ergraph/pkg/triplestore"
)

// storeCommand groups commands that move triples to and from a triple store.
func (c *CLI) storeCommand() *cobra.Command {
	var sc config.StoreConfig

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Push exported triples to a triple store or pull them back",
		Long: `Push and pull named graphs of triples.

The backend is memory, redis, mongo or postgres, taken from the [store]
section of the configuration unless overridden by flags. The memory
backend lives only as long as the process.`,
	}
	cmd.PersistentFlags().StringVar(&sc.Backend, "backend", "", "store backend: memory, redis, mongo, postgres")
	cmd.PersistentFlags().StringVar(&sc.URL, "url", "", "store connection URL")

	cmd.AddCommand(c.storePushCommand(&sc))
	cmd.AddCommand(c.storePullCommand(&sc))
	return cmd
}

// openStore merges flag overrides into the configured store and connects.
func (c *CLI) openStore(cmd *cobra.Command, override *config.StoreConfig) (triplestore.Store, string, error) {
	sc := c.Config.Store
	if override.Backend != "" {
		sc.Backend = override.Backend
	}
	if override.URL != "" {
		sc.URL = override.URL
	}
	cfg := *c.Config
	cfg.Store = sc
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	if sc.Backend == config.BackendMemory || sc.Backend == "" {
		c.Logger.Warn("memory store does not persist after this command")
	}
	s, err := c.OpenStore(cmd.Context(), sc)
	return s, sc.Backend, err
}

func (c *CLI) storePushCommand(sc *config.StoreConfig) *cobra.Command {
	var (
		flags pipelineFlags
		graph string
	)

	cmd := &cobra.Command{
		Use:   "push <triples.json|triples.nt>",
		Short: "Insert a triple file into a named graph",
		Example: `  ergraph store push people.json --graph people
  ergraph store push people.nt --backend postgres --url postgres://localhost/ergraph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, "")
			if err != nil {
				return err
			}
			ts, _, err := readTriples(cmd, args[0], opts)
			if err != nil {
				return err
			}

			s, backend, err := c.openStore(cmd, sc)
			if err != nil {
				return err
			}
			defer s.Close()

			if graph == "" {
				graph = triplestore.NewGraphURI()
			}
			if err := s.Insert(cmd.Context(), ts, graph); err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			printSuccess(w, "Pushed %s triples", StyleNumber.Render(strconv.Itoa(ts.Len())))
			printKeyValue(w, "backend", backend)
			printKeyValue(w, "graph", graph)
			printNextStep(w, "Pull", fmt.Sprintf("%s store pull %s", appName, graph))
			return nil
		},
	}

	cmd.Flags().StringVarP(&graph, "graph", "g", "", "graph name (default a fresh urn:uuid)")
	cmd.Flags().StringSliceVar(&flags.prefixes, "prefix", nil, "namespace binding for N-Triples input as prefix=uri (repeatable)")
	return cmd
}

func (c *CLI) storePullCommand(sc *config.StoreConfig) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "pull <graph>",
		Short:   "Read a named graph back as a triple file",
		Example: `  ergraph store pull people -o people.nt`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.openStore(cmd, sc)
			if err != nil {
				return err
			}
			defer s.Close()

			ts, err := s.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := pipeline.FromConfig(c.Config)
			opts.Formats = []string{formatFromPath(output)}
			runner, err := c.newRunner(true)
			if err != nil {
				return err
			}
			defer runner.Close()
			artifacts, err := runner.Render(cmd.Context(), ts, nil, opts)
			if err != nil {
				return err
			}

			if output == "" {
				output = "-"
			}
			paths, err := writeArtifacts(cmd, artifacts, opts.Formats, "", output)
			if err != nil {
				return err
			}
			printWritten(cmd.ErrOrStderr(), paths)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .json .nt or .jsonld (default JSON on stdout)")
	return cmd
}
