package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/pkg/cache"
	"github.com/matzehuels/ergraph/pkg/pipeline"
)

// visualizeCommand turns an exported triple file into graph files.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		flags  pipelineFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "visualize <triples.json|triples.nt>",
		Short: "Render exported triples as GraphML, DOT or SVG",
		Long: `Import a triple file written by "export" and render it.

Nodes are the subjects typed by rdf:type; edges are URI-valued triples
between two such subjects. Every other literal becomes a node attribute.`,
		Example: `  ergraph visualize people.json -f graphml,svg
  ergraph visualize people.nt --undirected -o people.dot -f dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, "")
			if err != nil {
				return err
			}
			if err := opts.ValidateForRender(); err != nil {
				return err
			}

			ts, data, err := readTriples(cmd, args[0], opts)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			result := &pipeline.Result{Triples: ts, TriplesHash: cache.Hash(data)}
			result.Stats.Triples = ts.Len()
			artifacts, cached, err := runner.RenderWithCacheInfo(cmd.Context(), result, opts)
			if err != nil {
				return err
			}
			if result.Visual != nil {
				result.Stats.Nodes = result.Visual.NodeCount()
				result.Stats.Edges = result.Visual.EdgeCount()
			}

			paths, err := writeArtifacts(cmd, artifacts, opts.Formats, args[0], output)
			if err != nil {
				return err
			}
			w := cmd.ErrOrStderr()
			printSuccess(w, "Rendered %s", args[0])
			printStats(w, result.Stats, cached)
			printWritten(w, paths)
			return nil
		},
	}

	flags.addRender(cmd, "graphml, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, or "-" for stdout (default derived from input)`)
	cmd.Flags().StringSliceVar(&flags.prefixes, "prefix", nil, "namespace binding for N-Triples input as prefix=uri (repeatable)")
	return cmd
}
