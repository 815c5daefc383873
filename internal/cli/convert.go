package cli

import (
	"github.com/spf13/cobra"
)

// convertCommand runs the whole pipeline on one document.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		flags   pipelineFlags
		output  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "convert <data.json>",
		Short: "Run load, check, export, import and render in one step",
		Long: `Convert a JSON document straight to graph files.

Exported triples and rendered files are cached, keyed by the schema, the
document and every option that changes the result. Use --refresh to
recompute and --no-cache to bypass the cache entirely.`,
		Example: `  ergraph convert -s people.yaml people.json
  ergraph convert -s people.yaml people.json -f graphml,dot,svg -o out/people
  ergraph convert -s people.yaml people.json --tag person=people --id-scheme composite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			opts.Refresh = refresh

			runner, err := c.newRunner(flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			w := cmd.ErrOrStderr()
			spinner := newSpinner(cmd.Context(), w, "Converting "+args[0]+"...")
			spinner.Start()
			result, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				spinner.StopWithError("Conversion failed")
				return err
			}
			spinner.StopWithSuccess("Converted " + args[0])

			printStats(w, result.Stats, result.CacheInfo.TriplesHit && result.CacheInfo.RenderHit)
			if result.Stats.Unresolved > 0 {
				printWarning(w, "%d unresolved reference(s) dropped", result.Stats.Unresolved)
			}

			paths, err := writeArtifacts(cmd, result.Artifacts, opts.Formats, args[0], output)
			if err != nil {
				return err
			}
			printWritten(w, paths)
			return nil
		},
	}

	flags.addLoad(cmd)
	flags.addExport(cmd)
	flags.addRender(cmd, "graphml, dot, svg, ntriples, jsonld, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, or "-" for stdout (default derived from input)`)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute cached results")
	return cmd
}
