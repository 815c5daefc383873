package cli

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/pipeline"
)

// tripleFormats are the formats the export command can write.
var tripleFormats = []string{pipeline.FormatJSON, pipeline.FormatNTriples, pipeline.FormatJSONLD}

// exportCommand loads, checks and exports a document as triples.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		flags  pipelineFlags
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <data.json>",
		Short: "Export a document as RDF triples",
		Long: `Load and check a JSON document, then export its entities as RDF triples.

The output format is taken from --format, else from the extension of
--output (.json, .nt, .jsonld), else JSON. Without --output the triples are
written to stdout.`,
		Example: `  ergraph export -s people.yaml people.json -o people.nt
  ergraph export -s people.yaml people.json --pattern 'urn:${type}:${id}' -f jsonld`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = formatFromPath(output)
			}
			if !slices.Contains(tripleFormats, format) {
				return ergerrors.New(ergerrors.ErrCodeInvalidFormat, "cannot export triples as %q (want %s)", format, strings.Join(tripleFormats, ", "))
			}
			opts.Formats = []string{format}

			runner, err := c.newRunner(true)
			if err != nil {
				return err
			}
			defer runner.Close()

			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))
			g, err := runner.Load(ctx, opts)
			if err != nil {
				return err
			}
			if report := runner.Check(ctx, g); !report.OK() && !opts.AllowUnresolved {
				return report.Err()
			}
			ts, err := runner.Export(ctx, g, opts)
			if err != nil {
				return err
			}
			artifacts, err := runner.Render(ctx, ts, nil, opts)
			if err != nil {
				return err
			}
			prog.done("exported triples", "triples", ts.Len())

			if output == "" {
				output = "-"
			}
			paths, err := writeArtifacts(cmd, artifacts, opts.Formats, args[0], output)
			if err != nil {
				return err
			}
			if len(paths) > 0 {
				w := cmd.ErrOrStderr()
				printSuccess(w, "Exported %s triples", StyleNumber.Render(strconv.Itoa(ts.Len())))
				printWritten(w, paths)
				if format == pipeline.FormatJSON || format == pipeline.FormatNTriples {
					printNextStep(w, "Visualize", appName+" visualize "+paths[0])
				}
			}
			return nil
		},
	}

	flags.addLoad(cmd)
	flags.addExport(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "triple format: "+strings.Join(tripleFormats, ", "))
	return cmd
}

// formatFromPath maps a triple file extension to its format, defaulting to JSON.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return pipeline.FormatNTriples
	case ".jsonld":
		return pipeline.FormatJSONLD
	}
	return pipeline.FormatJSON
}
