package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// checkCommand loads a document and reports unresolved references.
func (c *CLI) checkCommand() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "check <data.json>",
		Short: "Load a document and verify that every reference resolves",
		Long: `Load a JSON document against a schema and report every reference whose
target entity does not exist. Use "-" to read the document from stdin.`,
		Example: `  ergraph check --schema people.yaml people.json
  cat people.json | ergraph check -s people.toml -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(true)
			if err != nil {
				return err
			}
			defer runner.Close()

			ctx := cmd.Context()
			g, err := runner.Load(ctx, opts)
			if err != nil {
				return err
			}
			report := runner.Check(ctx, g)

			w := cmd.OutOrStdout()
			for _, kind := range g.Kinds() {
				printKeyValue(w, kind, strconv.Itoa(g.Count(kind)))
			}
			printKeyValue(w, "references", strconv.Itoa(report.References))

			if report.OK() {
				printSuccess(w, "%s entities, all references resolve", StyleNumber.Render(strconv.Itoa(report.Entities)))
				return nil
			}
			for _, u := range report.Unresolved {
				printError(w, "%s", u.String())
			}
			printWarning(w, "%d unresolved reference(s)", len(report.Unresolved))
			printNextStep(w, "Export anyway", fmt.Sprintf("%s export --allow-unresolved -s %s %s", appName, flags.schema, args[0]))
			return report.Err()
		},
	}

	flags.addLoad(cmd)
	return cmd
}
