package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/pkg/buildinfo"
	"github.com/matzehuels/ergraph/pkg/config"
	"github.com/matzehuels/ergraph/pkg/observability"
)

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Convert entity-relationship JSON into RDF triples and graph files",
		Long: `ergraph reads a JSON document of typed entities described by a small
schema, checks that every reference resolves, exports the entities as RDF
triples and writes them out as GraphML, DOT or SVG.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup runs before every command: it applies --verbose, loads the
// configuration and routes pipeline and store events to the logger.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("configuration loaded", "file", c.configPath, "store", cfg.Store.Backend, "cache", cfg.Cache.Backend)

	hooks := observability.NewLogHooks(c.Logger)
	observability.SetPipelineHooks(hooks)
	observability.SetStoreHooks(hooks)

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}
