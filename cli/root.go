// Package cli holds the yt-digest commands: the HTTP server and the
// operator commands that read the ledgers, the cache and the run log.
package cli

import (
	"sync"

	"github.com/nijaru/yt-digest/config"
	"github.com/spf13/cobra"
)

type commandContext struct {
	load func() (*config.Config, error)

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(load func() (*config.Config, error)) *commandContext {
	return &commandContext{load: load}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.load()
	})
	return c.config, c.configErr
}

// NewRootCommand returns the yt-digest command tree configured from the
// environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(config.Load)
}

func newRootCommand(load func() (*config.Config, error)) *cobra.Command {
	ctx := newCommandContext(load)

	rootCmd := &cobra.Command{
		Use:           "yt-digest",
		Short:         "YouTube transcripts, summaries and analysis history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCostsCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))

	return rootCmd
}
