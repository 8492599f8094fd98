package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persisted shader result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove all persisted cache images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.CleanCache(); err != nil {
				return err
			}
			cmd.Println("cache cleaned")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the result cache is enabled",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if c.app.CacheEnabled() {
				cmd.Println("cache: enabled")
				return
			}
			cmd.Println("cache: disabled")
		},
	})

	return cmd
}
