package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cityquest-mcp-service/pkg/baseurl"
)

func newBaseURLCmd(c *cli) *cobra.Command {
	var origin bool
	cmd := &cobra.Command{
		Use:   "base-url",
		Short: "Print the resolved public base URL",
		Long: `base-url prints the URL widgets and the start page link resolve to.
The --base-url flag wins, then MCP_WIDGET_BASE_URL and friends, development
mode, hosting provider variables and finally HOST or URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := c.baseURL()
			if origin {
				base = baseurl.Origin(base)
			}
			fmt.Fprintln(cmd.OutOrStdout(), base)
			if baseurl.IsDevelopment(os.LookupEnv) {
				fmt.Fprintln(cmd.ErrOrStderr(), "development mode detected")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&origin, "origin", false, "print only scheme://host")
	return cmd
}
