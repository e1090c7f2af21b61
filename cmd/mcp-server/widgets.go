package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/monitor"
)

func newWidgetsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Check widget templates",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Render every widget template once and report failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := c.renderReport(cmd.OutOrStdout(), c.templates())
			if failed > 0 {
				return fmt.Errorf("%d widget template(s) failed to render", failed)
			}
			return nil
		},
	}

	var dir string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Re-render widget templates whenever a file in the directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = c.cfg.Widgets.TemplateDir
			}
			if dir == "" {
				return fmt.Errorf("widgets watch needs --dir or widgets.template_dir")
			}
			return c.watchWidgets(cmd.Context(), cmd.OutOrStdout(), dir)
		},
	}
	watch.Flags().StringVar(&dir, "dir", "", "template directory to watch")

	cmd.AddCommand(check, watch)
	return cmd
}

// renderReport materializes each widget from templates (nil selects the
// embedded set) and returns the number of failures
func (c *cli) renderReport(w io.Writer, templates fs.FS) int {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	failed := 0
	for _, def := range c.catalog(c.baseURL(), templates) {
		html, err := def.HTML()
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", bad("FAIL"), def.Name, err)
			continue
		}
		fmt.Fprintf(w, "%s %s (%d bytes)\n", ok("ok"), def.Name, len(html))
	}
	return failed
}

func (c *cli) watchWidgets(ctx context.Context, w io.Writer, dir string) error {
	m, err := monitor.NewFileSystemMonitor(config.HTMLExtension, config.MarkdownExtension)
	if err != nil {
		return err
	}
	m.SetLogger(c.logs.GetLogger("monitor"))

	templates := os.DirFS(dir)
	var mu sync.Mutex
	c.renderReport(w, templates)

	err = m.WatchDirectory(dir, func(event monitor.FileEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\n%s %s\n", color.YellowString(event.Type), event.Path)
		c.renderReport(w, templates)
	})
	if err != nil {
		_ = m.StopWatching()
		return err
	}

	<-ctx.Done()
	return m.StopWatching()
}
