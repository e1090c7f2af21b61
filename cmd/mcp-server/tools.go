package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cityquest-mcp-service/pkg/tools"
)

// Output formats accepted by --output
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// toolSummary is the printable view of one registered tool
type toolSummary struct {
	Name         string         `json:"name" yaml:"name"`
	Title        string         `json:"title" yaml:"title"`
	Description  string         `json:"description" yaml:"description"`
	URI          string         `json:"uri" yaml:"uri"`
	ReadOnly     bool           `json:"readOnly" yaml:"readOnly"`
	InputSchema  map[string]any `json:"inputSchema" yaml:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty" yaml:"outputSchema,omitempty"`
}

func newToolsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the registered widget tools",
	}

	var output string
	list := &cobra.Command{
		Use:   "list",
		Short: "Register the catalog and list the resulting tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, report, err := c.registerCatalog(cmd.Context())
			if err != nil {
				return err
			}
			for _, failure := range report.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.RedString("skipped"), failure.Name, failure.Err)
			}
			return printTools(cmd.OutOrStdout(), output, summarize(registry.ListTools()))
		},
	}
	list.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json, yaml)")

	cmd.AddCommand(list)
	return cmd
}

func summarize(registered []*tools.RegisteredTool) []toolSummary {
	summaries := make([]toolSummary, 0, len(registered))
	for _, tool := range registered {
		summary := toolSummary{
			Name:        tool.Name,
			Title:       tool.Definition.Title,
			Description: tool.Definition.Description,
			URI:         tool.URI,
			ReadOnly:    tool.Annotations.ReadOnlyHint,
			InputSchema: tool.Definition.InputSchema.JSONSchema(),
		}
		if len(tool.Definition.OutputSchema) > 0 {
			summary.OutputSchema = tool.Definition.OutputSchema.JSONSchema()
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func printTools(w io.Writer, format string, summaries []toolSummary) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaries)
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(summaries)
	case outputTable:
		bold := color.New(color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", bold("NAME"), bold("TITLE"), bold("URI"))
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", cyan(s.Name), s.Title, s.URI)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
