package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalgen/viz"
)

// NewVisualizeCmd creates the "visualize" subcommand.
func NewVisualizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize <file>",
		Short: "Render a graph description as Mermaid or DOT",
		Args:  cobra.ExactArgs(1),
		RunE:  runVisualize,
	}

	cmd.Flags().String("format", "mermaid", "Output format: mermaid | dot")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runVisualize(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	g, err := loadGraph(args[0])
	if err != nil {
		return err
	}

	var rendered string
	switch format {
	case "mermaid":
		rendered = viz.Mermaid(g)
	case "dot":
		rendered = viz.DOT(g)
	default:
		return fmt.Errorf("unknown format %q (want mermaid or dot)", format)
	}

	if outputPath == "" {
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(rendered), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputPath)
	return nil
}
