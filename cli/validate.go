package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalgen/ir"
	"github.com/petal-labs/petalgen/loader"
	"github.com/petal-labs/petalgen/topology"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a graph description without generating code",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	diags, err := validateFile(filePath)
	if err != nil {
		return err
	}

	if format == "json" {
		printDiagnosticsJSON(out, diags)
	} else {
		printDiagnosticsText(out, diags)
		printSummary(out, diags)
	}

	hasErrs := ir.HasErrors(diags)
	hasWarns := len(ir.Warnings(diags)) > 0
	if hasErrs || (strict && hasWarns) {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

// validateFile runs structural validation plus topology resolution, so
// dangling edges, unreachable entries and dead edges all surface without
// generating anything.
func validateFile(filePath string) ([]ir.Diagnostic, error) {
	data, err := os.ReadFile(filePath) // #nosec G304 -- path from user CLI arg
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", filePath)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}

	g, err := loader.LoadBytes(data, filePath)
	if err != nil {
		var derr *loader.DiagnosticError
		if errors.As(err, &derr) {
			return derr.Diagnostics, nil
		}
		return nil, exitError(exitInputParse, "loading graph: %v", err)
	}

	diags := g.Validate()
	resolved, err := topology.Resolve(g)
	if err != nil {
		diags = append(diags, ir.Diagnostic{
			Code:     "TP-000",
			Severity: ir.SeverityError,
			Message:  err.Error(),
		})
		return diags, nil
	}
	return append(diags, resolved.Diagnostics...), nil
}

func printSummary(w io.Writer, diags []ir.Diagnostic) {
	errs := ir.Errors(diags)
	warns := ir.Warnings(diags)

	switch {
	case len(errs) == 0 && len(warns) == 0:
		fmt.Fprintln(w, "Valid!")
	case len(errs) == 0 && len(warns) > 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", len(warns), pluralize("warning", len(warns)))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			len(errs), pluralize("error", len(errs)),
			len(warns), pluralize("warning", len(warns)))
	}
}

func printDiagnosticsJSON(w io.Writer, diags []ir.Diagnostic) {
	// Output an empty array rather than null when there are no diagnostics.
	if diags == nil {
		diags = []ir.Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(diags)
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
