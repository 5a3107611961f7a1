package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalgen"
	"github.com/petal-labs/petalgen/emit"
	"github.com/petal-labs/petalgen/ir"
	"github.com/petal-labs/petalgen/loader"
	"github.com/petal-labs/petalgen/store"
)

// NewConvertCmd creates the "convert" subcommand.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a workflow graph description to Go source",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}

	cmd.Flags().StringP("output", "o", "", "Output directory (default: stdout)")
	cmd.Flags().String("package", "workflow", "Package name for generated code")
	cmd.Flags().Bool("with-tests", true, "Generate the test scaffold alongside the code")
	cmd.Flags().Bool("history", true, "Record the conversion in the local history store")
	cmd.Flags().String("otlp-endpoint", "", "OTLP HTTP endpoint for conversion traces")

	return cmd
}

// runConvert implements the conversion pipeline:
//
//	read file → detect shape → decode + validate → Convert
//	→ write workflow.go (and workflow_test.go) or stdout
//	→ print warnings → record history
func runConvert(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	outputDir, _ := cmd.Flags().GetString("output")
	pkgName, _ := cmd.Flags().GetString("package")
	withTests, _ := cmd.Flags().GetBool("with-tests")
	history, _ := cmd.Flags().GetBool("history")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")

	g, err := loadGraph(filePath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts := []petalgen.Option{
		petalgen.WithPackageName(pkgName),
		petalgen.WithTests(withTests),
	}

	if otlpEndpoint != "" {
		shutdown, handler, err := setupTracing(ctx, otlpEndpoint)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer shutdown(ctx)
		opts = append(opts, petalgen.WithEventHandler(handler.Handle))
	}

	art, err := petalgen.Convert(ctx, g, opts...)
	if err != nil {
		var verr *petalgen.ValidationError
		if errors.As(err, &verr) {
			printDiagnosticsText(stderr, verr.Diagnostics)
			return exitError(exitValidation, "conversion failed")
		}
		return exitError(exitConversion, "conversion failed: %v", err)
	}

	printDiagnosticsText(stderr, art.Diagnostics)

	outputPath := "-"
	if outputDir == "" {
		fmt.Fprint(stdout, art.File())
		if test := art.TestFile(); withTests && test != "" {
			fmt.Fprintln(stdout)
			fmt.Fprint(stdout, test)
		}
	} else {
		outputPath, err = writeArtifact(art, outputDir, withTests)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Generated %s\n", outputPath)
	}

	if history {
		recordConversion(ctx, stderr, g, art, filePath, outputPath)
	}

	return nil
}

// loadGraph reads and decodes a graph description file, mapping the error
// cases onto CLI exit codes.
func loadGraph(filePath string) (*ir.GraphInfo, error) {
	g, err := loader.Load(filePath)
	if err == nil {
		return g, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, exitError(exitFileNotFound, "file not found: %s", filePath)
	}
	var derr *loader.DiagnosticError
	if errors.As(err, &derr) {
		return nil, exitError(exitValidation, "invalid graph: %v", derr)
	}
	return nil, exitError(exitInputParse, "loading graph: %v", err)
}

// writeArtifact writes the generated source (and optional test scaffold)
// into the output directory and returns the main file path.
func writeArtifact(art *emit.Artifact, outputDir string, withTests bool) (string, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	mainPath := filepath.Join(outputDir, "workflow.go")
	if err := os.WriteFile(mainPath, []byte(art.File()), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", mainPath, err)
	}

	if test := art.TestFile(); withTests && test != "" {
		testPath := filepath.Join(outputDir, "workflow_test.go")
		if err := os.WriteFile(testPath, []byte(test), 0o600); err != nil {
			return "", fmt.Errorf("writing %s: %w", testPath, err)
		}
	}
	return mainPath, nil
}

// recordConversion best-effort persists the conversion; history failures
// never fail the command.
func recordConversion(ctx context.Context, stderr io.Writer, g *ir.GraphInfo, art *emit.Artifact, sourcePath, outputPath string) {
	st, err := store.OpenDefault()
	if err != nil {
		fmt.Fprintf(stderr, "warning: history unavailable: %v\n", err)
		return
	}
	defer st.Close()

	_, err = st.Add(ctx, store.Record{
		GraphName:  g.Name,
		SourcePath: sourcePath,
		OutputPath: outputPath,
		Nodes:      len(g.Nodes),
		Warnings:   len(ir.Warnings(art.Diagnostics)),
	})
	if err != nil {
		fmt.Fprintf(stderr, "warning: recording history: %v\n", err)
	}
}

// printDiagnosticsText writes diagnostics as formatted text lines.
func printDiagnosticsText(w io.Writer, diags []ir.Diagnostic) {
	for _, d := range diags {
		sev := strings.ToUpper(d.Severity)
		if d.Path != "" {
			fmt.Fprintf(w, "%s [%s]: %s (at %s)\n", sev, d.Code, d.Message, d.Path)
		} else {
			fmt.Fprintf(w, "%s [%s]: %s\n", sev, d.Code, d.Message)
		}
	}
}
