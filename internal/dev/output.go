package dev

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// OutputFormat represents the output format
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat maps a --output value to an OutputFormat
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatText:
		return OutputFormatText, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: text, json)", s)
	}
}

// OutputWriter formats and writes results to output
type OutputWriter interface {
	// WriteValidationResult writes validation results
	WriteValidationResult(result *ValidationResult) error
	// WriteError writes an error message
	WriteError(err error) error
}

// NewOutputWriter creates an OutputWriter for the given format
func NewOutputWriter(out io.Writer, format OutputFormat, verbose bool) OutputWriter {
	switch format {
	case OutputFormatJSON:
		return &jsonOutputWriter{out: out}
	default:
		return &textOutputWriter{out: out, verbose: verbose}
	}
}

// textOutputWriter renders a summary table of the validation checks followed
// by a table of the reported issues
type textOutputWriter struct {
	out     io.Writer
	verbose bool
}

func (w *textOutputWriter) WriteValidationResult(result *ValidationResult) error {
	if result.Details != nil {
		tw := table.NewWriter()
		tw.SetOutputMirror(w.out)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
		tw.AppendRows([]table.Row{
			categoryRow("Schema Validation", result.Details.Schema, "documents"),
			categoryRow("OCM Environments", result.Details.Environments, "environments"),
			categoryRow("Cluster Selector", result.Details.Selector, "clusters managed"),
			categoryRow("Desired State", result.Details.DesiredState, "clusters declared"),
		})
		tw.Render()
		_, _ = fmt.Fprintln(w.out)
	}

	if result.Valid {
		_, _ = fmt.Fprintln(w.out, "Validation: SUCCESS")
	} else {
		_, _ = fmt.Fprintln(w.out, "Validation: FAILED")
	}

	issues := make([]table.Row, 0, len(result.Errors)+len(result.Warnings))
	for _, issue := range result.Errors {
		issues = append(issues, table.Row{"ERROR", issue.Path, issue.Message})
	}
	if w.verbose {
		for _, issue := range result.Warnings {
			issues = append(issues, table.Row{"WARN", issue.Path, issue.Message})
		}
	}
	if len(issues) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w.out)
	tw := table.NewWriter()
	tw.SetOutputMirror(w.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Level", "Path", "Message"})
	tw.AppendRows(issues)
	tw.Render()
	return nil
}

func categoryRow(name string, cat ValidationCategory, unit string) table.Row {
	status := "PASS"
	if !cat.Passed {
		status = "FAIL"
	}
	detail := ""
	if cat.Count > 0 {
		detail = fmt.Sprintf("%d %s", cat.Count, unit)
	}
	return table.Row{name, status, detail}
}

func (w *textOutputWriter) WriteError(err error) error {
	_, _ = fmt.Fprintf(w.out, "Error: %v\n", err)
	return nil
}

// jsonOutputWriter writes JSON output
type jsonOutputWriter struct {
	out io.Writer
}

func (w *jsonOutputWriter) WriteValidationResult(result *ValidationResult) error {
	return w.writeJSON(result)
}

func (w *jsonOutputWriter) WriteError(err error) error {
	return w.writeJSON(map[string]string{"error": err.Error()})
}

func (w *jsonOutputWriter) writeJSON(v interface{}) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
