package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// checkFormat rejects unknown --output values before any work is done.
func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "table", "json", "yaml":
		return nil
	}
	return usageError{fmt.Errorf("unknown output format %q (want table, json or yaml)", format)}
}

// printResult writes data as indented JSON, YAML, or an aligned table drawn
// by table.
func printResult(w io.Writer, format string, data any, table func(*tabwriter.Writer)) error {
	switch strings.ToLower(format) {
	case "json":
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "yaml":
		b, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("formatting YAML: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
