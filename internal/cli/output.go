package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Table renders data as a formatted table.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{
		headers: headers,
		writer:  w,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.headers, "\t"))

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput prints data as json or yaml. Table output is built by the
// caller.
func printOutput(w io.Writer, format string, data interface{}) error {
	switch format {
	case "yaml":
		return printYAML(w, data)
	default:
		return printJSON(w, data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printYAML goes through JSON first so yaml keys match the json tags.
func printYAML(w io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatOutcome returns an outcome string with visual indicator.
func formatOutcome(outcome string) string {
	switch outcome {
	case "success":
		return "[+] " + outcome
	case "client-error":
		return "[~] " + outcome
	case "server-error":
		return "[-] " + outcome
	default:
		return outcome
	}
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

func formatFailures(failed map[string]string) string {
	if len(failed) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s (%s)", id, truncate(failed[id], 60)))
	}
	return strings.Join(parts, ", ")
}
