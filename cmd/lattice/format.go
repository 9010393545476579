package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// stdout receives query results; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// formatNamesText prints one type name per line.
func formatNamesText(w io.Writer, names []string) {
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}

// formatClassesText formats CLIClass results as aligned columns.
func formatClassesText(w io.Writer, classes []CLIClass) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMODIFIERS\tFILE\tLINE")
	for _, c := range classes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			c.Name, c.Kind, strings.Join(c.Modifiers, " "), c.File, c.Line)
	}
	tw.Flush()
}

func formatStatsText(w io.Writer, s CLIStats) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files:      %d\n", s.Files)
	fmt.Fprintf(w, "Classes:    %d (%d interfaces)\n", s.Classes, s.Interfaces)
	fmt.Fprintf(w, "Supertypes: %d (%d unresolved)\n", s.Supertypes, s.Unresolved)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(result CLIResult) error {
	w := stdout

	switch v := result.Results.(type) {
	case CLIAnswer:
		fmt.Fprintln(w, v.Result)
	case []string:
		formatNamesText(w, v)
	case []CLIClass:
		formatClassesText(w, v)
	case CLIStats:
		formatStatsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []string:
		return len(r)
	case []CLIClass:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
