package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jward/slicer/internal/store"
)

var heading = color.New(color.Bold)

// outputResult writes a CLIResult in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// formatEntitiesText formats CLIEntity results as aligned columns.
func formatEntitiesText(w io.Writer, ents []CLIEntity) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tFQN\tMODIFIERS\tFILE\tOFFSET")
	for _, e := range ents {
		offset := "-"
		if e.Offset != nil {
			offset = fmt.Sprintf("%d+%d", *e.Offset, derefInt(e.Length))
		}
		file := e.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Kind, e.FQN, strings.Join(e.Modifiers, " "), file, offset)
	}
	tw.Flush()
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tPATH")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", f.ID, f.ProjectID, f.Path)
	}
	tw.Flush()
}

func formatLoadsText(w io.Writer, loads []CLILoad) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPROJECTS\tFILES\tENTITIES\tRELATIONS\tIMPORTS")
	for _, l := range loads {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			l.File, l.Projects, l.Files, l.Entities, l.Relations, l.Imports)
	}
	tw.Flush()
}

// formatSliceText formats one slice as a short report.
func formatSliceText(w io.Writer, s CLISlice) {
	heading.Fprintf(w, "Slice of %s\n", joinIDs(s.Seeds))
	fmt.Fprintf(w, "Projects: %d\n", s.Summary.Projects)
	fmt.Fprintf(w, "Internal: %d\n", s.Summary.Internal)
	fmt.Fprintf(w, "External: %d\n", s.Summary.External)
	fmt.Fprintf(w, "Files:    %d\n", s.Summary.Files)
	fmt.Fprintf(w, "Types:    %d\n", s.Summary.Types)
	if s.Archive != "" {
		fmt.Fprintf(w, "Archive:  %s (%d files)\n", s.Archive, s.ArchiveFiles)
	}
}

func formatStatsText(w io.Writer, st *store.Stats) {
	heading.Fprintln(w, "Fact Store")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Projects:\t%d\n", st.Projects)
	fmt.Fprintf(tw, "Files:\t%d\n", st.Files)
	fmt.Fprintf(tw, "Entities:\t%d\n", st.Entities)
	fmt.Fprintf(tw, "Relations:\t%d\n", st.Relations)
	fmt.Fprintf(tw, "Imports:\t%d\n", st.Imports)
	tw.Flush()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIEntity:
		formatEntitiesText(w, v)
	case CLIEntity:
		formatEntitiesText(w, []CLIEntity{v})
	case []CLIFile:
		formatFilesText(w, v)
	case []CLILoad:
		formatLoadsText(w, v)
	case CLISlice:
		formatSliceText(w, v)
	case []CLISlice:
		for i, s := range v {
			if i > 0 {
				fmt.Fprintln(w)
			}
			formatSliceText(w, s)
		}
	case *store.Stats:
		formatStatsText(w, v)
	case CLIInit:
		fmt.Fprintf(w, "Initialized %s database %s\n", v.Driver, v.Database)
	case CLIMirror:
		fmt.Fprintf(w, "Uploaded %d files\n", v.Uploaded)
		for _, m := range v.Missing {
			fmt.Fprintf(w, "  missing: %s\n", m)
		}
	case nil:
		// No output for nil results (e.g., entity with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

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
	case []CLIEntity:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLILoad:
		return len(r)
	case []CLISlice:
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
