package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/nexus-bootstrap/pkg/adapters/sqlite"
)

// HistoryMarkdown renders journal runs as a markdown table, most recent first.
func HistoryMarkdown(runs []sqlite.RunRecord) string {
	var b strings.Builder
	b.WriteString("# Bootstrap runs\n\n")
	if len(runs) == 0 {
		b.WriteString("_No runs recorded yet._\n")
		return b.String()
	}
	b.WriteString("| Started | Environment | Mode | Identity | Status | Error |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			cell(r.StartedAt), cell(r.Environment), cell(r.Mode), cell(r.Identity), cell(r.Status), cell(r.LastError))
	}
	return b.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// RunMarkdown renders one run and the commands it executed.
func RunMarkdown(run sqlite.RunRecord, cmds []sqlite.CommandRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", run.RunID)
	fmt.Fprintf(&b, "- **Status:** %s\n", cell(run.Status))
	fmt.Fprintf(&b, "- **Environment:** %s\n", cell(run.Environment))
	fmt.Fprintf(&b, "- **Identity:** %s %s\n", cell(run.Mode), cell(run.Identity))
	fmt.Fprintf(&b, "- **Binary:** %s\n", cell(run.Binary))
	fmt.Fprintf(&b, "- **Started:** %s\n", cell(run.StartedAt))
	fmt.Fprintf(&b, "- **Ended:** %s\n", cell(run.EndedAt))
	if run.LastError != "" {
		fmt.Fprintf(&b, "- **Error:** %s\n", cell(run.LastError))
	}

	b.WriteString("\n## Commands\n\n")
	if len(cmds) == 0 {
		b.WriteString("_No commands recorded._\n")
		return b.String()
	}
	b.WriteString("| Stage | Command | Exit | Duration | Notes |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "| %s | `%s` | %d | %dms | %s |\n",
			cell(c.Stage), code(c.Command), c.ExitCode, c.DurationMS, cell(notes(c)))
	}
	return b.String()
}

func notes(c sqlite.CommandRecord) string {
	var parts []string
	if c.TimedOut {
		parts = append(parts, "timed out")
	}
	if c.Tolerated {
		parts = append(parts, "tolerated")
	}
	return strings.Join(parts, ", ")
}

// code keeps a command inside an inline code span of a table cell.
func code(s string) string {
	s = strings.NewReplacer("`", "'", "\n", " ").Replace(s)
	return strings.ReplaceAll(s, "|", "\\|")
}
