package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// HostsMarkdown renders the latest heartbeat of each supervised host.
func HostsMarkdown(beats []ports.Heartbeat, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Supervised nodes\n\n")
	if len(beats) == 0 {
		b.WriteString("_No live heartbeats._\n")
		return b.String()
	}
	b.WriteString("| Host | Environment | Mode | Node | Beats | Last seen |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, hb := range beats {
		node := "down"
		if hb.ChildAlive {
			node = fmt.Sprintf("up (pid %d)", hb.ChildPid)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s ago |\n",
			cell(hb.Host), cell(hb.Environment), cell(string(hb.Mode)), node, hb.Beat,
			now.Sub(hb.At).Round(time.Second))
	}
	return b.String()
}
