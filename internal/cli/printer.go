package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/logs"
)

const noResultsMessage = "No results found for search expression"

// Printer renders API responses for the terminal. Styles come from a
// renderer bound to the output, so nothing is colored when the output is
// not a terminal.
type Printer struct {
	out       io.Writer
	match     lipgloss.Style
	header    lipgloss.Style
	lineNo    lipgloss.Style
	separator lipgloss.Style
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:       out,
		match:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		lineNo:    r.NewStyle().Foreground(lipgloss.Color("10")),
		separator: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// PrintFiles prints the registered files as a table
func (p *Printer) PrintFiles(resp *api.FileListResponse) {
	if len(resp.Files) == 0 {
		fmt.Fprintln(p.out, "No log files registered")
		return
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER ID\tNAME\tSIZE\tPATH")
	fmt.Fprintln(w, "--------\t----\t----\t----")
	for _, f := range resp.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(f.OwnerID), f.Name, formatBytes(f.SizeBytes), f.Path)
	}
	w.Flush()
}

// PrintWindow prints the lines of a head or tail window
func (p *Printer) PrintWindow(resp *api.WindowResponse) {
	for _, line := range resp.Lines {
		fmt.Fprintln(p.out, line)
	}
}

// PrintFollowLine prints one followed line
func (p *Printer) PrintFollowLine(event api.FollowLineResponse) {
	fmt.Fprintln(p.out, event.Line)
}

// PrintSearch prints search results grep style: match lines as "N:" and
// context lines as "N-", with "--" between windows.
func (p *Printer) PrintSearch(resp *api.SearchResponse) {
	if resp.TotalMatches == 0 {
		fmt.Fprintln(p.out, noResultsMessage)
		return
	}

	for i, file := range resp.Files {
		if i > 0 {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, p.header.Render(fmt.Sprintf("==> %s (%s) <==", file.Name, shortID(file.OwnerID))))

		for j, m := range file.Matches {
			if j > 0 {
				fmt.Fprintln(p.out, p.separator.Render("--"))
			}
			for _, c := range m.Context {
				sep := "-"
				text := c.Text
				if c.IsMatch {
					sep = ":"
					text = logs.Render(c.Text, c.Highlights, func(s string) string { return p.match.Render(s) })
				}
				fmt.Fprintf(p.out, "%s%s%s\n", p.lineNo.Render(fmt.Sprintf("%d", c.LineNumber)), sep, text)
			}
		}
	}

	fmt.Fprintf(p.out, "\n%d matches in %d files\n", resp.TotalMatches, len(resp.Files))
}

// PrintStatus prints the server status
func (p *Printer) PrintStatus(status *api.StatusResponse) {
	fmt.Fprintf(p.out, "Status: %s\n", status.Status)
	fmt.Fprintf(p.out, "Uptime: %s\n", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	if status.ConfigFile != "" {
		fmt.Fprintf(p.out, "Config: %s\n", status.ConfigFile)
	}
	fmt.Fprintf(p.out, "Files: %d (%s)\n", status.Files, formatBytes(status.TotalBytes))
	if status.LastDiscovery != "" {
		fmt.Fprintf(p.out, "Last discovery: %s\n", status.LastDiscovery)
	}
	fmt.Fprintf(p.out, "Followers: %d\n", status.Followers)
	for _, root := range status.Roots {
		fmt.Fprintf(p.out, "Root: %s\n", root)
	}
}

// shortID abbreviates container-style hex ids to 12 characters
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
