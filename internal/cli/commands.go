package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/domain"
)

var (
	windowLines  int
	followWindow bool
	beforeLines  int
	afterLines   int
	jsonOutput   bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered log files",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := NewClient(apiAddr).GetFiles()
		if err != nil {
			return notRunning(err)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), files)
		}
		NewPrinter(cmd.OutOrStdout()).PrintFiles(files)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := NewClient(apiAddr).GetStatus()
		if err != nil {
			return notRunning(err)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), status)
		}
		NewPrinter(cmd.OutOrStdout()).PrintStatus(status)
		return nil
	},
}

var headCmd = &cobra.Command{
	Use:   "head <owner-id>",
	Short: "Show the first lines of a log file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWindow(cmd, args[0], domain.WindowHead)
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail <owner-id>",
	Short: "Show the last lines of a log file",
	Args:  cobra.ExactArgs(1),
	Long: `Show the last lines of a log file. With --follow, keep printing lines
as they are appended. The follow stream is opened before the window is read,
so a line appended in between may be printed twice but is never skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !followWindow {
			return runWindow(cmd, args[0], domain.WindowTail)
		}
		return runFollow(cmd, args[0])
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <expression>",
	Short: "Search all registered log files",
	Long: `Search every registered log file for a regular expression and print
each match with its surrounding lines. Matches are printed as "N:" and
context lines as "N-".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := SearchParams{Expression: args[0]}
		if cmd.Flags().Changed("before") {
			params.Before = &beforeLines
		}
		if cmd.Flags().Changed("after") {
			params.After = &afterLines
		}

		result, err := NewClient(apiAddr).Search(params)
		if err != nil {
			return notRunning(err)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		NewPrinter(cmd.OutOrStdout()).PrintSearch(result)
		return nil
	},
}

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rediscover log files now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := NewClient(apiAddr).Discover()
		if err != nil {
			return notRunning(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %d log files (%dms)\n", resp.Files, resp.DurationMS)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{headCmd, tailCmd} {
		c.Flags().IntVarP(&windowLines, "lines", "n", 0, "Number of lines (default: server setting)")
	}
	tailCmd.Flags().BoolVarP(&followWindow, "follow", "f", false, "Keep printing lines as they are appended")

	searchCmd.Flags().IntVarP(&beforeLines, "before", "B", 0, "Lines of context before each match (default: server setting)")
	searchCmd.Flags().IntVarP(&afterLines, "after", "A", 0, "Lines of context after each match (default: server setting)")

	for _, c := range []*cobra.Command{listCmd, statusCmd, searchCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw JSON response")
	}

	rootCmd.AddCommand(listCmd, statusCmd, headCmd, tailCmd, searchCmd, rescanCmd)
}

func runWindow(cmd *cobra.Command, ownerID string, mode domain.WindowMode) error {
	if windowLines < 0 {
		return fmt.Errorf("--lines must be positive, got %d", windowLines)
	}
	window, err := NewClient(apiAddr).GetWindow(ownerID, mode, windowLines)
	if err != nil {
		return notRunning(err)
	}
	NewPrinter(cmd.OutOrStdout()).PrintWindow(window)
	return nil
}

func runFollow(cmd *cobra.Command, ownerID string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := NewClient(apiAddr)
	stream, err := client.OpenFollow(ctx, ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return notRunning(err)
	}
	defer stream.Close()

	if err := runWindow(cmd, ownerID, domain.WindowTail); err != nil {
		return err
	}

	printer := NewPrinter(cmd.OutOrStdout())
	return stream.Each(func(event api.FollowLineResponse) {
		printer.PrintFollowLine(event)
	})
}

// notRunning adds a hint when the server could not be reached at all
func notRunning(err error) error {
	if _, ok := err.(*APIError); ok {
		return err
	}
	return fmt.Errorf("%w\nIs logan running at %s? Try 'logan serve' first", err, apiAddr)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
