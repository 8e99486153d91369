package cli

import (
	"github.com/spf13/cobra"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse, follow and search log files interactively",
	Long: `Open an interactive view of a running logan server.

The top panel lists registered files; the selected file shows its tail
and follows new lines. Press s to search all files and ? for help.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(apiAddr)
		if _, err := client.GetStatus(); err != nil {
			return notRunning(err)
		}
		return tui.Run(browseClient{client})
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

// browseClient adapts Client to the TUI, searching with the server's
// default context sizes.
type browseClient struct {
	*Client
}

func (c browseClient) Search(expression string) (*api.SearchResponse, error) {
	return c.Client.Search(SearchParams{Expression: expression})
}
