package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/charliek/logan/internal/config"
	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/domain"
	"github.com/charliek/logan/internal/runstate"
)

// Version is set during build
var Version = "dev"

// Global flags
var (
	configPath string
	apiAddr    string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "logan",
	Short: "Browse and search container log files",
	Long: `logan discovers log files below a set of directories, resolves each
file's owner to a display name and serves them over a local HTTP API:
  - Head and tail windows of a registered file
  - Regular expression search with before/after context
  - Live follow of a registered file
  - Automatic rediscovery when files appear or disappear`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Client commands talk to a running server; find it unless --addr was given
		clientCommands := map[string]bool{
			"list":   true,
			"head":   true,
			"tail":   true,
			"search": true,
			"rescan": true,
			"status": true,
			"browse": true,
		}
		if clientCommands[cmd.Name()] && !cmd.Flags().Changed("addr") {
			apiAddr = discoverAPIAddress()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logan version %s\n", Version)
	},
}

func init() {
	// Persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: logan.yaml, logan.yml or logan.toml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", constants.DefaultAPIAddress, "API address for client commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Set version template
	rootCmd.SetVersionTemplate("logan version {{.Version}}\n")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// resolveConfigPath returns the --config value, or the first config file
// found in the working directory.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.FindConfigFile()
}

// loadConfig loads the configuration file. Without a file, the
// configuration is built from LOGAN_ environment variables alone.
func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if errors.Is(err, domain.ErrConfigNotFound) && configPath == "" {
		return config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// loadAPIAddrFromConfig attempts to read the API address from the config file.
// Returns empty string if config doesn't exist or can't be read.
func loadAPIAddrFromConfig() string {
	path, err := resolveConfigPath()
	if err != nil {
		return ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "" // Config doesn't exist or is invalid, use default
	}

	host := cfg.API.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = constants.DefaultAPIHost
	}
	port := cfg.API.Port
	if port == 0 {
		port = constants.DefaultAPIPort
	}

	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// discoverAPIAddress attempts to discover the API address.
// Priority:
// 1. LOGAN_ADDR environment variable
// 2. State file (.logan/logan.state) - for a server running from this directory
// 3. Config file (logan.yaml) - for configured host and port
// 4. Default address
func discoverAPIAddress() string {
	if addr := os.Getenv(constants.EnvPrefix + "ADDR"); addr != "" {
		return addr
	}

	if state, err := runstate.Running(""); err == nil {
		return state.Address()
	}

	if addr := loadAPIAddrFromConfig(); addr != "" {
		return addr
	}

	return constants.DefaultAPIAddress
}
