// mcpcli is a command-line consumer of the MCP workflow client. It is the
// presentation layer of this repo: every subcommand maps onto one client
// operation and renders whatever reply or error comes back.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "mcpcli",
		Short: "MCP workflow client",
		Long: `mcpcli talks to an MCP workflow-automation server.

Client commands:
  mcpcli list                     List available workflows
  mcpcli search                   Search the full workflow catalog
  mcpcli add <ids>                Add workflow id(s), comma-separated
  mcpcli remove <ids>             Remove workflow id(s), comma-separated
  mcpcli execute <id>             Execute a workflow with parameters
  mcpcli custom <name>            Send a custom command
  mcpcli status                   Show connection status

Local development:
  mcpcli serve                    Run a stub MCP server`,
	}

	rootCmd.PersistentFlags().String("server-url", "http://localhost:5678/api/mcp", "MCP server URL")
	_ = v.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server-url"))

	rootCmd.PersistentFlags().String("api-key", "", "bearer credential, if the server requires one")
	_ = v.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))

	rootCmd.PersistentFlags().StringP("transport", "t", "http", "transport kind (http, websocket)")
	_ = v.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))

	rootCmd.PersistentFlags().Duration("timeout", 0, "per-call timeout (default 30s)")
	_ = v.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.PersistentFlags().Int("max-retries", 3, "additional HTTP attempts after the first")
	_ = v.BindPFlag("max_retries", rootCmd.PersistentFlags().Lookup("max-retries"))

	rootCmd.PersistentFlags().Duration("retry-delay", 0, "sleep between HTTP attempts (default 1s)")
	_ = v.BindPFlag("retry_delay", rootCmd.PersistentFlags().Lookup("retry-delay"))

	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("config", "", "config file (YAML)")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().StringSlice("etcd", nil, "etcd endpoints for server discovery (optional)")
	_ = v.BindPFlag("etcd", rootCmd.PersistentFlags().Lookup("etcd"))

	rootCmd.PersistentFlags().String("cluster", "default", "registry cluster name, used with --etcd")
	_ = v.BindPFlag("cluster", rootCmd.PersistentFlags().Lookup("cluster"))

	rootCmd.AddCommand(newListCmd(v))
	rootCmd.AddCommand(newSearchCmd(v))
	rootCmd.AddCommand(newAddCmd(v))
	rootCmd.AddCommand(newRemoveCmd(v))
	rootCmd.AddCommand(newExecuteCmd(v))
	rootCmd.AddCommand(newCustomCmd(v))
	rootCmd.AddCommand(newStatusCmd(v))
	rootCmd.AddCommand(newServeCmd(v))

	return rootCmd.ExecuteContext(context.Background())
}
