package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mcp-client/message"
	"mcp-client/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	var addr string
	var seed []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a stub MCP server for local development",
		Long: `Run a stub MCP workflow server speaking the client's wire contract on
both bindings: POST / for HTTP and a WebSocket upgrade on the same path.
Workflow execution is an echo stub.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv := server.New(server.Options{
				APIKey: v.GetString("api_key"),
				Logger: logger,
			})
			for _, id := range seed {
				srv.Seed(message.Workflow{ID: id, Name: id, Active: true})
			}

			mux := http.NewServeMux()
			mux.Handle("/", srv)
			mux.Handle("/metrics", promhttp.Handler())

			fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":5678", "listen address")
	cmd.Flags().StringSliceVar(&seed, "seed", nil, "workflow ids to preload")
	return cmd
}
