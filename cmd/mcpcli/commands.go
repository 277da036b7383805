package main

import (
	"context"
	"encoding/json"
	"fmt"
	"bytes"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mcp-client/client"
	"mcp-client/message"
	"mcp-client/transport"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				return c.ListWorkflows(ctx)
			}, printWorkflows)
		},
	}
}

func newSearchCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Search the full workflow catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				return c.SearchWorkflows(ctx)
			}, printWorkflows)
		},
	}
}

func newAddCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "add <workflow-ids>",
		Short: "Add workflow id(s), comma-separated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				return c.AddWorkflow(ctx, args[0])
			}, printResponse)
		},
	}
}

func newRemoveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <workflow-ids>",
		Short: "Remove workflow id(s), comma-separated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				return c.RemoveWorkflow(ctx, args[0])
			}, printResponse)
		},
	}
}

func newExecuteCmd(v *viper.Viper) *cobra.Command {
	var rawParams []string
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "execute <workflow-id>",
		Short: "Execute a workflow",
		Long: `Execute a workflow with parameters.

Parameters can be given as --param key=value pairs, coerced against the
parameter schema the server advertises for the workflow, or as one JSON
object via --params-json (which skips coercion).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				params, err := buildParameters(ctx, c, args[0], rawParams, paramsJSON)
				if err != nil {
					return nil, err
				}
				return c.ExecuteWorkflow(ctx, args[0], params)
			}, printResponse)
		},
	}

	cmd.Flags().StringArrayVar(&rawParams, "param", nil, "parameter as key=value, repeatable")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "all parameters as one JSON object")
	return cmd
}

func newCustomCmd(v *viper.Viper) *cobra.Command {
	var dataJSON string

	cmd := &cobra.Command{
		Use:   "custom <name>",
		Short: "Send a custom command with a verbatim JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data any
			if dataJSON != "" {
				if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
					return fmt.Errorf("invalid --data JSON: %w", err)
				}
			}
			return withClient(cmd, v, func(ctx context.Context, c *client.Client) (*message.Reply, error) {
				return c.CustomCommand(ctx, args[0], data)
			}, printResponse)
		},
	}

	cmd.Flags().StringVar(&dataJSON, "data", "", "payload as a JSON value")
	return cmd
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient(v)
			if err != nil {
				return err
			}
			defer c.Close()

			kind := v.GetString("transport")
			if strings.EqualFold(kind, "websocket") || strings.EqualFold(kind, "ws") {
				c.Connect()
				// Give the handshake a moment before reading the state.
				deadline := time.Now().Add(5 * time.Second)
				for c.State() == transport.StateConnecting && time.Now().Before(deadline) {
					time.Sleep(100 * time.Millisecond)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transport: %s\nstate:     %s\n", kind, c.State())
			return nil
		},
	}
}

// withClient builds a client, runs one call with a bounded context, renders
// the reply and tears the client down. Application errors inside a reply
// surface as command errors so the exit code reflects them.
func withClient(cmd *cobra.Command, v *viper.Viper,
	call func(ctx context.Context, c *client.Client) (*message.Reply, error),
	render func(cmd *cobra.Command, reply *message.Reply) error) error {

	c, _, err := newClient(v)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(v))
	defer cancel()

	reply, err := call(ctx, c)
	if err != nil {
		return err
	}
	if err := reply.Err(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return render(cmd, reply)
}

// buildParameters assembles the execute payload. --params-json wins when
// given; otherwise key=value pairs are coerced against the schema fetched
// from the server's workflow listing.
func buildParameters(ctx context.Context, c *client.Client, workflowID string, rawParams []string, paramsJSON string) (map[string]any, error) {
	if paramsJSON != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return nil, fmt.Errorf("invalid --params-json: %w", err)
		}
		return params, nil
	}
	if len(rawParams) == 0 {
		return nil, nil
	}

	schema := fetchSchema(ctx, c, workflowID)

	params := make(map[string]any, len(rawParams))
	for _, raw := range rawParams {
		key, value, found := strings.Cut(raw, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", raw)
		}
		spec := schema.Properties[key] // zero spec coerces to string
		coerced, err := spec.Coerce(value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		params[key] = coerced
	}
	return params, nil
}

// fetchSchema looks the workflow up in the server's listing. Any failure
// degrades to an empty schema: parameters then travel as plain strings.
func fetchSchema(ctx context.Context, c *client.Client, workflowID string) client.ParameterSchema {
	reply, err := c.ListWorkflows(ctx)
	if err != nil || reply.Error != "" {
		return client.ParameterSchema{}
	}
	var workflows []message.Workflow
	if err := reply.DecodeResponse(&workflows); err != nil {
		return client.ParameterSchema{}
	}
	for _, wf := range workflows {
		if wf.ID == workflowID {
			return client.ParseParameterSchema(wf.Parameters)
		}
	}
	return client.ParameterSchema{}
}

func printWorkflows(cmd *cobra.Command, reply *message.Reply) error {
	var workflows []message.Workflow
	if err := reply.DecodeResponse(&workflows); err != nil {
		// Not every server returns the standard shape; fall back to raw JSON.
		return printResponse(cmd, reply)
	}
	if len(workflows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no workflows")
		return nil
	}
	for _, wf := range workflows {
		active := " "
		if wf.Active {
			active = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-24s %s\n", active, wf.ID, wf.Name)
	}
	return nil
}

func printResponse(cmd *cobra.Command, reply *message.Reply) error {
	if len(reply.Response) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, reply.Response, "", "  "); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(reply.Response))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return nil
}
