package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

// version is reported to MCP clients.
var version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the wizard as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout. Each wizard action
is a tool; the session lives for as long as the server runs, so undo works
across calls.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			s := server.NewMCPServer("wpdeploy", version)
			registerTools(s, a)
			return server.ServeStdio(s)
		})
	},
}

type toolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

func objectSchema(props map[string]interface{}, required ...string) mcp.ToolInputSchema {
	if props == nil {
		props = map[string]interface{}{}
	}
	return mcp.ToolInputSchema{Type: "object", Properties: props, Required: required}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func jsonResult(v interface{}, isError bool) *mcp.CallToolResult {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		buf = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
		isError = true
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(buf)}},
		IsError: isError,
	}
}

func addTool(s *server.MCPServer, tool mcp.Tool, fn toolHandler) {
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := fn(ctx, req.GetArguments())
		if err != nil {
			return jsonResult(map[string]interface{}{"success": false, "error": err.Error()}, true), nil
		}
		return jsonResult(out, false), nil
	})
}

// redacted hides the transfer secret from tool output.
func redacted(s session.Session) session.Session {
	if s.FtpPassword != "" {
		s.FtpPassword = masked(s.FtpPassword)
	}
	return s
}

// lastError is the details of the newest error entry in the session log.
func lastError(s session.Session) string {
	errs := session.FilterLogs(s.Logs, session.FilterErrors)
	if len(errs) == 0 {
		return "unknown error"
	}
	return errs[0].Details
}

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func registerTools(s *server.MCPServer, a *app) {
	e := a.engine
	sessionOnly := func(fn func(ctx context.Context) session.Session) toolHandler {
		return func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
			return redacted(fn(ctx)), nil
		}
	}

	addTool(s, mcp.Tool{
		Name:        "wizard_status",
		Description: "Return the current deployment session.",
		InputSchema: objectSchema(nil),
	}, sessionOnly(func(context.Context) session.Session { return e.Session() }))

	addTool(s, mcp.Tool{
		Name:        "wizard_set",
		Description: "Change one session field, e.g. gitUrl, wpUrl, ftpHost, target, remoteBase, dryRun.",
		InputSchema: objectSchema(map[string]interface{}{
			"field": stringProp("Field name as it appears in the session JSON"),
			"value": stringProp("New value; booleans as true/false"),
		}, "field"),
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		sess, err := e.Set(argString(args, "field"), argString(args, "value"))
		if err != nil {
			return nil, err
		}
		return redacted(sess), nil
	})

	addTool(s, mcp.Tool{
		Name:        "wizard_next",
		Description: "Advance one wizard step. Entering the analysis step analyzes the repository once.",
		InputSchema: objectSchema(nil),
	}, sessionOnly(e.Next))

	addTool(s, mcp.Tool{
		Name:        "wizard_back",
		Description: "Go back one wizard step.",
		InputSchema: objectSchema(nil),
	}, sessionOnly(func(context.Context) session.Session { return e.Back() }))

	addTool(s, mcp.Tool{
		Name:        "wizard_undo",
		Description: "Revert the most recent change.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		sess, ok := e.Undo()
		return map[string]interface{}{"undone": ok, "remaining": e.HistoryLen(), "session": redacted(sess)}, nil
	})

	addTool(s, mcp.Tool{
		Name:        "analyze_repository",
		Description: "Inspect the session's repository and pick a deployment target.",
		InputSchema: objectSchema(nil),
	}, sessionOnly(e.Analyze))

	addTool(s, mcp.Tool{
		Name:        "test_connection",
		Description: "Check the WordPress site's REST API index.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		sess := e.TestConnection(ctx)
		return map[string]interface{}{"connection": sess.WpConnection, "error": e.ConnectionError()}, nil
	})

	addTool(s, mcp.Tool{
		Name:        "save_profile",
		Description: "Save the session to the registry.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		sess, saved := e.SaveProfile(ctx)
		if !saved {
			return nil, errors.New("configuration was not saved: " + lastError(sess))
		}
		return map[string]interface{}{"success": true, "targetName": sess.TargetName}, nil
	})

	addTool(s, mcp.Tool{
		Name:        "publish_pipeline",
		Description: "Render the GitHub Actions deployment workflow. Only available on the review step.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		sess, artifact, err := e.Publish(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"success": true, "targetName": sess.TargetName, "workflow": string(artifact)}, nil
	})

	addTool(s, mcp.Tool{
		Name:        "session_logs",
		Description: "Return the session log, newest first.",
		InputSchema: objectSchema(map[string]interface{}{
			"filter": stringProp("all or error"),
		}),
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		filter := session.FilterAll
		if argString(args, "filter") == string(session.FilterErrors) {
			filter = session.FilterErrors
		}
		return session.FilterLogs(e.Session().Logs, filter), nil
	})

	addTool(s, mcp.Tool{
		Name:        "registry_list",
		Description: "List saved configurations, most recent first.",
		InputSchema: objectSchema(nil),
	}, func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		list, err := e.Registry(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]map[string]string, 0, len(list))
		for _, entry := range list {
			names = append(names, map[string]string{
				"targetName": entry.TargetName,
				"target":     string(entry.Target),
				"gitUrl":     entry.GitURL,
				"remoteBase": entry.RemoteBase,
			})
		}
		return names, nil
	})

	addTool(s, mcp.Tool{
		Name:        "registry_load",
		Description: "Replace the session with a saved configuration. Can be undone.",
		InputSchema: objectSchema(map[string]interface{}{
			"targetName": stringProp("Target name of the saved configuration"),
		}, "targetName"),
	}, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		sess, err := e.LoadEntry(ctx, argString(args, "targetName"))
		if err != nil {
			return nil, err
		}
		return redacted(sess), nil
	})
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
