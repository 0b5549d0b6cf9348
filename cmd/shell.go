package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/wpdeploy/internal/pipeline"
)

const shellHelp = `Commands:
  status                     show the session
  set <field> [value]        change a field
  next | back                move between steps
  undo                       revert the last change
  analyze | connect          inspect the repository or the site
  save                       save to the registry
  publish [file|-]           generate the workflow (review step)
  logs [errors]              show the log, newest first
  registry list|clear        browse or empty the registry
  registry load <name>       load a saved configuration
  reset                      start over (clears undo)
  exit`

var errQuit = errors.New("quit")

// shellCmd keeps one engine alive across commands so undo history is
// available. One-shot commands start with an empty history.
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run the wizard interactively with undo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runShell(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

func runShell(ctx context.Context, a *app, in io.Reader, w io.Writer) error {
	fmt.Fprintln(w, "wpdeploy shell. Type help for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(w, "[step %d] > ", a.engine.Session().CurrentStep)
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		err := dispatch(ctx, a, fields, w)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(w, color.RedString("Error: %v", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func dispatch(ctx context.Context, a *app, fields []string, w io.Writer) error {
	name, args := fields[0], fields[1:]
	switch name {
	case "exit", "quit":
		return errQuit
	case "help", "?":
		fmt.Fprintln(w, shellHelp)
		return nil
	case "status":
		return runStatus(ctx, a, w)
	case "set":
		if len(args) == 0 {
			return errors.New("usage: set <field> [value]")
		}
		return runSet(ctx, a, args, w)
	case "next":
		return runNext(ctx, a, w)
	case "back":
		return runBack(ctx, a, w)
	case "undo":
		return runUndo(ctx, a, w)
	case "analyze":
		return runAnalyze(ctx, a, w)
	case "connect":
		return runConnect(ctx, a, w)
	case "save":
		return runSave(ctx, a, w)
	case "reset":
		return runReset(ctx, a, w)
	case "publish":
		output := pipeline.DefaultPath
		if len(args) > 0 {
			output = args[0]
		}
		return runPublish(ctx, a, output, w)
	case "logs":
		return runLogs(ctx, a, len(args) > 0 && args[0] == "errors", w)
	case "registry":
		if len(args) == 0 {
			return runRegistryList(ctx, a, w)
		}
		switch args[0] {
		case "list":
			return runRegistryList(ctx, a, w)
		case "clear":
			return runRegistryClear(ctx, a, w)
		case "load":
			if len(args) < 2 {
				return errors.New("usage: registry load <name>")
			}
			return runRegistryLoad(ctx, a, args[1], w)
		}
		return fmt.Errorf("unknown registry command %q", args[0])
	}
	return fmt.Errorf("unknown command %q (type help)", name)
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
