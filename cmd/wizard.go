package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/wpdeploy/internal/cli"
	"github.com/bgdnvk/wpdeploy/internal/pipeline"
	"github.com/bgdnvk/wpdeploy/internal/registry"
	"github.com/bgdnvk/wpdeploy/internal/session"
	"github.com/bgdnvk/wpdeploy/internal/wizard"
)

func runStatus(_ context.Context, a *app, w io.Writer) error {
	printSession(w, a.engine.Session(), a.engine.ConnectionError())
	return nil
}

func runSet(_ context.Context, a *app, args []string, w io.Writer) error {
	value := ""
	if len(args) > 1 {
		value = strings.Join(args[1:], " ")
	}
	s, err := a.engine.Set(args[0], value)
	if err != nil {
		if errors.Is(err, wizard.ErrUnknownField) {
			return fmt.Errorf("%w (fields: %s)", err, strings.Join(wizard.Fields(), ", "))
		}
		return err
	}
	fmt.Fprintf(w, "%s = %q\n", args[0], value)
	if args[0] == "gitUrl" || args[0] == "target" {
		fmt.Fprintf(w, "target %s %s at %s\n", s.Target, s.TargetName, s.RemoteBase)
	}
	return nil
}

func runNext(ctx context.Context, a *app, w io.Writer) error {
	s := a.engine.Next(ctx)
	printSession(w, s, a.engine.ConnectionError())
	return nil
}

func runBack(_ context.Context, a *app, w io.Writer) error {
	s := a.engine.Back()
	printSession(w, s, a.engine.ConnectionError())
	return nil
}

func runUndo(_ context.Context, a *app, w io.Writer) error {
	s, ok := a.engine.Undo()
	if !ok {
		fmt.Fprintln(w, "Nothing to undo.")
		return nil
	}
	fmt.Fprintf(w, "Undone. %d more step(s) available.\n", a.engine.HistoryLen())
	printSession(w, s, a.engine.ConnectionError())
	return nil
}

// printNewLogs shows the entries appended since the session had n logs.
func printNewLogs(w io.Writer, s session.Session, n int) {
	if n > len(s.Logs) {
		n = 0
	}
	printLogs(w, s.Logs[n:])
}

func runAnalyze(ctx context.Context, a *app, w io.Writer) error {
	before := a.engine.Session()
	if before.GitURL == "" {
		return errors.New("set gitUrl first")
	}
	s := a.engine.Analyze(ctx)
	printNewLogs(w, s, len(before.Logs))
	fmt.Fprintf(w, "\nIdentified as %s (%s / %s)\n", color.CyanString(string(s.Target)), s.RepoDetails.Language, s.RepoDetails.Framework)
	return nil
}

func runConnect(ctx context.Context, a *app, w io.Writer) error {
	before := a.engine.Session()
	if before.WpURL == "" {
		return errors.New("set wpUrl first")
	}
	s := a.engine.TestConnection(ctx)
	printNewLogs(w, s, len(before.Logs))
	if msg := a.engine.ConnectionError(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func runReset(_ context.Context, a *app, w io.Writer) error {
	a.engine.Reset()
	fmt.Fprintln(w, "Started over from a fresh session. The registry was not touched.")
	return nil
}

func runSave(ctx context.Context, a *app, w io.Writer) error {
	before := a.engine.Session()
	s, saved := a.engine.SaveProfile(ctx)
	if !saved {
		printNewLogs(w, s, len(before.Logs))
		return errors.New("configuration was not saved")
	}
	fmt.Fprintf(w, "%s saved as %s\n", color.GreenString("✓"), s.TargetName)
	return nil
}

func runPublish(ctx context.Context, a *app, output string, w io.Writer) error {
	before := a.engine.Session()
	s, artifact, err := a.engine.Publish(ctx)
	if err != nil {
		return err
	}
	if output == "-" {
		_, err := w.Write(artifact)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(output, artifact, 0o644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}
	printNewLogs(w, s, len(before.Logs))
	fmt.Fprintf(w, "\nWorkflow written to %s\n", output)
	fmt.Fprintf(w, "Add these repository secrets: %s, %s, %s and %s\n",
		pipeline.SecretHost, pipeline.SecretUser, credentialSecret(s), pipeline.SecretPort)
	return nil
}

func credentialSecret(s session.Session) string {
	if s.Protocol == session.ProtocolSFTP && s.AuthType == session.AuthSSHKey {
		return pipeline.SecretPrivateKey
	}
	return pipeline.SecretPassword
}

func runLogs(_ context.Context, a *app, errorsOnly bool, w io.Writer) error {
	filter := session.FilterAll
	if errorsOnly {
		filter = session.FilterErrors
	}
	printLogs(w, session.FilterLogs(a.engine.Session().Logs, filter))
	return nil
}

func runRegistryList(ctx context.Context, a *app, w io.Writer) error {
	list, err := a.engine.Registry(ctx)
	if errors.Is(err, registry.ErrCorrupt) {
		fmt.Fprintln(w, color.YellowString("Registry was unreadable and will be replaced on the next save."))
	} else if err != nil {
		return err
	}
	printRegistry(w, list)
	return nil
}

func runRegistryLoad(ctx context.Context, a *app, name string, w io.Writer) error {
	s, err := a.engine.LoadEntry(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Loaded %s.\n", name)
	printSession(w, s, "")
	return nil
}

func runRegistryClear(ctx context.Context, a *app, w io.Writer) error {
	if err := a.engine.ClearRegistry(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "Registry cleared.")
	return nil
}

// simpleCommand builds a command that runs fn against the saved session.
func simpleCommand(use, short string, fn func(ctx context.Context, a *app, w io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return fn(ctx, a, cmd.OutOrStdout())
			})
		},
	}
}

var setCmd = &cobra.Command{
	Use:   "set <field> [value]",
	Short: "Change one field of the session",
	Long: `Change one field of the session. Field names match the saved session,
for example gitUrl, wpUrl, ftpHost, target, remoteBase or dryRun.
Leaving out the value clears a text field.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runSet(ctx, a, args, cmd.OutOrStdout())
		})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Generate the deployment workflow (review step only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		yes, _ := cmd.Flags().GetBool("yes")
		if output != "-" && !yes {
			if _, err := os.Stat(output); err == nil {
				ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("%s exists. Overwrite?", output))
				if err != nil || !ok {
					return err
				}
			}
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runPublish(ctx, a, output, cmd.OutOrStdout())
		})
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the session log, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		errorsOnly, _ := cmd.Flags().GetBool("errors")
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runLogs(ctx, a, errorsOnly, cmd.OutOrStdout())
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current session and start over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Discard the current session?")
			if err != nil || !ok {
				return err
			}
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runReset(ctx, a, cmd.OutOrStdout())
		})
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage saved configurations",
}

var registryLoadCmd = &cobra.Command{
	Use:   "load <target-name>",
	Short: "Replace the session with a saved configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runRegistryLoad(ctx, a, args[0], cmd.OutOrStdout())
		})
	},
}

var registryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every saved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Remove every saved configuration?")
			if err != nil || !ok {
				return err
			}
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			return runRegistryClear(ctx, a, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(simpleCommand("status", "Show the current session", runStatus))
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(simpleCommand("next", "Go to the next wizard step", runNext))
	rootCmd.AddCommand(simpleCommand("back", "Go to the previous wizard step", runBack))
	rootCmd.AddCommand(simpleCommand("analyze", "Inspect the repository and pick a target", runAnalyze))
	rootCmd.AddCommand(simpleCommand("connect", "Check the WordPress site's REST API", runConnect))
	rootCmd.AddCommand(simpleCommand("save", "Save the session to the registry", runSave))
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(simpleCommand("list", "List saved configurations", runRegistryList))
	registryCmd.AddCommand(registryClearCmd)
	registryCmd.AddCommand(registryLoadCmd)

	publishCmd.Flags().StringP("output", "o", pipeline.DefaultPath, "where to write the workflow (- for stdout)")
	publishCmd.Flags().BoolP("yes", "y", false, "overwrite an existing workflow without asking")
	logsCmd.Flags().Bool("errors", false, "only show errors")
	registryClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	resetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
