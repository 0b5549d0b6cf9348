package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/wpdeploy/internal/analysis"
	"github.com/bgdnvk/wpdeploy/internal/pipeline"
)

var runsCmd = &cobra.Command{
	Use:   "runs [workflow-name]",
	Short: "Show the latest run of the published workflow",
	Long: `Show the latest GitHub Actions run of the deployment workflow in the
session's repository. The workflow name defaults to the one publish generates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			s := a.engine.Session()
			owner, repo, ok := analysis.ParseGitHubURL(s.GitURL)
			if !ok {
				return fmt.Errorf("gitUrl %q is not a GitHub repository", s.GitURL)
			}

			name := pipeline.WorkflowName(s)
			if len(args) == 1 {
				name = args[0]
			}

			status, err := a.github.WorkflowStatus(ctx, owner, repo, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
