// Package pipeline renders a finished session as a GitHub Actions workflow
// that mirrors the repository to the WordPress host with lftp.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

// DefaultPath is where the workflow belongs inside the source repository.
const DefaultPath = ".github/workflows/wp-deploy.yml"

// Secret names the workflow expects in the repository settings. Credential
// values never appear in the rendered file.
const (
	SecretHost       = "FTP_HOST"
	SecretUser       = "FTP_USER"
	SecretPassword   = "FTP_PASSWORD"
	SecretPort       = "FTP_PORT"
	SecretPrivateKey = "SSH_PRIVATE_KEY"
)

var ErrNoTargetName = errors.New("target name is required for theme, plugin and custom deployments")

type workflow struct {
	Name string         `yaml:"name"`
	On   triggers       `yaml:"on"`
	Jobs map[string]job `yaml:"jobs"`
}

type triggers struct {
	Push             push     `yaml:"push"`
	WorkflowDispatch struct{} `yaml:"workflow_dispatch"`
}

type push struct {
	Branches []string `yaml:"branches,flow"`
}

type job struct {
	RunsOn string            `yaml:"runs-on"`
	Env    map[string]string `yaml:"env,omitempty"`
	Steps  []step            `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name"`
	If   string            `yaml:"if,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
}

// RemoteDir is the directory the repository is mirrored into.
func RemoteDir(s session.Session) string {
	base := s.RemoteBase
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if s.Target == session.TargetRoot {
		return base
	}
	return base + s.TargetName + "/"
}

// Render produces the workflow file for s.
func Render(s session.Session) ([]byte, error) {
	if s.Target != session.TargetRoot && strings.TrimSpace(s.TargetName) == "" {
		return nil, ErrNoTargetName
	}

	branch := s.Branch
	if branch == "" {
		branch = "main"
	}
	remote := RemoteDir(s)

	env := map[string]string{
		SecretHost:   secret(SecretHost),
		SecretUser:   secret(SecretUser),
		SecretPort:   fmt.Sprintf("${{ secrets.%s || '%s' }}", SecretPort, s.Port()),
		"REMOTE_DIR": remote,
	}
	if s.Protocol == session.ProtocolSFTP && s.AuthType == session.AuthSSHKey {
		env[SecretPrivateKey] = secret(SecretPrivateKey)
	} else {
		env[SecretPassword] = secret(SecretPassword)
	}

	steps := []step{
		{Name: "Checkout", Uses: "actions/checkout@v4"},
		{Name: "Install lftp", Run: "sudo apt-get update -qq && sudo apt-get install -y -qq lftp"},
	}
	if s.Protocol == session.ProtocolSFTP && s.AuthType == session.AuthSSHKey {
		steps = append(steps, step{
			Name: "Configure SSH key",
			Run: strings.Join([]string{
				"mkdir -p ~/.ssh",
				`echo "$SSH_PRIVATE_KEY" > ~/.ssh/deploy_key`,
				"chmod 600 ~/.ssh/deploy_key",
			}, "\n"),
		})
	}
	if s.EnableRollback {
		steps = append(steps,
			step{
				Name: "Back up remote directory",
				Run:  lftp(s, `mirror --verbose "$REMOTE_DIR" ./rollback-backup`),
			},
			step{
				Name: "Store backup",
				Uses: "actions/upload-artifact@v4",
				With: map[string]string{
					"name":           "rollback-${{ github.run_number }}",
					"path":           "rollback-backup",
					"retention-days": "7",
				},
			},
		)
	}
	steps = append(steps, step{
		Name: deployStepName(s),
		Run:  lftp(s, mirrorCommand(s)),
	})
	if s.CreateLog {
		steps = append(steps, step{
			Name: "Write deployment log",
			If:   "always()",
			Run: strings.Join([]string{
				`echo "$(date -u +%Y-%m-%dT%H:%M:%SZ) ${{ github.sha }} ${{ job.status }} $REMOTE_DIR" >> deploy.log`,
				"cat deploy.log",
			}, "\n"),
		})
	}
	if s.Notifications && s.WebhookURL != "" {
		// Values reach the shell through env so quotes in them stay data.
		steps = append(steps, step{
			Name: "Notify webhook",
			If:   "always()",
			Env: map[string]string{
				"WEBHOOK_URL": s.WebhookURL,
				"TARGET_NAME": s.TargetName,
				"JOB_STATUS":  "${{ job.status }}",
			},
			Run: strings.Join([]string{
				`jq -n --arg repository "$GITHUB_REPOSITORY" --arg target "$TARGET_NAME" --arg status "$JOB_STATUS" --arg sha "$GITHUB_SHA" \`,
				`  '{repository: $repository, target: $target, status: $status, sha: $sha}' \`,
				`  | curl -sS -X POST -H "Content-Type: application/json" --data-binary @- "$WEBHOOK_URL"`,
			}, "\n"),
		})
	}

	wf := workflow{
		Name: WorkflowName(s),
		On:   triggers{Push: push{Branches: []string{branch}}},
		Jobs: map[string]job{
			"deploy": {RunsOn: "ubuntu-latest", Env: env, Steps: steps},
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(wf); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	return buf.Bytes(), nil
}

// WorkflowName is the name the rendered workflow runs under.
func WorkflowName(s session.Session) string {
	name := s.TargetName
	if name == "" {
		name = "site"
	}
	return fmt.Sprintf("Deploy %s to WordPress", name)
}

func secret(name string) string {
	return fmt.Sprintf("${{ secrets.%s }}", name)
}

func deployStepName(s session.Session) string {
	label := "Deploy"
	if s.DryRun {
		label = "Deploy (dry run)"
	}
	return fmt.Sprintf("%s over %s", label, strings.ToUpper(string(s.Protocol)))
}

// mirrorCommand uploads the checkout. Sync mode deletes remote files that
// are gone from the repository; add mode never deletes.
func mirrorCommand(s session.Session) string {
	args := []string{"mirror", "--reverse", "--verbose", "--exclude-glob", ".git*", "--exclude-glob", ".github/"}
	if s.DeploymentMode == session.ModeSync {
		args = append(args, "--delete")
	}
	if s.DryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, "./", `"$REMOTE_DIR"`)
	return strings.Join(args, " ")
}

// lftp builds the shell command for an lftp session. The script is double
// quoted so the runner's shell expands $REMOTE_DIR and $HOME before lftp
// sees it; lftp itself does not expand variables.
func lftp(s session.Session, command string) string {
	var settings []string
	login := `-u "$FTP_USER,$FTP_PASSWORD"`
	scheme := "ftp"
	if s.Protocol == session.ProtocolSFTP {
		scheme = "sftp"
		settings = append(settings, "set sftp:auto-confirm yes")
		if s.AuthType == session.AuthSSHKey {
			login = `-u "$FTP_USER,"`
			settings = append(settings, `set sftp:connect-program "ssh -a -x -i $HOME/.ssh/deploy_key -o StrictHostKeyChecking=no"`)
		}
	} else {
		settings = append(settings, "set ftp:ssl-allow yes")
	}
	script := strings.Join(append(settings, command, "bye"), "; ")
	return fmt.Sprintf(`lftp %s -p "$FTP_PORT" %s://"$FTP_HOST" -e "%s"`, login, scheme, doubleQuoted.Replace(script))
}

// doubleQuoted escapes text for a double-quoted shell word while leaving
// $VAR expansion intact.
var doubleQuoted = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")
