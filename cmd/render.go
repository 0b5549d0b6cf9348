package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

var stepTitles = map[int]string{
	session.StepSource:   "source",
	session.StepAnalysis: "analysis",
	session.StepConnect:  "live connect",
	session.StepServer:   "server & strategy",
	session.StepReview:   "security & review",
}

func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func masked(secret string) string {
	if secret == "" {
		return "-"
	}
	return strings.Repeat("*", 8)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// printSession writes the wizard summary for s.
func printSession(w io.Writer, s session.Session, connErr string) {
	fmt.Fprintf(w, "%s %d/5 %s\n", color.CyanString("Step"), s.CurrentStep, title(stepTitles[s.CurrentStep]))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	fmt.Fprintf(w, "Repository:   %s\n", orDash(s.GitURL))
	fmt.Fprintf(w, "Branch:       %s\n", orDash(s.Branch))
	d := s.RepoDetails
	fmt.Fprintf(w, "Analysis:     %s / %s, %s complexity, WordPress: %v\n", d.Language, d.Framework, d.Complexity, d.IsWordPress)
	fmt.Fprintf(w, "              created %s, last commit %s, size %s\n", d.CreationDate, d.LastCommitDate, d.FileCount)
	for _, line := range strings.Split(d.Summary, "\n") {
		if line != "" {
			fmt.Fprintf(w, "              %s\n", color.HiBlackString(line))
		}
	}

	fmt.Fprintf(w, "Target:       %s %s\n", title(string(s.Target)), s.TargetName)
	fmt.Fprintf(w, "Remote base:  %s\n", orDash(s.RemoteBase))

	conn := s.WpConnection
	status := string(conn.Status)
	switch conn.Status {
	case session.StatusConnected:
		status = color.GreenString(status)
	case session.StatusError:
		status = color.RedString(status)
	}
	fmt.Fprintf(w, "Site:         %s (%s)\n", orDash(s.WpURL), status)
	if conn.Status == session.StatusConnected {
		fmt.Fprintf(w, "              %s, %s\n", conn.SiteName, conn.Version)
	}
	if connErr != "" {
		fmt.Fprintf(w, "              %s\n", color.RedString(connErr))
	}

	fmt.Fprintf(w, "Transfer:     %s %s@%s:%s (%s)\n", strings.ToUpper(string(s.Protocol)), orDash(s.FtpUser), orDash(s.FtpHost), s.Port(), s.AuthType)
	fmt.Fprintf(w, "Password:     %s\n", masked(s.FtpPassword))
	fmt.Fprintf(w, "Mode:         %s, dry run %s, rollback %s, deploy log %s\n", s.DeploymentMode, onOff(s.DryRun), onOff(s.EnableRollback), onOff(s.CreateLog))
	fmt.Fprintf(w, "Notify:       %s %s\n", onOff(s.Notifications), s.WebhookURL)
}

func levelTag(l session.Level) string {
	tag := strings.ToUpper(string(l))
	switch l {
	case session.LevelError:
		return color.RedString(tag)
	case session.LevelWarning:
		return color.YellowString(tag)
	case session.LevelSuccess:
		return color.GreenString(tag)
	}
	return color.CyanString(tag)
}

// printLogs writes entries as given; callers decide the order.
func printLogs(w io.Writer, entries []session.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No log entries.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s %s %s\n", color.HiBlackString(e.Timestamp), levelTag(e.Level), color.MagentaString("["+e.Source+"]"), e.Message)
		if e.Details != "" {
			for _, line := range strings.Split(e.Details, "\n") {
				fmt.Fprintf(w, "         %s\n", color.HiBlackString(line))
			}
		}
	}
}

func printRegistry(w io.Writer, list []session.Session) {
	if len(list) == 0 {
		fmt.Fprintln(w, "Registry is empty.")
		return
	}
	for i, s := range list {
		fmt.Fprintf(w, "%2d. %s  %s  %s  %s\n", i+1, color.CyanString(s.TargetName), title(string(s.Target)), orDash(s.GitURL), s.RemoteBase)
	}
}
