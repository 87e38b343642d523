package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Block is a Slack Block Kit block. Only the shapes we emit are modeled.
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Fields   []Text `json:"fields,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

func plainText(s string) *Text  { return &Text{Type: "plain_text", Text: s, Emoji: true} }
func mrkdwn(s string) *Text     { return &Text{Type: "mrkdwn", Text: s} }
func mrkdwnField(s string) Text { return Text{Type: "mrkdwn", Text: s} }

// crashBlocks renders the notification body for one crash. logSourceLink is
// an optional (label, url) pair pointing at the backend that supplied logs.
func crashBlocks(info *model.CrashInfo, logSourceLabel, logSourceURL string) []Block {
	blocks := []Block{
		{
			Type: "header",
			Text: plainText(fmt.Sprintf("🚨 Task Crash Detected: %s (%s)", info.ServiceName, info.ClusterName)),
		},
		{
			Type: "section",
			Text: mrkdwn(fmt.Sprintf("*Service* <%s|%s> in %s", consoleServiceURL(info), info.ServiceName, info.ClusterName)),
		},
		{
			Type: "section",
			Fields: []Text{
				mrkdwnField(fmt.Sprintf("*Task Definition Version:*\n%s", info.TaskDefinitionVersion)),
				mrkdwnField(fmt.Sprintf("*Started Time:*\n%s", formatStartedAt(info.StartedAt))),
			},
		},
		{
			Type: "section",
			Text: mrkdwn(fmt.Sprintf("*Reason:* %s", formatCrashReason(info))),
		},
	}

	elements := []Text{mrkdwnField(fmt.Sprintf("Task ID: `%s`", taskIDOrUnknown(info)))}
	if logSourceURL != "" {
		elements = append(elements, mrkdwnField(fmt.Sprintf("<%s|View logs in %s>", logSourceURL, logSourceLabel)))
	}
	blocks = append(blocks, Block{Type: "context", Elements: elements})
	return blocks
}

// formatCrashReason distinguishes launch failures (no exit code recorded)
// from runtime failures, preferring container-level detail over the
// task-level stop reason.
func formatCrashReason(info *model.CrashInfo) string {
	containerReason := ""
	containerName := "unknown"
	if info.FailedContainer != nil {
		containerReason = info.FailedContainer.Reason
		if info.FailedContainer.Name != "" {
			containerName = info.FailedContainer.Name
		}
	}

	exitCode := info.ExitCode()
	if exitCode == nil {
		switch {
		case containerReason != "":
			return "Launch failure: " + containerReason
		case info.StoppedReason != "":
			return "Launch failure: " + info.StoppedReason
		default:
			return "Launch failure: Unknown reason"
		}
	}

	switch {
	case containerReason != "":
		return fmt.Sprintf("[%s] Exit code: %d, reason: %q", containerName, *exitCode, containerReason)
	case info.StoppedReason != "":
		return fmt.Sprintf("[%s] Exit code: %d, task reason: %q", containerName, *exitCode, info.StoppedReason)
	default:
		return fmt.Sprintf("[%s] Exit code: %d, reason: Unknown", containerName, *exitCode)
	}
}

func formatStartedAt(startedAt string) string {
	if startedAt == "" {
		return "N/A"
	}
	ts, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return startedAt
	}
	return ts.UTC().Format("2006-01-02 15:04:05 UTC")
}

// consoleServiceURL links to the service health page in the AWS console.
// The region comes from the cluster ARN (arn:aws:ecs:<region>:...).
func consoleServiceURL(info *model.CrashInfo) string {
	region := "us-east-1"
	if parts := strings.Split(info.ClusterARN, ":"); len(parts) > 3 && parts[3] != "" {
		region = parts[3]
	}
	return fmt.Sprintf("https://%s.console.aws.amazon.com/ecs/v2/clusters/%s/services/%s/health",
		region, info.ClusterName, info.ServiceName)
}

func taskIDOrUnknown(info *model.CrashInfo) string {
	if id := info.TaskID(); id != "" {
		return id
	}
	return "unknown"
}

// logFileContent renders the attachment uploaded alongside the notification.
// Raw messages only; the file is meant for pasting into an editor, not for
// timestamp archaeology.
func logFileContent(source string, entries []model.LogEntry) string {
	divider := strings.Repeat("-", 80)
	var b strings.Builder
	fmt.Fprintf(&b, "LOG SOURCE: %s\n", strings.ToUpper(source))
	b.WriteString(divider + "\n\n")
	if len(entries) == 0 {
		b.WriteString("No logs available for this crash.\n")
		return b.String()
	}
	b.WriteString("CONTAINER LOGS:\n")
	b.WriteString(divider + "\n\n")
	for _, e := range entries {
		b.WriteString(e.Message + "\n")
	}
	b.WriteString("\n")
	return b.String()
}
