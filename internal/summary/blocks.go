package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/notify"
)

// Blocks renders the Slack summary for one day of crashes in the given
// cluster. date is the report day in YYYY-MM-DD form.
func Blocks(a Analysis, clusterName, date string, now time.Time) []notify.Block {
	emoji := "✅"
	switch {
	case a.TotalCrashes > 5:
		emoji = "🚨"
	case a.TotalCrashes > 0:
		emoji = "⚠️"
	}

	blocks := []notify.Block{{
		Type: "header",
		Text: &notify.Text{
			Type:  "plain_text",
			Text:  fmt.Sprintf("%s Daily Crash Summary - %s", emoji, date),
			Emoji: true,
		},
	}}

	if a.TotalCrashes == 0 {
		blocks = append(blocks, section(fmt.Sprintf(
			"🎉 *Great news!* No crashes were detected in the last 24 hours in the `%s` cluster.", clusterName)))
		return blocks
	}

	blocks = append(blocks, section(fmt.Sprintf(
		"*%d crashes detected* across *%d service(s)* in the `%s` cluster.",
		a.TotalCrashes, len(a.ServiceCrashes), clusterName)))

	if len(a.TopIssues) > 0 {
		blocks = append(blocks, divider(), section("*🔍 Key Insights*"))
		for _, issue := range a.TopIssues {
			var b strings.Builder
			fmt.Fprintf(&b, "*%s:*", issue.Title)
			for _, item := range issue.Items {
				fmt.Fprintf(&b, "\n• %s", item)
			}
			blocks = append(blocks, section(b.String()))
		}
	}

	if len(a.HourlyDistribution) > 0 {
		var b strings.Builder
		b.WriteString("*🕐 Hourly Distribution (UTC):*")
		for _, hour := range sortedHours(a.HourlyDistribution) {
			count := a.HourlyDistribution[hour]
			fmt.Fprintf(&b, "\n• %02d:00 - %d %s", hour, count, plural(count, "crash", "crashes"))
		}
		blocks = append(blocks, divider(), section(b.String()))
	}

	if len(a.ServiceCrashes) > 0 {
		var b strings.Builder
		b.WriteString("*🔧 Affected Services:*")
		for _, svc := range sortedKeys(a.ServiceCrashes) {
			count := a.ServiceCrashes[svc]
			fmt.Fprintf(&b, "\n• `%s` - %d %s", svc, count, plural(count, "crash", "crashes"))
		}
		blocks = append(blocks, divider(), section(b.String()))
	}

	blocks = append(blocks, notify.Block{
		Type: "context",
		Elements: []notify.Text{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("Cluster: `%s` | Generated: %s", clusterName, now.UTC().Format("2006-01-02 15:04:05 UTC")),
		}},
	})
	return blocks
}

func section(text string) notify.Block {
	return notify.Block{Type: "section", Text: &notify.Text{Type: "mrkdwn", Text: text}}
}

func divider() notify.Block {
	return notify.Block{Type: "divider"}
}

func sortedHours(m map[int]int) []int {
	hours := make([]int, 0, len(m))
	for h := range m {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
