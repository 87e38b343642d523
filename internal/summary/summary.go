// Package summary aggregates a day of crash events from the monitoring log
// group into counts and Slack summary blocks.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// LogsAPI is the subset of the CloudWatch Logs API we use.
type LogsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CrashEvent is one crash-notifier event read back from the monitoring
// group: the ingestion timestamp plus the decoded event document.
type CrashEvent struct {
	Timestamp int64
	Document  map[string]any
}

// Collector reads crash events from the cluster's monitoring log group.
type Collector struct {
	client LogsAPI
	group  string
}

// GroupName returns the monitoring log group for a cluster.
func GroupName(clusterName string) string {
	return fmt.Sprintf("/aws/ecs/monitoring/%s/crash-events", clusterName)
}

// NewCollector creates a Collector over the given cluster's crash-events
// group.
func NewCollector(client LogsAPI, clusterName string) *Collector {
	return &Collector{client: client, group: GroupName(clusterName)}
}

// CollectWindow reads every crash event between start and end, following
// pagination until the token is exhausted or repeats. Events whose message
// is not valid JSON are skipped.
func (c *Collector) CollectWindow(ctx context.Context, start, end time.Time) ([]CrashEvent, error) {
	var events []CrashEvent
	var next *string
	for {
		out, err := c.client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(c.group),
			StartTime:    aws.Int64(start.UnixMilli()),
			EndTime:      aws.Int64(end.UnixMilli()),
			NextToken:    next,
		})
		if err != nil {
			return nil, fmt.Errorf("query crash events in %s: %w", c.group, err)
		}
		for _, e := range out.Events {
			var doc map[string]any
			if err := json.Unmarshal([]byte(aws.ToString(e.Message)), &doc); err != nil {
				slog.Warn("skipping unparsable crash event", "error", err)
				continue
			}
			events = append(events, CrashEvent{Timestamp: aws.ToInt64(e.Timestamp), Document: doc})
		}
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			break
		}
		next = out.NextToken
	}
	return events, nil
}

// CollectLastDay reads the trailing 24 hours of crash events ending at now.
func (c *Collector) CollectLastDay(ctx context.Context, now time.Time) ([]CrashEvent, error) {
	return c.CollectWindow(ctx, now.Add(-24*time.Hour), now)
}

// Issue is one ranked finding surfaced at the top of the summary.
type Issue struct {
	Title string
	Items []string
}

// Analysis holds the aggregated view of a day's crashes.
type Analysis struct {
	TotalCrashes       int
	ServiceCrashes     map[string]int
	CrashReasons       map[string]int
	HourlyDistribution map[int]int
	ContainerFailures  map[string]int
	ExitCodes          map[int]int
	TaskDefinitions    map[string]int
	TopIssues          []Issue
}

// Analyze folds crash events into per-dimension counts and the top-3 issue
// lists shown in the summary header.
func Analyze(events []CrashEvent) Analysis {
	a := Analysis{
		TotalCrashes:       len(events),
		ServiceCrashes:     map[string]int{},
		CrashReasons:       map[string]int{},
		HourlyDistribution: map[int]int{},
		ContainerFailures:  map[string]int{},
		ExitCodes:          map[int]int{},
		TaskDefinitions:    map[string]int{},
	}

	for _, ev := range events {
		if svc := serviceName(ev.Document); svc != "" {
			a.ServiceCrashes[svc]++
		}
		a.CrashReasons[stoppedReason(ev.Document)]++
		hour := time.UnixMilli(ev.Timestamp).UTC().Hour()
		a.HourlyDistribution[hour]++
		for _, f := range failedContainers(ev.Document) {
			a.ContainerFailures[f.Name]++
			a.ExitCodes[f.ExitCode]++
		}
		if td := taskDefinitionName(ev.Document); td != "" {
			a.TaskDefinitions[td]++
		}
	}

	if items := topCounts(a.CrashReasons, 3, "%s: %d crashes"); len(items) > 0 {
		a.TopIssues = append(a.TopIssues, Issue{Title: "Top Crash Reasons", Items: items})
	}
	if items := topCounts(a.ServiceCrashes, 3, "%s: %d crashes"); len(items) > 0 {
		a.TopIssues = append(a.TopIssues, Issue{Title: "Most Affected Services", Items: items})
	}
	if items := topExitCodes(a.ExitCodes, 3); len(items) > 0 {
		a.TopIssues = append(a.TopIssues, Issue{Title: "Common Exit Codes", Items: items})
	}
	return a
}
