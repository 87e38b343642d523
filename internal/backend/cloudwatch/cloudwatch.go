// Package cloudwatch reads a crashed container's log stream directly from
// CloudWatch Logs. It is the cascade's guaranteed last resort: routing comes
// from the task definition, so it works for any awslogs-configured container
// without an external logging account.
package cloudwatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/taskdef"
)

// LogsAPI is the subset of the CloudWatch Logs API we use.
type LogsAPI interface {
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// ConfigResolver supplies the awslogs routing for a crashed container.
type ConfigResolver interface {
	ResolveLogGroupConfig(ctx context.Context, info *model.CrashInfo) (*taskdef.LogGroupConfig, error)
}

// LogsClientFactory builds a Logs client for the region the task definition
// routes to. region may be empty for default resolution.
type LogsClientFactory func(ctx context.Context, region string) (LogsAPI, error)

const (
	// eventLimit caps the snapshot read from the resolved stream. The stream
	// is task-scoped and short-lived, so no time window is applied.
	eventLimit = 100
	// streamScanLimit caps the fallback scan over recently-active streams.
	streamScanLimit = 50
)

// Backend implements the cascade's CloudWatch fetch.
type Backend struct {
	resolver ConfigResolver
	newLogs  LogsClientFactory
}

// New creates a Backend. newLogs is called once per fetch with the region
// from the resolved log config.
func New(resolver ConfigResolver, newLogs LogsClientFactory) *Backend {
	return &Backend{resolver: resolver, newLogs: newLogs}
}

// StreamName builds the awslogs stream name for a container run:
// [prefix/]containerName/taskID, with the prefix segment omitted entirely
// when the task definition sets no stream prefix.
func StreamName(cfg *taskdef.LogGroupConfig, containerName, taskID string) string {
	if cfg.StreamPrefix == "" {
		return containerName + "/" + taskID
	}
	return cfg.StreamPrefix + "/" + containerName + "/" + taskID
}

// Fetch resolves the container's log group and stream, then reads whatever
// the stream currently holds, in the backend's native ascending order with
// messages trimmed of surrounding whitespace.
func (b *Backend) Fetch(ctx context.Context, info *model.CrashInfo) ([]model.LogEntry, error) {
	taskID := info.TaskID()
	containerName := info.ContainerName()
	if taskID == "" || containerName == "" {
		slog.Info("missing task id or container name; skipping cloudwatch lookup",
			"task", taskID, "container", containerName)
		return nil, nil
	}

	cfg, err := b.resolver.ResolveLogGroupConfig(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("resolve log config: %w", err)
	}
	if cfg == nil {
		// Not an error: the container simply is not routed to CloudWatch.
		return nil, nil
	}

	logs, err := b.newLogs(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("create logs client for region %q: %w", cfg.Region, err)
	}

	stream, err := b.resolveStream(ctx, logs, cfg, containerName, taskID)
	if err != nil {
		return nil, err
	}
	if stream == "" {
		slog.Info("no log stream found for task", "group", cfg.Group, "task", taskID)
		return nil, nil
	}

	out, err := logs.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:   aws.String(cfg.Group),
		LogStreamNames: []string{stream},
		Limit:          aws.Int32(eventLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("filter log events %s/%s: %w", cfg.Group, stream, err)
	}

	entries := make([]model.LogEntry, 0, len(out.Events))
	for _, e := range out.Events {
		entries = append(entries, model.LogEntry{
			Timestamp: aws.ToInt64(e.Timestamp),
			Message:   strings.TrimSpace(aws.ToString(e.Message)),
		})
	}
	slog.Info("cloudwatch read finished", "group", cfg.Group, "stream", stream, "entries", len(entries))
	return entries, nil
}

// resolveStream verifies the convention-derived stream name exists, falling
// back to scanning the group's most-recently-active streams for one whose
// name contains the task id. An unverified guess commonly returns zero
// events instead of an error, so the lookup always happens before reading.
func (b *Backend) resolveStream(ctx context.Context, logs LogsAPI, cfg *taskdef.LogGroupConfig, containerName, taskID string) (string, error) {
	candidate := StreamName(cfg, containerName, taskID)

	out, err := logs.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName:        aws.String(cfg.Group),
		LogStreamNamePrefix: aws.String(candidate),
		Limit:               aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("describe log streams in %s: %w", cfg.Group, err)
	}
	if len(out.LogStreams) > 0 {
		return aws.ToString(out.LogStreams[0].LogStreamName), nil
	}

	slog.Warn("expected log stream not found; scanning recent streams",
		"group", cfg.Group, "candidate", candidate)
	recent, err := logs.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(cfg.Group),
		OrderBy:      types.OrderByLastEventTime,
		Descending:   aws.Bool(true),
		Limit:        aws.Int32(streamScanLimit),
	})
	if err != nil {
		return "", fmt.Errorf("scan log streams in %s: %w", cfg.Group, err)
	}
	for _, s := range recent.LogStreams {
		name := aws.ToString(s.LogStreamName)
		if strings.Contains(name, taskID) {
			return name, nil
		}
	}
	return "", nil
}
