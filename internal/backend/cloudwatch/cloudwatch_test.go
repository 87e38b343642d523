package cloudwatch

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/taskdef"
)

type fakeLogsAPI struct {
	describeInputs []*cloudwatchlogs.DescribeLogStreamsInput
	describeOut    []*cloudwatchlogs.DescribeLogStreamsOutput
	describeErr    error
	filterInputs   []*cloudwatchlogs.FilterLogEventsInput
	filterOut      *cloudwatchlogs.FilterLogEventsOutput
	filterErr      error
}

func (f *fakeLogsAPI) DescribeLogStreams(ctx context.Context, in *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	f.describeInputs = append(f.describeInputs, in)
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if len(f.describeOut) > 0 {
		out := f.describeOut[0]
		f.describeOut = f.describeOut[1:]
		return out, nil
	}
	return &cloudwatchlogs.DescribeLogStreamsOutput{}, nil
}

func (f *fakeLogsAPI) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.filterInputs = append(f.filterInputs, in)
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	if f.filterOut != nil {
		return f.filterOut, nil
	}
	return &cloudwatchlogs.FilterLogEventsOutput{}, nil
}

type fakeResolver struct {
	cfg *taskdef.LogGroupConfig
	err error
}

func (f *fakeResolver) ResolveLogGroupConfig(ctx context.Context, info *model.CrashInfo) (*taskdef.LogGroupConfig, error) {
	return f.cfg, f.err
}

func newBackend(resolver ConfigResolver, api LogsAPI) *Backend {
	return New(resolver, func(ctx context.Context, region string) (LogsAPI, error) {
		return api, nil
	})
}

func crashInfo() *model.CrashInfo {
	return &model.CrashInfo{
		TaskARN:           "arn:aws:ecs:us-east-1:123456789012:task/prod/abc123",
		TaskDefinitionARN: "arn:aws:ecs:us-east-1:123456789012:task-definition/app:7",
		FailedContainer:   &model.Container{Name: "web"},
	}
}

func streams(names ...string) *cloudwatchlogs.DescribeLogStreamsOutput {
	out := &cloudwatchlogs.DescribeLogStreamsOutput{}
	for _, n := range names {
		out.LogStreams = append(out.LogStreams, types.LogStream{LogStreamName: aws.String(n)})
	}
	return out
}

func TestStreamName(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		container string
		taskID    string
		want      string
	}{
		{name: "with prefix", prefix: "ecs", container: "web", taskID: "abc123", want: "ecs/web/abc123"},
		{name: "empty prefix omits segment", prefix: "", container: "web", taskID: "abc123", want: "web/abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &taskdef.LogGroupConfig{Group: "/ecs/app", StreamPrefix: tt.prefix}
			if got := StreamName(cfg, tt.container, tt.taskID); got != tt.want {
				t.Fatalf("StreamName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchReadsVerifiedStream(t *testing.T) {
	api := &fakeLogsAPI{
		describeOut: []*cloudwatchlogs.DescribeLogStreamsOutput{streams("ecs/web/abc123")},
		filterOut: &cloudwatchlogs.FilterLogEventsOutput{Events: []types.FilteredLogEvent{
			{Timestamp: aws.Int64(1700000000123), Message: aws.String("  panic: boom\n")},
			{Timestamp: aws.Int64(1700000000456), Message: aws.String("goroutine 1 [running]")},
		}},
	}
	b := newBackend(&fakeResolver{cfg: &taskdef.LogGroupConfig{Group: "/ecs/app", StreamPrefix: "ecs", Region: "us-east-1"}}, api)

	entries, err := b.Fetch(context.Background(), crashInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(entries))
	}
	// Native ascending order, messages trimmed.
	if entries[0] != (model.LogEntry{Timestamp: 1700000000123, Message: "panic: boom"}) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	in := api.describeInputs[0]
	if aws.ToString(in.LogStreamNamePrefix) != "ecs/web/abc123" {
		t.Fatalf("prefix lookup = %q, want %q", aws.ToString(in.LogStreamNamePrefix), "ecs/web/abc123")
	}

	fi := api.filterInputs[0]
	if aws.ToString(fi.LogGroupName) != "/ecs/app" || fi.LogStreamNames[0] != "ecs/web/abc123" {
		t.Fatalf("unexpected filter input: %+v", fi)
	}
	if aws.ToInt32(fi.Limit) != 100 {
		t.Fatalf("limit = %d, want 100", aws.ToInt32(fi.Limit))
	}
	// Snapshot semantics: no time window on the read.
	if fi.StartTime != nil || fi.EndTime != nil {
		t.Fatalf("expected no time window, got start=%v end=%v", fi.StartTime, fi.EndTime)
	}
}

func TestFetchFallsBackToRecentStreamScan(t *testing.T) {
	api := &fakeLogsAPI{
		describeOut: []*cloudwatchlogs.DescribeLogStreamsOutput{
			streams(), // exact candidate not found
			streams("ecs/other/def456", "ecs/web/abc123-retry", "ecs/web/zzz"),
		},
		filterOut: &cloudwatchlogs.FilterLogEventsOutput{Events: []types.FilteredLogEvent{
			{Timestamp: aws.Int64(1), Message: aws.String("found it")},
		}},
	}
	b := newBackend(&fakeResolver{cfg: &taskdef.LogGroupConfig{Group: "/ecs/app", StreamPrefix: "ecs"}}, api)

	entries, err := b.Fetch(context.Background(), crashInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "found it" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	scan := api.describeInputs[1]
	if scan.OrderBy != types.OrderByLastEventTime || !aws.ToBool(scan.Descending) {
		t.Fatalf("scan not ordered by recent activity: %+v", scan)
	}
	if aws.ToInt32(scan.Limit) != 50 {
		t.Fatalf("scan limit = %d, want 50", aws.ToInt32(scan.Limit))
	}
	// First substring match on the task id wins.
	if api.filterInputs[0].LogStreamNames[0] != "ecs/web/abc123-retry" {
		t.Fatalf("selected stream = %q", api.filterInputs[0].LogStreamNames[0])
	}
}

func TestFetchNoStreamMatch(t *testing.T) {
	api := &fakeLogsAPI{
		describeOut: []*cloudwatchlogs.DescribeLogStreamsOutput{
			streams(),
			streams("ecs/web/unrelated"),
		},
	}
	b := newBackend(&fakeResolver{cfg: &taskdef.LogGroupConfig{Group: "/ecs/app", StreamPrefix: "ecs"}}, api)

	entries, err := b.Fetch(context.Background(), crashInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
	if len(api.filterInputs) != 0 {
		t.Fatalf("FilterLogEvents should not be called without a stream")
	}
}

func TestFetchNoLogConfig(t *testing.T) {
	api := &fakeLogsAPI{}
	b := newBackend(&fakeResolver{cfg: nil}, api)

	entries, err := b.Fetch(context.Background(), crashInfo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %+v", entries)
	}
	if len(api.describeInputs) != 0 {
		t.Fatalf("no API calls expected without a log config")
	}
}

func TestFetchGroupUnreachable(t *testing.T) {
	api := &fakeLogsAPI{describeErr: errors.New("access denied")}
	b := newBackend(&fakeResolver{cfg: &taskdef.LogGroupConfig{Group: "/ecs/app"}}, api)

	if _, err := b.Fetch(context.Background(), crashInfo()); err == nil {
		t.Fatalf("expected error when the group is unreachable")
	}
}

func TestFetchMissingIdentifiers(t *testing.T) {
	api := &fakeLogsAPI{}
	b := newBackend(&fakeResolver{}, api)

	entries, err := b.Fetch(context.Background(), &model.CrashInfo{TaskARN: "arn:aws:ecs:r:1:task/c/t"})
	if err != nil || entries != nil {
		t.Fatalf("expected soft empty result, got entries=%v err=%v", entries, err)
	}
}
