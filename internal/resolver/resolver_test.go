package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

type stubFetcher struct {
	entries []model.LogEntry
	err     error
	calls   int
}

func (s *stubFetcher) Fetch(ctx context.Context, info *model.CrashInfo) ([]model.LogEntry, error) {
	s.calls++
	return s.entries, s.err
}

func allEnabled() *config.Settings {
	return &config.Settings{
		Elasticsearch: config.ElasticsearchConfig{Enabled: true, Endpoint: "e", Username: "u", Password: "p"},
		Coralogix:     config.CoralogixConfig{Enabled: true, APIKey: "k", Region: "r"},
	}
}

func crashInfo() *model.CrashInfo {
	return &model.CrashInfo{
		TaskARN:         "arn:aws:ecs:us-east-1:123456789012:task/prod/abc123",
		ServiceName:     "billing-api",
		FailedContainer: &model.Container{Name: "web"},
	}
}

func entries(msgs ...string) []model.LogEntry {
	var out []model.LogEntry
	for i, m := range msgs {
		out = append(out, model.LogEntry{Timestamp: int64(1700000000000 + i), Message: m})
	}
	return out
}

func TestResolveFirstBackendWins(t *testing.T) {
	es := &stubFetcher{entries: entries("from es")}
	cor := &stubFetcher{entries: entries("from coralogix")}
	cw := &stubFetcher{entries: entries("from cloudwatch")}

	r := New(allEnabled(), map[backend.Kind]backend.Fetcher{
		backend.KindElasticsearch: es,
		backend.KindCoralogix:     cor,
		backend.KindCloudWatch:    cw,
	})
	res := r.Resolve(context.Background(), crashInfo())

	if res.Source != backend.KindElasticsearch {
		t.Fatalf("source = %v, want %v", res.Source, backend.KindElasticsearch)
	}
	if cor.calls != 0 || cw.calls != 0 {
		t.Fatalf("later backends queried after success: coralogix=%d cloudwatch=%d", cor.calls, cw.calls)
	}
}

func TestResolveFallsThroughEmptyAndError(t *testing.T) {
	es := &stubFetcher{} // empty
	cor := &stubFetcher{err: errors.New("api down")}
	cw := &stubFetcher{entries: entries("from cloudwatch")}

	r := New(allEnabled(), map[backend.Kind]backend.Fetcher{
		backend.KindElasticsearch: es,
		backend.KindCoralogix:     cor,
		backend.KindCloudWatch:    cw,
	})
	res := r.Resolve(context.Background(), crashInfo())

	if es.calls != 1 || cor.calls != 1 || cw.calls != 1 {
		t.Fatalf("calls = es:%d cor:%d cw:%d, want 1 each", es.calls, cor.calls, cw.calls)
	}
	if res.Source != backend.KindCloudWatch || len(res.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestResolveCloudWatchAttemptedWhenDisabledBackendsConfigured(t *testing.T) {
	// Hosted backends disabled: the cascade must still reach CloudWatch.
	cw := &stubFetcher{}
	r := New(&config.Settings{}, map[backend.Kind]backend.Fetcher{
		backend.KindCloudWatch: cw,
	})
	res := r.Resolve(context.Background(), crashInfo())

	if cw.calls != 1 {
		t.Fatalf("cloudwatch calls = %d, want 1", cw.calls)
	}
	if res.Found() {
		t.Fatalf("expected empty terminal result, got %+v", res)
	}
	if res.Source != "" {
		t.Fatalf("source should be unset on empty result, got %v", res.Source)
	}
}

func TestResolveNoTaskARNIssuesNoCalls(t *testing.T) {
	es := &stubFetcher{entries: entries("should not be fetched")}
	cw := &stubFetcher{}
	r := New(allEnabled(), map[backend.Kind]backend.Fetcher{
		backend.KindElasticsearch: es,
		backend.KindCloudWatch:    cw,
	})
	res := r.Resolve(context.Background(), &model.CrashInfo{ServiceName: "billing-api"})

	if es.calls != 0 || cw.calls != 0 {
		t.Fatalf("backends queried without a task ARN: es=%d cw=%d", es.calls, cw.calls)
	}
	if res.Found() {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestResolveIdempotent(t *testing.T) {
	es := &stubFetcher{entries: entries("line 1", "line 2")}
	r := New(allEnabled(), map[backend.Kind]backend.Fetcher{
		backend.KindElasticsearch: es,
		backend.KindCoralogix:     &stubFetcher{},
		backend.KindCloudWatch:    &stubFetcher{},
	})

	info := crashInfo()
	first := r.Resolve(context.Background(), info)
	second := r.Resolve(context.Background(), info)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ across identical resolutions:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
