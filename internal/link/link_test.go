package link

import (
	"strings"
	"testing"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

func crashInfo() *model.CrashInfo {
	return &model.CrashInfo{
		TaskARN:     "arn:aws:ecs:us-east-1:123456789012:task/prod/abc123",
		ServiceName: "billing-api",
	}
}

func TestCoralogix(t *testing.T) {
	got := Coralogix("acme", "eu1", crashInfo())

	wantPrefix := "https://acme.app.eu1.coralogix.com/#/query-new/archive-logs?time=from:now-1h,to:now&querySyntax=dataprime&query="
	if !strings.HasPrefix(got, wantPrefix) {
		t.Fatalf("link = %q, want prefix %q", got, wantPrefix)
	}
	// The query is percent-encoded with %20 for spaces, never "+".
	if strings.Contains(got, "+") {
		t.Fatalf("link must not use form encoding: %q", got)
	}
	if !strings.Contains(got, "source%20logs%20%7C%20filter") {
		t.Fatalf("encoded query missing from link: %q", got)
	}
	if !strings.Contains(got, "limit%2050") {
		t.Fatalf("encoded limit missing from link: %q", got)
	}
}

func TestCoralogixMissingConfig(t *testing.T) {
	if got := Coralogix("", "eu1", crashInfo()); got != "" {
		t.Fatalf("expected empty link without account, got %q", got)
	}
	if got := Coralogix("acme", "", crashInfo()); got != "" {
		t.Fatalf("expected empty link without region, got %q", got)
	}
	if got := Coralogix("acme", "eu1", &model.CrashInfo{}); got != "" {
		t.Fatalf("expected empty link without task ARN, got %q", got)
	}
}

func TestKibana(t *testing.T) {
	got := Kibana("https://kibana.example.com/", crashInfo())

	want := "https://kibana.example.com/app/discover#/?_g=(time:(from:now-1h,to:now))" +
		"&_a=(query:(language:kuery,query:'ecs_task_arn:%22" +
		"arn%3Aaws%3Aecs%3Aus-east-1%3A123456789012%3Atask%2Fprod%2Fabc123" +
		"%22'))"
	if got != want {
		t.Fatalf("link = %q, want %q", got, want)
	}
}

func TestKibanaMissingConfig(t *testing.T) {
	if got := Kibana("", crashInfo()); got != "" {
		t.Fatalf("expected empty link without base URL, got %q", got)
	}
	if got := Kibana("https://kibana.example.com", &model.CrashInfo{}); got != "" {
		t.Fatalf("expected empty link without task ARN, got %q", got)
	}
}
