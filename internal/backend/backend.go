// Package backend defines the log-backend contract and the priority order in
// which backends are tried for a crashed task.
package backend

import (
	"context"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Kind identifies one of the log backends.
type Kind string

const (
	KindElasticsearch Kind = "elasticsearch"
	KindCoralogix     Kind = "coralogix"
	KindCloudWatch    Kind = "cloudwatch"
)

// FetchLimit caps the entries requested from the hosted query backends.
const FetchLimit = 50

// Fetcher retrieves normalized log entries for one crashed task. An empty
// slice means "this backend has nothing"; errors carry diagnostic detail but
// the cascade treats them the same as empty, so implementations must not
// rely on errors aborting resolution.
type Fetcher interface {
	Fetch(ctx context.Context, info *model.CrashInfo) ([]model.LogEntry, error)
}

// Order returns the backends to try, in priority order: Elasticsearch, then
// Coralogix, each included only when enabled and fully configured; CloudWatch
// is always appended last regardless of any flag since it needs no external
// account. An event without a task ARN yields an empty order — there is
// nothing any backend could be queried for.
func Order(settings *config.Settings, info *model.CrashInfo) []Kind {
	if info == nil || info.TaskARN == "" {
		return nil
	}
	var order []Kind
	if settings.Elasticsearch.Enabled && settings.Elasticsearch.Configured() {
		order = append(order, KindElasticsearch)
	}
	if settings.Coralogix.Enabled && settings.Coralogix.Configured() {
		order = append(order, KindCoralogix)
	}
	return append(order, KindCloudWatch)
}
