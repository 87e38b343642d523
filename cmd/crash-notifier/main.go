package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Nao-Mk2/ecs-crash-notifier/cmd"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend/cloudwatch"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend/coralogix"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend/elasticsearch"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/client"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/event"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/logging"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/notify"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/resolver"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/taskdef"
)

func main() {
	opts := cmd.CollectNotifierOptions()
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(code)
	}
	logging.Init(logging.ParseLevel(opts.LogLevel))

	raw, err := cmd.ReadEvent(opts.EventPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read event: %v\n", err)
		os.Exit(1)
	}
	info, err := event.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse event: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	settings := config.Load()

	ecsClient, err := client.NewECSClient(ctx, settings.AWSRegion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create ECS client: %v\n", err)
		os.Exit(1)
	}
	fetchers := map[backend.Kind]backend.Fetcher{
		backend.KindElasticsearch: elasticsearch.New(settings.Elasticsearch, nil),
		backend.KindCoralogix:     coralogix.New(settings.Coralogix, nil),
		backend.KindCloudWatch: cloudwatch.New(
			taskdef.NewResolver(ecsClient),
			func(ctx context.Context, region string) (cloudwatch.LogsAPI, error) {
				return client.NewCloudWatchLogsClient(ctx, region)
			},
		),
	}

	res := resolver.New(settings, fetchers).Resolve(ctx, info)

	if opts.DryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		out := map[string]any{
			"task":    info.TaskID(),
			"service": info.ServiceName,
			"source":  res.Source,
			"entries": res.Entries,
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := notify.New(settings).SendCrashNotification(ctx, info, res); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send crash notification: %v\n", err)
		os.Exit(1)
	}
}
