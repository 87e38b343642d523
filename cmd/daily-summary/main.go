package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/cmd"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/client"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/logging"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/notify"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/summary"
)

func main() {
	opts := cmd.CollectSummaryOptions()
	logging.Init(logging.ParseLevel(opts.LogLevel))

	ctx := context.Background()
	settings := config.Load()

	logs, err := client.NewCloudWatchLogsClient(ctx, settings.AWSRegion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create CloudWatch client: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	events, err := summary.NewCollector(logs, settings.ClusterName).CollectLastDay(ctx, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to collect crash events: %v\n", err)
		os.Exit(1)
	}

	analysis := summary.Analyze(events)
	date := now.Format("2006-01-02")
	blocks := summary.Blocks(analysis, settings.ClusterName, date, now)

	if opts.DryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		out := map[string]any{
			"date":     date,
			"analysis": analysis,
			"blocks":   blocks,
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fallback := fmt.Sprintf("Daily Crash Summary - %s", settings.ClusterName)
	if err := notify.New(settings).SendSummary(ctx, blocks, fallback); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send daily summary: %v\n", err)
		os.Exit(1)
	}
}
