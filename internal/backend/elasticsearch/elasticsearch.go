// Package elasticsearch queries an Elasticsearch cluster for the log lines a
// crashed task emitted, matched exactly on the ecs_task_arn field its log
// shipper stamps onto every document.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Backend implements backend.Fetcher against the _search API.
type Backend struct {
	endpoint string
	username string
	password string
	client   *http.Client
	now      func() int64
}

// New creates a Backend from settings. httpClient may be nil to use a client
// with the standard 30s request timeout.
func New(cfg config.ElasticsearchConfig, httpClient *http.Client) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Backend{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   httpClient,
		now:      model.NowMillis,
	}
}

type searchRequest struct {
	Size  int              `json:"size"`
	Sort  []map[string]any `json:"sort"`
	Query searchQuery      `json:"query"`
}

type searchQuery struct {
	Term map[string]termValue `json:"term"`
}

type termValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source hitSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type hitSource struct {
	Timestamp any    `json:"@timestamp"`
	Message   string `json:"message"`
}

// Fetch runs a term query on ecs_task_arn, newest first, capped at the
// shared fetch limit. The response order (descending by @timestamp) is
// preserved in the returned entries.
func (b *Backend) Fetch(ctx context.Context, info *model.CrashInfo) ([]model.LogEntry, error) {
	if info.TaskARN == "" {
		return nil, nil
	}

	body := searchRequest{
		Size: backend.FetchLimit,
		Sort: []map[string]any{{"@timestamp": map[string]string{"order": "desc"}}},
		Query: searchQuery{
			Term: map[string]termValue{"ecs_task_arn": {Value: info.TaskARN}},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/_search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(b.username, b.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read elasticsearch response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elasticsearch returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode elasticsearch response: %w", err)
	}

	entries := make([]model.LogEntry, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ts, ok := backend.EpochMillis(hit.Source.Timestamp)
		if !ok {
			ts = b.now()
		}
		entries = append(entries, model.LogEntry{Timestamp: ts, Message: hit.Source.Message})
	}
	slog.Info("elasticsearch query finished", "task", info.TaskID(), "entries", len(entries))
	return entries, nil
}
