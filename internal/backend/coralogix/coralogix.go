// Package coralogix queries the Coralogix DataPrime API for a crashed
// task's logs. The query endpoint streams newline-delimited JSON objects
// rather than a single document; only lines carrying a result.results field
// contribute log records.
package coralogix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Backend implements backend.Fetcher against the DataPrime query API.
type Backend struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() int64
}

// Option configures a Backend.
type Option func(*Backend)

// WithBaseURL overrides the regional API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(b *Backend) { b.baseURL = u }
}

// New creates a Backend from settings. httpClient may be nil to use a client
// with the standard 30s request timeout.
func New(cfg config.CoralogixConfig, httpClient *http.Client, opts ...Option) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	b := &Backend{
		apiKey:  cfg.APIKey,
		baseURL: fmt.Sprintf("https://api.%s.coralogix.com", cfg.Region),
		client:  httpClient,
		now:     model.NowMillis,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Query builds the DataPrime query for one crashed task. window is a
// DataPrime relative range like "1h"; empty means no range clause (used for
// UI links, where the range lives in the URL instead).
func Query(serviceName, taskARN, window string, limit int) string {
	src := "source logs"
	if window != "" {
		src += " last " + window
	}
	return fmt.Sprintf("%s | filter $l.subsystemname ~ '%s' | filter $d.ecs_task_arn ~ '%s' | limit %d",
		src, serviceName, taskARN, limit)
}

type queryRequest struct {
	Query    string        `json:"query"`
	Metadata queryMetadata `json:"metadata"`
}

type queryMetadata struct {
	Tier string `json:"tier"`
}

// responseLine is one NDJSON line of the streaming response. Lines other
// than result lines (query IDs, warnings) decode with a nil Result.
type responseLine struct {
	Result *resultBlock `json:"result"`
}

type resultBlock struct {
	Results []record `json:"results"`
}

// record is one raw DataPrime log record. Data holds the structured log
// body; older pipelines deliver the body as a JSON blob in UserData instead.
type record struct {
	Data     map[string]any `json:"data"`
	UserData string         `json:"userData"`
	Metadata []metadataPair `json:"metadata"`
}

type metadataPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fetch queries the last hour of logs for the task, newest first.
func (b *Backend) Fetch(ctx context.Context, info *model.CrashInfo) ([]model.LogEntry, error) {
	if info.TaskARN == "" {
		return nil, nil
	}

	query := Query(info.ServiceName, info.TaskARN, "1h", backend.FetchLimit)
	payload, err := json.Marshal(queryRequest{Query: query, Metadata: queryMetadata{Tier: "TIER_ARCHIVE"}})
	if err != nil {
		return nil, fmt.Errorf("marshal dataprime request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/v1/dataprime/query", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataprime request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dataprime response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dataprime returned status %d", resp.StatusCode)
	}

	records := collectRecords(raw)
	entries := make([]model.LogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, model.LogEntry{
			Timestamp: b.timestampOf(rec),
			Message:   messageOf(rec),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp > entries[j].Timestamp })

	slog.Info("coralogix query finished", "task", info.TaskID(), "entries", len(entries))
	return entries, nil
}

// collectRecords splits the streaming body on newlines and gathers records
// from every result line. Lines that fail to parse are skipped; the stream
// interleaves non-JSON keepalives with result objects.
func collectRecords(raw []byte) []record {
	var records []record
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var parsed responseLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			slog.Warn("skipping unparsable dataprime response line", "error", err)
			continue
		}
		if parsed.Result != nil {
			records = append(records, parsed.Result.Results...)
		}
	}
	return records
}

// messageOf collapses a raw record to a single message string. Precedence:
// data.message, data.log, the data blob itself, then the same sequence over
// the legacy userData JSON blob, then the whole record as a last resort.
func messageOf(rec record) string {
	if len(rec.Data) > 0 {
		return messageFromBody(rec.Data)
	}
	if rec.UserData != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(rec.UserData), &parsed); err == nil {
			return messageFromBody(parsed)
		}
		return rec.UserData
	}
	return stringify(rec)
}

func messageFromBody(body map[string]any) string {
	if msg := stringField(body, "message"); msg != "" {
		return msg
	}
	if msg := stringField(body, "log"); msg != "" {
		return msg
	}
	return stringify(body)
}

func stringField(body map[string]any, key string) string {
	v, ok := body[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// timestampOf reads the record timestamp from the metadata pair whose key is
// "timestamp". Absent or unparsable values fall back to the current time.
func (b *Backend) timestampOf(rec record) int64 {
	for _, pair := range rec.Metadata {
		if pair.Key != "timestamp" {
			continue
		}
		if ts, ok := backend.EpochMillis(pair.Value); ok {
			return ts
		}
		slog.Warn("unparsable dataprime timestamp", "value", pair.Value)
		break
	}
	return b.now()
}
