// Package notify posts crash notifications and daily summaries to Slack via
// the bot Web API, attaching resolved logs as an uploaded text file.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/config"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/link"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/resolver"
)

// Notifier sends messages through the Slack bot API.
type Notifier struct {
	settings *config.Settings
	client   *http.Client
	baseURL  string
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBaseURL overrides the Slack API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(n *Notifier) { n.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// New creates a Notifier from settings.
func New(settings *config.Settings, opts ...Option) *Notifier {
	n := &Notifier{
		settings: settings,
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  "https://slack.com/api",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type apiResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	TS        string `json:"ts"`
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

// SendCrashNotification posts the crash message, attaching the resolved logs
// as a file when any were found.
func (n *Notifier) SendCrashNotification(ctx context.Context, info *model.CrashInfo, res resolver.Result) error {
	if !n.settings.Slack.Configured() {
		return fmt.Errorf("slack bot token and channel must be configured")
	}

	label, uiURL := n.logSourceLink(info, res)
	blocks := crashBlocks(info, label, uiURL)
	fallback := fmt.Sprintf("🚨 Task Crash: %s in %s", info.ServiceName, info.ClusterName)

	if res.Found() {
		return n.sendWithFile(ctx, info, res, blocks)
	}
	return n.postMessage(ctx, blocks, fallback)
}

// SendSummary posts pre-built summary blocks with a plain fallback text.
func (n *Notifier) SendSummary(ctx context.Context, blocks []Block, fallback string) error {
	if !n.settings.Slack.Configured() {
		return fmt.Errorf("slack bot token and channel must be configured")
	}
	return n.postMessage(ctx, blocks, fallback)
}

func (n *Notifier) logSourceLink(info *model.CrashInfo, res resolver.Result) (label, uiURL string) {
	switch res.Source {
	case backend.KindCoralogix:
		return "Coralogix", link.Coralogix(n.settings.Coralogix.Account, n.settings.Coralogix.Region, info)
	case backend.KindElasticsearch:
		return "Kibana", link.Kibana(n.settings.KibanaURL, info)
	}
	return "", ""
}

func (n *Notifier) postMessage(ctx context.Context, blocks []Block, fallback string) error {
	payload := map[string]any{
		"channel": n.settings.Slack.Channel,
		"blocks":  blocks,
		"text":    fallback,
	}
	resp, err := n.postJSON(ctx, "/chat.postMessage", payload)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("slack chat.postMessage failed: %s", resp.Error)
	}
	return nil
}

// sendWithFile runs the three-step external upload: reserve an upload URL,
// POST the file body to it, then complete the upload with the message blocks
// so Slack delivers file and notification as one message.
func (n *Notifier) sendWithFile(ctx context.Context, info *model.CrashInfo, res resolver.Result, blocks []Block) error {
	filename := logFileName(info)
	content := logFileContent(string(res.Source), res.Entries)

	form := url.Values{}
	form.Set("filename", filename)
	form.Set("length", strconv.Itoa(len(content)))
	reserve, err := n.postForm(ctx, "/files.getUploadURLExternal", form)
	if err != nil {
		return err
	}
	if !reserve.OK {
		return fmt.Errorf("slack files.getUploadURLExternal failed: %s", reserve.Error)
	}
	if reserve.UploadURL == "" || reserve.FileID == "" {
		return fmt.Errorf("slack upload reservation missing upload_url or file_id")
	}

	if err := n.uploadFile(ctx, reserve.UploadURL, filename, content); err != nil {
		return fmt.Errorf("upload log file: %w", err)
	}

	complete := map[string]any{
		"files": []map[string]string{{
			"id":    reserve.FileID,
			"title": fmt.Sprintf("Crash logs for %s (Task: %s)", info.ServiceName, taskIDOrUnknown(info)),
		}},
		"channel_id": n.settings.Slack.Channel,
		"blocks":     blocks,
	}
	resp, err := n.postJSON(ctx, "/files.completeUploadExternal", complete)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("slack files.completeUploadExternal failed: %s", resp.Error)
	}
	slog.Info("crash notification sent with log attachment", "file", filename)
	return nil
}

func (n *Notifier) uploadFile(ctx context.Context, uploadURL, filename, content string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) postJSON(ctx context.Context, path string, payload any) (*apiResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.settings.Slack.BotToken)
	return n.do(req)
}

func (n *Notifier) postForm(ctx context.Context, path string, form url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+n.settings.Slack.BotToken)
	return n.do(req)
}

func (n *Notifier) do(req *http.Request) (*apiResponse, error) {
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read slack response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode slack response: %w", err)
	}
	return &parsed, nil
}

// logFileName builds a filesystem-safe attachment name from the service name
// and task id.
func logFileName(info *model.CrashInfo) string {
	var b strings.Builder
	for _, r := range info.ServiceName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	return fmt.Sprintf("%s_%s_logs.txt", safe, taskIDOrUnknown(info))
}
