// Package link builds UI deep links into the hosted log backends. These are
// pure string formatters; no network calls.
package link

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/backend/coralogix"
	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// Coralogix returns a link to the archive-logs view running the same
// DataPrime query the adapter issues. The 1-hour range lives in the URL's
// time parameter rather than in the query itself. Returns "" when the
// account, region or task ARN is missing.
func Coralogix(account, region string, info *model.CrashInfo) string {
	if account == "" || region == "" || info.TaskARN == "" {
		return ""
	}
	query := coralogix.Query(info.ServiceName, info.TaskARN, "", backend.FetchLimit)
	return fmt.Sprintf("https://%s.app.%s.coralogix.com/#/query-new/archive-logs?time=from:now-1h,to:now&querySyntax=dataprime&query=%s",
		account, region, escape(query))
}

// Kibana returns a discover link filtering on the task ARN with a kuery
// expression and a fixed 1-hour time range. Returns "" when the Kibana base
// URL or task ARN is missing.
func Kibana(kibanaURL string, info *model.CrashInfo) string {
	if kibanaURL == "" || info.TaskARN == "" {
		return ""
	}
	base := strings.TrimRight(kibanaURL, "/")
	encodedARN := escape(info.TaskARN)
	return fmt.Sprintf("%s/app/discover#/?_g=(time:(from:now-1h,to:now))&_a=(query:(language:kuery,query:'ecs_task_arn:%%22%s%%22'))",
		base, encodedARN)
}

// escape percent-encodes for URL embedding, with spaces as %20 rather than
// the form-encoding plus sign.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
