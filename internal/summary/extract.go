package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// JMESPath expressions over the raw crash-event document. The documents are
// whole EventBridge events, so everything of interest sits under detail.
const (
	exprGroup         = "detail.group"
	exprStoppedReason = "detail.stoppedReason"
	exprTaskDefARN    = "detail.taskDefinitionArn"
	// Containers that actually failed: exit code present and non-zero.
	exprFailedContainers = "detail.containers[?exitCode && exitCode != `0`].{name: name, exitCode: exitCode}"
)

// FailedContainer is one non-zero-exit container pulled from an event.
type FailedContainer struct {
	Name     string
	ExitCode int
}

func stringAt(doc map[string]any, expr string) string {
	res, err := jmespath.Search(expr, doc)
	if err != nil {
		return ""
	}
	if s, ok := res.(string); ok {
		return s
	}
	return ""
}

// serviceName strips the "service:" prefix ECS puts on service-started task
// groups; other group shapes don't identify a service.
func serviceName(doc map[string]any) string {
	group := stringAt(doc, exprGroup)
	if strings.HasPrefix(group, "service:") {
		return strings.TrimPrefix(group, "service:")
	}
	return ""
}

func stoppedReason(doc map[string]any) string {
	if reason := stringAt(doc, exprStoppedReason); reason != "" {
		return reason
	}
	return "Unknown"
}

// taskDefinitionName returns the family:revision tail of the task
// definition ARN.
func taskDefinitionName(doc map[string]any) string {
	arn := stringAt(doc, exprTaskDefARN)
	if arn == "" {
		return ""
	}
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

func failedContainers(doc map[string]any) []FailedContainer {
	res, err := jmespath.Search(exprFailedContainers, doc)
	if err != nil {
		return nil
	}
	items, ok := res.([]any)
	if !ok {
		return nil
	}
	var out []FailedContainer
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fc := FailedContainer{Name: "unknown"}
		if name, ok := m["name"].(string); ok && name != "" {
			fc.Name = name
		}
		if code, ok := m["exitCode"].(float64); ok {
			fc.ExitCode = int(code)
		}
		out = append(out, fc)
	}
	return out
}

// topCounts renders the n highest counts as formatted lines, ties broken by
// key for deterministic output.
func topCounts(counts map[string]int, n int, format string) []string {
	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(counts))
	for k, c := range counts {
		pairs = append(pairs, kv{k, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].key < pairs[j].key
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	items := make([]string, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, fmt.Sprintf(format, p.key, p.count))
	}
	return items
}

func topExitCodes(counts map[int]int, n int) []string {
	keyed := make(map[string]int, len(counts))
	for code, c := range counts {
		keyed[fmt.Sprintf("Exit %d", code)] = c
	}
	return topCounts(keyed, n, "%s: %d occurrences")
}
