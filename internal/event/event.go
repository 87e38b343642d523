// Package event parses ECS task state-change events delivered by
// EventBridge into the crash record the resolution pipeline works on.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// TaskStateChange mirrors the fields of an EventBridge ECS task state-change
// event we consume. Unknown fields are ignored.
type TaskStateChange struct {
	Detail Detail `json:"detail"`
}

// Detail is the event's "detail" object.
type Detail struct {
	ClusterArn        string      `json:"clusterArn"`
	Group             string      `json:"group"`
	TaskArn           string      `json:"taskArn"`
	TaskDefinitionArn string      `json:"taskDefinitionArn"`
	StoppedReason     string      `json:"stoppedReason"`
	StopCode          string      `json:"stopCode"`
	CreatedAt         string      `json:"createdAt"`
	StartedAt         string      `json:"startedAt"`
	LastStatus        string      `json:"lastStatus"`
	DesiredStatus     string      `json:"desiredStatus"`
	Containers        []Container `json:"containers"`
}

// Container is one container status entry inside the event detail.
type Container struct {
	Name     string `json:"name"`
	ExitCode *int32 `json:"exitCode"`
	Reason   string `json:"reason"`
}

// Parse decodes a raw EventBridge event and extracts its crash info.
func Parse(raw []byte) (*model.CrashInfo, error) {
	var ev TaskStateChange
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode task state-change event: %w", err)
	}
	return ExtractCrashInfo(ev.Detail), nil
}

// ExtractCrashInfo builds a CrashInfo from an event detail. The failed
// container is the first one with a non-zero exit code; when none carries an
// exit code (launch failures) the first container is kept for context and the
// task-level stoppedReason holds the error.
func ExtractCrashInfo(detail Detail) *model.CrashInfo {
	info := &model.CrashInfo{
		CreatedAt:             detail.CreatedAt,
		StartedAt:             detail.StartedAt,
		ClusterName:           clusterName(detail.ClusterArn),
		ClusterARN:            detail.ClusterArn,
		ServiceName:           serviceName(detail.Group),
		TaskARN:               detail.TaskArn,
		TaskDefinitionARN:     detail.TaskDefinitionArn,
		TaskDefinitionVersion: taskDefinitionVersion(detail.TaskDefinitionArn),
		StoppedReason:         detail.StoppedReason,
		StopCode:              detail.StopCode,
		LastStatus:            detail.LastStatus,
		DesiredStatus:         detail.DesiredStatus,
	}
	if info.CreatedAt == "" {
		info.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	for _, c := range detail.Containers {
		if c.ExitCode != nil && *c.ExitCode != 0 {
			info.FailedContainer = &model.Container{Name: c.Name, ExitCode: c.ExitCode, Reason: c.Reason}
			break
		}
	}
	if info.FailedContainer == nil && len(detail.Containers) > 0 {
		c := detail.Containers[0]
		// No exit code recorded: keep the container for naming but leave
		// ExitCode nil so downstream formatting reports a launch failure.
		info.FailedContainer = &model.Container{Name: c.Name, Reason: c.Reason}
	}
	return info
}

func clusterName(arn string) string {
	if arn == "" {
		return "unknown"
	}
	i := strings.LastIndex(arn, "/")
	return arn[i+1:]
}

func serviceName(group string) string {
	if strings.HasPrefix(group, "service:") {
		return strings.TrimPrefix(group, "service:")
	}
	return group
}

// taskDefinitionVersion extracts the revision from an ARN like
// arn:aws:ecs:region:account:task-definition/family:revision.
func taskDefinitionVersion(arn string) string {
	if arn == "" {
		return "N/A"
	}
	i := strings.LastIndex(arn, ":")
	return arn[i+1:]
}
