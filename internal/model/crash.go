package model

import "strings"

// Container is one container entry from a task state-change event.
type Container struct {
	Name     string
	ExitCode *int32
	Reason   string
}

// CrashInfo is the per-event working record for one crashed task. It is
// created from the incoming event, enriched by the resolution pipeline and
// discarded once the notification is dispatched.
type CrashInfo struct {
	CreatedAt             string
	StartedAt             string
	ClusterName           string
	ClusterARN            string
	ServiceName           string
	TaskARN               string
	TaskDefinitionARN     string
	TaskDefinitionVersion string
	StoppedReason         string
	StopCode              string
	LastStatus            string
	DesiredStatus         string

	// FailedContainer is the container selected as the failure origin. A nil
	// ExitCode on it signals a launch failure rather than a runtime failure.
	FailedContainer *Container
}

// TaskID returns the final path segment of the task ARN, or "" when the ARN
// is absent. ECS task ARNs end in ".../<task-id>".
func (c *CrashInfo) TaskID() string {
	if c.TaskARN == "" {
		return ""
	}
	i := strings.LastIndex(c.TaskARN, "/")
	return c.TaskARN[i+1:]
}

// ExitCode returns the failed container's exit code, or nil for launch
// failures and events without container detail.
func (c *CrashInfo) ExitCode() *int32 {
	if c.FailedContainer == nil {
		return nil
	}
	return c.FailedContainer.ExitCode
}

// ContainerName returns the failed container's name, or "" when unknown.
func (c *CrashInfo) ContainerName() string {
	if c.FailedContainer == nil {
		return ""
	}
	return c.FailedContainer.Name
}
