// Package taskdef resolves a crashed container's awslogs routing from its
// ECS task definition. The task definition is the only authoritative source
// for log routing; guessing a group from naming convention finds nothing when
// the convention is wrong, so nothing here is inferred or defaulted.
package taskdef

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/Nao-Mk2/ecs-crash-notifier/internal/model"
)

// ECSAPI is the subset of the ECS API we use.
type ECSAPI interface {
	DescribeTaskDefinition(ctx context.Context, params *ecs.DescribeTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
}

// LogGroupConfig is an immutable snapshot of one container's awslogs routing,
// taken fresh from the task definition on every resolution.
type LogGroupConfig struct {
	Group        string
	StreamPrefix string
	Region       string
}

// Resolver looks up log routing for crashed containers.
type Resolver struct {
	api ECSAPI
}

// NewResolver creates a Resolver backed by the given ECS API.
func NewResolver(api ECSAPI) *Resolver {
	return &Resolver{api: api}
}

// ResolveLogGroupConfig returns the awslogs options for the crashed
// container, matched by exact container name against the task definition.
// It returns (nil, nil) when the task definition has no matching container
// or the container does not use the awslogs driver; only API failures
// surface as errors.
func (r *Resolver) ResolveLogGroupConfig(ctx context.Context, info *model.CrashInfo) (*LogGroupConfig, error) {
	if info.TaskDefinitionARN == "" {
		slog.Info("no task definition ARN on crash event; cannot resolve log config")
		return nil, nil
	}
	containerName := info.ContainerName()
	if containerName == "" {
		slog.Info("no container name on crash event; cannot resolve log config")
		return nil, nil
	}

	out, err := r.api.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(info.TaskDefinitionARN),
	})
	if err != nil {
		return nil, fmt.Errorf("describe task definition %s: %w", info.TaskDefinitionARN, err)
	}
	if out.TaskDefinition == nil {
		return nil, nil
	}

	for _, def := range out.TaskDefinition.ContainerDefinitions {
		if aws.ToString(def.Name) != containerName {
			continue
		}
		if def.LogConfiguration == nil || def.LogConfiguration.LogDriver != types.LogDriverAwslogs {
			slog.Info("container does not use awslogs driver",
				"container", containerName,
				"driver", driverName(def.LogConfiguration))
			return nil, nil
		}
		opts := def.LogConfiguration.Options
		cfg := &LogGroupConfig{
			Group:        opts["awslogs-group"],
			StreamPrefix: opts["awslogs-stream-prefix"],
			Region:       opts["awslogs-region"],
		}
		if cfg.Group == "" {
			slog.Warn("awslogs driver configured without a log group", "container", containerName)
			return nil, nil
		}
		return cfg, nil
	}

	slog.Info("container not found in task definition", "container", containerName)
	return nil, nil
}

func driverName(lc *types.LogConfiguration) string {
	if lc == nil {
		return "none"
	}
	return string(lc.LogDriver)
}
