package client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// NewCloudWatchLogsClient loads AWS configuration and returns a CloudWatch
// Logs client. region may be empty to use default resolution; the CloudWatch
// backend passes the region from the task definition's awslogs options so the
// query lands in the region the container actually logged to.
func NewCloudWatchLogsClient(ctx context.Context, region string) (*cloudwatchlogs.Client, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}

// NewECSClient loads AWS configuration and returns an ECS client used for
// task-definition lookups. region may be empty to use default resolution.
func NewECSClient(ctx context.Context, region string) (*ecs.Client, error) {
	cfg, err := loadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return ecs.NewFromConfig(cfg), nil
}

func loadConfig(ctx context.Context, region string) (aws.Config, error) {
	var cfgOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
}
