// Package ops holds the operator-side calls made against a deployed
// pipeline: waiting on blue/green deployments, answering manual approvals,
// checking the source token secret and listing build artifacts.
package ops

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Clients bundles the SDK clients the operator commands need. They share
// one loaded AWS config.
type Clients struct {
	CodeDeploy     *codedeploy.Client
	CodePipeline   *codepipeline.Client
	SecretsManager *secretsmanager.Client
	S3             *s3.Client
}

// NewClients loads the default credential chain pinned to region.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	if region == "" {
		return nil, fmt.Errorf("region is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Clients{
		CodeDeploy:     codedeploy.NewFromConfig(cfg),
		CodePipeline:   codepipeline.NewFromConfig(cfg),
		SecretsManager: secretsmanager.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
	}, nil
}
