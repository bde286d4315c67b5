package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/30Piraten/ecs-pipeline/topology"
)

var ErrSecretDeleted = errors.New("secret is scheduled for deletion")

// SecretsAPI is deliberately limited to metadata; the checker never reads
// a secret value.
type SecretsAPI interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

type SecretStatus struct {
	Ref         string
	ARN         string
	LastChanged time.Time
}

type SecretChecker struct {
	client SecretsAPI
	logger *slog.Logger
}

func NewSecretChecker(client SecretsAPI, logger *slog.Logger) *SecretChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecretChecker{client: client, logger: logger}
}

// Check confirms the store behind a source token exists and is live.
func (c *SecretChecker) Check(ctx context.Context, secret topology.SecretAccessor) (SecretStatus, error) {
	ref := secret.Ref()
	if ref.IsZero() {
		return SecretStatus{}, fmt.Errorf("secret reference is empty")
	}

	c.logger.Debug("describing secret", "secret", secret.String())
	out, err := c.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(ref.Store),
	})
	if err != nil {
		return SecretStatus{}, fmt.Errorf("failed to describe secret %s: %w", secret, err)
	}
	if out.DeletedDate != nil {
		return SecretStatus{}, fmt.Errorf("%w: %s", ErrSecretDeleted, secret)
	}

	return SecretStatus{
		Ref:         secret.String(),
		ARN:         aws.ToString(out.ARN),
		LastChanged: aws.ToTime(out.LastChangedDate),
	}, nil
}
