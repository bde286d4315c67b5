package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy"
	"github.com/aws/aws-sdk-go-v2/service/codedeploy/types"
)

// Defaults for DeploymentWatcher. The timeout covers a 10%/1m linear shift
// plus the termination wait.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultWaitTimeout  = 30 * time.Minute
)

var (
	ErrDeploymentFailed  = errors.New("deployment did not succeed")
	ErrDeploymentTimeout = errors.New("timed out waiting for deployment")
)

// DeploymentAPI is the part of the CodeDeploy client the watcher uses.
type DeploymentAPI interface {
	GetDeployment(ctx context.Context, params *codedeploy.GetDeploymentInput,
		optFns ...func(*codedeploy.Options)) (*codedeploy.GetDeploymentOutput, error)
}

// DeploymentWatcher polls a blue/green deployment until it reaches a
// terminal state.
type DeploymentWatcher struct {
	client   DeploymentAPI
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

type WatchOption func(*DeploymentWatcher)

func WithPollInterval(d time.Duration) WatchOption {
	return func(w *DeploymentWatcher) { w.interval = d }
}

func WithTimeout(d time.Duration) WatchOption {
	return func(w *DeploymentWatcher) { w.timeout = d }
}

func NewDeploymentWatcher(client DeploymentAPI, logger *slog.Logger, opts ...WatchOption) *DeploymentWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &DeploymentWatcher{
		client:   client,
		logger:   logger,
		interval: DefaultPollInterval,
		timeout:  DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait returns the terminal status of the deployment. Failed and Stopped
// deployments return ErrDeploymentFailed alongside the status.
func (w *DeploymentWatcher) Wait(ctx context.Context, deploymentID string) (types.DeploymentStatus, error) {
	if deploymentID == "" {
		return "", fmt.Errorf("deployment id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watching deployment", "deployment", deploymentID, "timeout", w.timeout)
	var last types.DeploymentStatus
	for {
		status, err := w.status(ctx, deploymentID)
		if err != nil {
			if ctx.Err() != nil {
				return last, fmt.Errorf("%w %s: %w", ErrDeploymentTimeout, deploymentID, ctx.Err())
			}
			return last, err
		}
		if status != last {
			w.logger.Info("deployment status", "deployment", deploymentID, "status", status)
			last = status
		}

		switch status {
		case types.DeploymentStatusSucceeded:
			return status, nil
		case types.DeploymentStatusFailed, types.DeploymentStatusStopped:
			return status, fmt.Errorf("%w: %s ended with status %s", ErrDeploymentFailed, deploymentID, status)
		}

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w %s: %w", ErrDeploymentTimeout, deploymentID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (w *DeploymentWatcher) status(ctx context.Context, deploymentID string) (types.DeploymentStatus, error) {
	out, err := w.client.GetDeployment(ctx, &codedeploy.GetDeploymentInput{
		DeploymentId: aws.String(deploymentID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get deployment status: %w", err)
	}
	if out.DeploymentInfo == nil {
		return "", fmt.Errorf("deployment %s: empty deployment info", deploymentID)
	}
	return out.DeploymentInfo.Status, nil
}
