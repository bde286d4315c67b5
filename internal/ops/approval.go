package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
)

var ErrNoPendingApproval = errors.New("no pending approval")

// ApprovalAPI is the part of the CodePipeline client the approver uses.
type ApprovalAPI interface {
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput,
		optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
	PutApprovalResult(ctx context.Context, params *codepipeline.PutApprovalResultInput,
		optFns ...func(*codepipeline.Options)) (*codepipeline.PutApprovalResultOutput, error)
}

type ApprovalRequest struct {
	Pipeline string
	Stage    string
	Action   string
	Approve  bool
	Summary  string
}

func (r ApprovalRequest) status() types.ApprovalStatus {
	if r.Approve {
		return types.ApprovalStatusApproved
	}
	return types.ApprovalStatusRejected
}

type Approver struct {
	client ApprovalAPI
	logger *slog.Logger
}

func NewApprover(client ApprovalAPI, logger *slog.Logger) *Approver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Approver{client: client, logger: logger}
}

// Approve answers the approval action that is currently waiting. The token
// comes from the pipeline state, so only an in-progress approval can be
// answered.
func (a *Approver) Approve(ctx context.Context, req ApprovalRequest) error {
	if req.Pipeline == "" || req.Stage == "" || req.Action == "" {
		return fmt.Errorf("pipeline, stage and action are required")
	}

	token, err := a.pendingToken(ctx, req)
	if err != nil {
		return err
	}

	summary := req.Summary
	if summary == "" {
		summary = string(req.status())
	}
	a.logger.Debug("putting approval result",
		"pipeline", req.Pipeline, "stage", req.Stage, "action", req.Action, "status", req.status())
	_, err = a.client.PutApprovalResult(ctx, &codepipeline.PutApprovalResultInput{
		PipelineName: aws.String(req.Pipeline),
		StageName:    aws.String(req.Stage),
		ActionName:   aws.String(req.Action),
		Token:        aws.String(token),
		Result: &types.ApprovalResult{
			Status:  req.status(),
			Summary: aws.String(summary),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put approval result: %w", err)
	}
	a.logger.Info("approval recorded", "pipeline", req.Pipeline, "action", req.Action, "status", req.status())
	return nil
}

func (a *Approver) pendingToken(ctx context.Context, req ApprovalRequest) (string, error) {
	out, err := a.client.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{
		Name: aws.String(req.Pipeline),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get pipeline state: %w", err)
	}

	for _, stage := range out.StageStates {
		if aws.ToString(stage.StageName) != req.Stage {
			continue
		}
		for _, action := range stage.ActionStates {
			if aws.ToString(action.ActionName) != req.Action {
				continue
			}
			exec := action.LatestExecution
			if exec == nil || exec.Status != types.ActionExecutionStatusInProgress || aws.ToString(exec.Token) == "" {
				return "", fmt.Errorf("%w: %s/%s", ErrNoPendingApproval, req.Stage, req.Action)
			}
			return aws.ToString(exec.Token), nil
		}
		return "", fmt.Errorf("action %q not found in stage %q", req.Action, req.Stage)
	}
	return "", fmt.Errorf("stage %q not found in pipeline %q", req.Stage, req.Pipeline)
}
