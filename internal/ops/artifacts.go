package ops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Object struct {
	Key          string    `json:"key" yaml:"key"`
	Size         int64     `json:"size" yaml:"size"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

type ArtifactLister struct {
	client s3.ListObjectsV2APIClient
	logger *slog.Logger
}

func NewArtifactLister(client s3.ListObjectsV2APIClient, logger *slog.Logger) *ArtifactLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactLister{client: client, logger: logger}
}

// List returns every object under prefix, following continuation tokens.
func (l *ArtifactLister) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for page := 1; paginator.HasMorePages(); page++ {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
		}
		l.logger.Debug("listed artifact page", "bucket", bucket, "page", page, "objects", len(out.Contents))
		for _, o := range out.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}
