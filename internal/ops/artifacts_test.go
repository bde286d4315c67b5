package ops

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	pages  [][]string
	inputs []*s3.ListObjectsV2Input
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, params)

	page := 0
	if params.ContinuationToken != nil {
		page = int(aws.ToString(params.ContinuationToken)[0] - '0')
	}
	out := &s3.ListObjectsV2Output{}
	for _, key := range f.pages[page] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(key))),
			LastModified: aws.Time(time.Unix(0, 0).UTC()),
		})
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + page + 1)))
	}
	return out, nil
}

func TestArtifactLister_FollowsPages(t *testing.T) {
	fake := &fakeBucket{pages: [][]string{
		{"CICD_Pipeline/SourceOutp/a.zip", "CICD_Pipeline/SourceOutp/b.zip"},
		{"CICD_Pipeline/DockerBuil/c.zip"},
	}}

	objects, err := NewArtifactLister(fake, discardLogger()).List(context.Background(), "artifacts", "CICD_Pipeline/")
	require.NoError(t, err)

	require.Len(t, objects, 3)
	assert.Equal(t, "CICD_Pipeline/DockerBuil/c.zip", objects[2].Key)
	assert.Equal(t, int64(len("CICD_Pipeline/DockerBuil/c.zip")), objects[2].Size)
	require.Len(t, fake.inputs, 2)
	assert.Equal(t, "CICD_Pipeline/", aws.ToString(fake.inputs[0].Prefix))
	assert.Equal(t, "1", aws.ToString(fake.inputs[1].ContinuationToken))
}

func TestArtifactLister_EmptyBucket(t *testing.T) {
	fake := &fakeBucket{pages: [][]string{nil}}

	objects, err := NewArtifactLister(fake, discardLogger()).List(context.Background(), "artifacts", "")
	require.NoError(t, err)
	assert.Empty(t, objects)
	assert.Nil(t, fake.inputs[0].Prefix)
}

func TestArtifactLister_RequiresBucket(t *testing.T) {
	_, err := NewArtifactLister(&fakeBucket{}, discardLogger()).List(context.Background(), "", "")
	require.Error(t, err)
}
