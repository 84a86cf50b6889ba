package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	headErr  error
	location types.BucketLocationConstraint
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) GetBucketLocation(_ context.Context, _ *s3.GetBucketLocationInput, _ ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	return &s3.GetBucketLocationOutput{LocationConstraint: f.location}, nil
}

func TestS3CheckRegion(t *testing.T) {
	p := NewS3CheckerWithClient(&fakeS3{})
	got := p.CheckBucket(context.Background(), "data-bucket", "us-east-1")
	require.NoError(t, got.Err)
	assert.Equal(t, "us-east-1", got.ActualRegion)
	assert.False(t, got.RegionMismatch())

	p = NewS3CheckerWithClient(&fakeS3{location: types.BucketLocationConstraintApNortheast2})
	got = p.CheckBucket(context.Background(), "data-bucket", "us-east-1")
	assert.Equal(t, "ap-northeast-2", got.ActualRegion)
	assert.True(t, got.RegionMismatch())
}

func TestS3CheckInaccessible(t *testing.T) {
	cause := errors.New("forbidden")
	got := NewS3CheckerWithClient(&fakeS3{headErr: cause}).CheckBucket(context.Background(), "data-bucket", "us-east-1")
	assert.ErrorIs(t, got.Err, cause)
	assert.False(t, got.RegionMismatch())
}
