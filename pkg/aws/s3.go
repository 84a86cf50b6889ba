package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// S3API is the subset of the S3 client used by S3Checker
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketLocation(ctx context.Context, in *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
}

// S3Checker checks that registered buckets exist and live where the registry says
type S3Checker struct {
	client S3API
}

// NewS3Checker creates a checker from a loaded AWS config
func NewS3Checker(cfg aws.Config) *S3Checker {
	return NewS3CheckerWithClient(s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}))
}

// NewS3CheckerWithClient creates a checker over an existing client
func NewS3CheckerWithClient(client S3API) *S3Checker {
	return &S3Checker{client: client}
}

// BucketCheck is the result of checking one bucket
type BucketCheck struct {
	BucketName     string
	ExpectedRegion string
	ActualRegion   string
	Err            error
}

// RegionMismatch reports whether the bucket lives outside its registered region
func (p BucketCheck) RegionMismatch() bool {
	return p.Err == nil && p.ExpectedRegion != "" && p.ActualRegion != p.ExpectedRegion
}

// CheckBucket checks the bucket is accessible and resolves its region
func (p *S3Checker) CheckBucket(ctx context.Context, bucketName, expectedRegion string) BucketCheck {
	result := BucketCheck{BucketName: bucketName, ExpectedRegion: expectedRegion}

	if _, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		result.Err = fmt.Errorf("bucket not accessible: %w", err)
		return result
	}

	region, err := p.BucketRegion(ctx, bucketName)
	if err != nil {
		result.Err = err
		return result
	}
	result.ActualRegion = region
	return result
}

// BucketRegion determines the region for a bucket
func (p *S3Checker) BucketRegion(ctx context.Context, bucketName string) (string, error) {
	location, err := p.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		return "", fmt.Errorf("get bucket location %s: %w", bucketName, err)
	}

	// An empty LocationConstraint means us-east-1
	region := utils.GetDefaultRegion()
	if location.LocationConstraint != "" {
		region = string(location.LocationConstraint)
	}
	return region, nil
}
