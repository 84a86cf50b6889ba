package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/aggregator"
)

// CloudWatchAPI is the subset of the CloudWatch client used here
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	GetMetricStatistics(ctx context.Context, in *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchReporter publishes cycle summaries as custom metrics.
// It implements aggregator.CycleReporter.
type CloudWatchReporter struct {
	client    CloudWatchAPI
	namespace string
}

// NewCloudWatchReporter creates a reporter from a loaded AWS config
func NewCloudWatchReporter(cfg aws.Config, namespace string) *CloudWatchReporter {
	return NewCloudWatchReporterWithClient(cloudwatch.NewFromConfig(cfg), namespace)
}

// NewCloudWatchReporterWithClient creates a reporter over an existing client
func NewCloudWatchReporterWithClient(client CloudWatchAPI, namespace string) *CloudWatchReporter {
	return &CloudWatchReporter{client: client, namespace: namespace}
}

// ReportCycle puts one datum per counter plus one PrefixStatus datum per status code
func (r *CloudWatchReporter) ReportCycle(ctx context.Context, summary aggregator.CycleSummary) error {
	ts := aws.Time(summary.StartedAt.Add(summary.Duration))
	count := func(name string, v int) cwTypes.MetricDatum {
		return cwTypes.MetricDatum{
			MetricName: aws.String(name),
			Timestamp:  ts,
			Unit:       cwTypes.StandardUnitCount,
			Value:      aws.Float64(float64(v)),
		}
	}

	data := []cwTypes.MetricDatum{
		count("PrefixesEvaluated", summary.Evaluated),
		count("PrefixesFailed", summary.Failed),
		count("AlertsCreated", summary.AlertsCreated),
		{
			MetricName: aws.String("CycleDuration"),
			Timestamp:  ts,
			Unit:       cwTypes.StandardUnitSeconds,
			Value:      aws.Float64(summary.Duration.Seconds()),
		},
	}
	for _, code := range models.AllStatusCodes {
		d := count("PrefixStatus", summary.ByStatus[code])
		d.Dimensions = []cwTypes.Dimension{{Name: aws.String("Status"), Value: aws.String(string(code))}}
		data = append(data, d)
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data to %s: %w", r.namespace, err)
	}
	return nil
}

// BucketStorage is the latest daily S3 storage metric for a bucket
type BucketStorage struct {
	Objects   int64
	Bytes     int64
	Timestamp *time.Time
}

// BucketStorage reads the AWS/S3 daily storage metrics for a bucket over the
// last lookback. Missing datapoints leave the corresponding field at zero.
func (r *CloudWatchReporter) BucketStorage(ctx context.Context, bucketName string, now time.Time, lookback time.Duration) (BucketStorage, error) {
	var out BucketStorage

	size, ts, err := r.latestDaily(ctx, bucketName, "BucketSizeBytes", "StandardStorage", now, lookback)
	if err != nil {
		return out, err
	}
	out.Bytes, out.Timestamp = size, ts

	objects, ts, err := r.latestDaily(ctx, bucketName, "NumberOfObjects", "AllStorageTypes", now, lookback)
	if err != nil {
		return out, err
	}
	out.Objects = objects
	if out.Timestamp == nil {
		out.Timestamp = ts
	}
	return out, nil
}

func (r *CloudWatchReporter) latestDaily(ctx context.Context, bucketName, metric, storageType string, now time.Time, lookback time.Duration) (int64, *time.Time, error) {
	result, err := r.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/S3"),
		MetricName: aws.String(metric),
		Dimensions: []cwTypes.Dimension{
			{Name: aws.String("BucketName"), Value: aws.String(bucketName)},
			{Name: aws.String("StorageType"), Value: aws.String(storageType)},
		},
		StartTime:  aws.Time(now.Add(-lookback)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(86400), // 1 day
		Statistics: []cwTypes.Statistic{cwTypes.StatisticAverage},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("get %s for %s: %w", metric, bucketName, err)
	}

	points := result.Datapoints
	if len(points) == 0 {
		return 0, nil, nil
	}
	// Most recent first
	sort.Slice(points, func(i, j int) bool {
		return aws.ToTime(points[i].Timestamp).After(aws.ToTime(points[j].Timestamp))
	})
	var v int64
	if points[0].Average != nil {
		v = int64(*points[0].Average)
	}
	return v, points[0].Timestamp, nil
}
