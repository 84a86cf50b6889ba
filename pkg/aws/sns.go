package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/younsl/bucketpulse/internal/models"
)

// maxSubjectLen is the SNS limit for email subjects, in characters
const maxSubjectLen = 100

// SNSAPI is the subset of the SNS client used by SNSNotifier
type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes alerts to an SNS topic. It implements alerting.Notifier.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier creates a notifier from a loaded AWS config
func NewSNSNotifier(cfg aws.Config, topicARN string) *SNSNotifier {
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), topicARN)
}

// NewSNSNotifierWithClient creates a notifier over an existing client
func NewSNSNotifierWithClient(client SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Notify publishes the alert as JSON with severity and type as message attributes
func (n *SNSNotifier) Notify(ctx context.Context, alert models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.AlertID, err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(alertSubject(alert)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"severity": stringAttribute(string(alert.Severity)),
			"type":     stringAttribute(string(alert.Type)),
			"bucket":   stringAttribute(alert.BucketName),
		},
	})
	if err != nil {
		return fmt.Errorf("publish alert %s to %s: %w", alert.AlertID, n.topicARN, err)
	}
	return nil
}

func alertSubject(alert models.Alert) string {
	subject := fmt.Sprintf("[%s] %s s3://%s/%s", alert.Severity, alert.Type, alert.BucketName, alert.Prefix)
	if runes := []rune(subject); len(runes) > maxSubjectLen {
		subject = string(runes[:maxSubjectLen-3]) + "..."
	}
	return subject
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}
