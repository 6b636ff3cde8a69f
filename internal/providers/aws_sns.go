package providers

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/notification"
)

// SNSAPI is the subset of the SNS client used by SNSPublisher
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher implements notification.Publisher on SNS
type SNSPublisher struct {
	client SNSAPI
}

// NewSNSPublisher creates a new SNS backed publisher
func NewSNSPublisher(client SNSAPI) *SNSPublisher {
	return &SNSPublisher{client: client}
}

// Publish sends msg to its topic. FIFO topics get the group and
// deduplication ids, which makes a redelivered event publish only once.
func (p *SNSPublisher) Publish(ctx context.Context, msg notification.Message) (string, error) {
	input := &sns.PublishInput{
		TopicArn: aws.String(msg.Topic),
		Message:  aws.String(msg.Body),
	}
	if msg.Subject != "" {
		input.Subject = aws.String(msg.Subject)
	}
	if isFIFOTopic(msg.Topic) {
		if msg.GroupID != "" {
			input.MessageGroupId = aws.String(msg.GroupID)
		}
		if msg.DeduplicationID != "" {
			input.MessageDeduplicationId = aws.String(msg.DeduplicationID)
		}
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func isFIFOTopic(arn string) bool {
	return strings.HasSuffix(arn, ".fifo")
}
