package providers

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
	"github.com/pratik-mahalle/ec2-automations/internal/domain/notification"
)

type fakeEC2 struct {
	pages     []*ec2.DescribeInstancesOutput
	inputs    []*ec2.DescribeInstancesInput
	err       error
	stopOut   *ec2.StopInstancesOutput
	startErr  error
	tagInputs []*ec2.CreateTagsInput
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	page := len(f.inputs) - 1
	if page >= len(f.pages) {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	return f.pages[page], nil
}

func (f *fakeEC2) StartInstances(ctx context.Context, in *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	out := &ec2.StartInstancesOutput{}
	for _, id := range in.InstanceIds {
		out.StartingInstances = append(out.StartingInstances, types.InstanceStateChange{InstanceId: aws.String(id)})
	}
	return out, nil
}

func (f *fakeEC2) StopInstances(ctx context.Context, in *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	return f.stopOut, nil
}

func (f *fakeEC2) CreateTags(ctx context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	f.tagInputs = append(f.tagInputs, in)
	return &ec2.CreateTagsOutput{}, nil
}

func ec2Instance(id, state string, tags ...string) types.Instance {
	inst := types.Instance{
		InstanceId: aws.String(id),
		State:      &types.InstanceState{Name: types.InstanceStateName(state)},
	}
	for i := 0; i+1 < len(tags); i += 2 {
		inst.Tags = append(inst.Tags, types.Tag{Key: aws.String(tags[i]), Value: aws.String(tags[i+1])})
	}
	return inst
}

func TestEC2Compute_DescribeByTagFollowsPages(t *testing.T) {
	client := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
		{
			Reservations: []types.Reservation{{Instances: []types.Instance{ec2Instance("i-1", "running", "Action", "Auto-Stop", "Name", "web")}}},
			NextToken:    aws.String("page-2"),
		},
		{
			Reservations: []types.Reservation{{Instances: []types.Instance{ec2Instance("i-2", "stopped", "Action", "Auto-Start")}}},
		},
	}}

	got, err := NewEC2Compute(client).DescribeByTag(context.Background(), "Action", []string{"Auto-Stop", "Auto-Start"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "i-1", got[0].ID)
	assert.Equal(t, "web", got[0].Name)
	assert.Equal(t, "running", got[0].State)
	assert.Equal(t, "i-2", got[1].ID)

	require.Len(t, client.inputs, 2)
	assert.Equal(t, "page-2", aws.ToString(client.inputs[1].NextToken))
	filters := client.inputs[0].Filters
	require.Len(t, filters, 2)
	assert.Equal(t, "tag:Action", aws.ToString(filters[0].Name))
	assert.Equal(t, []string{"Auto-Stop", "Auto-Start"}, filters[0].Values)
	assert.NotContains(t, filters[1].Values, "terminated")
}

func TestEC2Compute_DescribeNotFound(t *testing.T) {
	client := &fakeEC2{err: &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound", Message: "gone"}}

	_, err := NewEC2Compute(client).Describe(context.Background(), "i-404")

	assert.ErrorIs(t, err, instance.ErrNotFound)
}

func TestEC2Compute_StopReportsMissingStateChanges(t *testing.T) {
	client := &fakeEC2{stopOut: &ec2.StopInstancesOutput{
		StoppingInstances: []types.InstanceStateChange{{InstanceId: aws.String("i-1")}},
	}}

	res, err := NewEC2Compute(client).Stop(context.Background(), []string{"i-1", "i-2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"i-1", "i-2"}, res.Attempted)
	assert.Equal(t, []string{"i-1"}, res.Succeeded)
	assert.Contains(t, res.Failed, "i-2")
}

func TestEC2Compute_StartAPIErrorFailsBatch(t *testing.T) {
	client := &fakeEC2{startErr: &smithy.GenericAPIError{Code: "IncorrectInstanceState", Message: "terminated"}}

	res, err := NewEC2Compute(client).Start(context.Background(), []string{"i-1", "i-2"})

	require.Error(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, "IncorrectInstanceState: terminated", res.Failed["i-1"])
	assert.Equal(t, "IncorrectInstanceState: terminated", res.Failed["i-2"])
}

func TestEC2Compute_EmptyBatchMakesNoCall(t *testing.T) {
	client := &fakeEC2{startErr: errors.New("must not be called")}

	res, err := NewEC2Compute(client).Start(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, res.Attempted)
}

func TestEC2Compute_TagSortsKeys(t *testing.T) {
	client := &fakeEC2{}

	err := NewEC2Compute(client).Tag(context.Background(), []string{"i-1"}, []instance.Tag{
		{Key: "Owner", Value: "AutoTagging"},
		{Key: "LaunchDate", Value: "2024-05-01"},
	})
	require.NoError(t, err)

	require.Len(t, client.tagInputs, 1)
	in := client.tagInputs[0]
	assert.Equal(t, []string{"i-1"}, in.Resources)
	assert.Equal(t, "LaunchDate", aws.ToString(in.Tags[0].Key))
	assert.Equal(t, "Owner", aws.ToString(in.Tags[1].Key))
}

type fakeS3 struct {
	pages     []*s3.ListObjectsV2Output
	listCalls []*s3.ListObjectsV2Input
	put       *s3.PutObjectInput
	putBody   []byte
	deleteErr error
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listCalls = append(f.listCalls, in)
	page := len(f.listCalls) - 1
	if page >= len(f.pages) {
		return &s3.ListObjectsV2Output{}, nil
	}
	return f.pages[page], nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.putBody = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, f.deleteErr
}

func TestS3Store_ListFollowsContinuation(t *testing.T) {
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeS3{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []s3types.Object{{Key: aws.String("logs/a"), LastModified: &modified, Size: aws.Int64(10)}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		},
		{
			Contents:    []s3types.Object{{Key: aws.String("logs/b"), LastModified: &modified}},
			IsTruncated: aws.Bool(false),
		},
	}}

	objects, err := NewS3Store(client).List(context.Background(), "app-logs", "logs/")
	require.NoError(t, err)

	require.Len(t, objects, 2)
	assert.Equal(t, "logs/a", objects[0].Key)
	assert.Equal(t, int64(10), objects[0].Size)
	assert.Equal(t, modified, objects[1].LastModified)
	require.Len(t, client.listCalls, 2)
	assert.Equal(t, "logs/", aws.ToString(client.listCalls[0].Prefix))
	assert.Equal(t, "next", aws.ToString(client.listCalls[1].ContinuationToken))
}

func TestS3Store_Put(t *testing.T) {
	client := &fakeS3{}

	err := NewS3Store(client).Put(context.Background(), "bucket", "i-1-terminated.json", []byte(`{}`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, "bucket", aws.ToString(client.put.Bucket))
	assert.Equal(t, "i-1-terminated.json", aws.ToString(client.put.Key))
	assert.Equal(t, "application/json", aws.ToString(client.put.ContentType))
	assert.Equal(t, []byte(`{}`), client.putBody)
}

func TestS3Store_DeleteMissingKeySucceeds(t *testing.T) {
	store := NewS3Store(&fakeS3{deleteErr: &s3types.NoSuchKey{}})
	assert.NoError(t, store.Delete(context.Background(), "bucket", "gone"))

	store = NewS3Store(&fakeS3{deleteErr: &smithy.GenericAPIError{Code: "AccessDenied"}})
	assert.Error(t, store.Delete(context.Background(), "bucket", "locked"))
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSPublisher_Publish(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		wantGroup bool
	}{
		{"standard topic", "arn:aws:sns:us-east-1:123456789012:ec2-state", false},
		{"fifo topic", "arn:aws:sns:us-east-1:123456789012:ec2-state.fifo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSNS{}

			id, err := NewSNSPublisher(client).Publish(context.Background(), notification.Message{
				Topic:           tt.topic,
				Subject:         "EC2 State Change Notification",
				Body:            "EC2 Instance i-1 is now stopped.",
				GroupID:         "i-1",
				DeduplicationID: "evt-1",
			})
			require.NoError(t, err)

			assert.Equal(t, "m-1", id)
			assert.Equal(t, tt.topic, aws.ToString(client.input.TopicArn))
			assert.Equal(t, "EC2 Instance i-1 is now stopped.", aws.ToString(client.input.Message))
			if tt.wantGroup {
				assert.Equal(t, "i-1", aws.ToString(client.input.MessageGroupId))
				assert.Equal(t, "evt-1", aws.ToString(client.input.MessageDeduplicationId))
			} else {
				assert.Nil(t, client.input.MessageGroupId)
				assert.Nil(t, client.input.MessageDeduplicationId)
			}
		})
	}
}
