package providers

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/instance"
)

// EC2API is the subset of the EC2 client used by EC2Compute
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

// liveStates are the states a stop/start request can still apply to.
// shutting-down and terminated instances reject both calls.
var liveStates = []string{
	string(types.InstanceStateNamePending),
	string(types.InstanceStateNameRunning),
	string(types.InstanceStateNameStopping),
	string(types.InstanceStateNameStopped),
}

// EC2Compute implements instance.Compute on EC2
type EC2Compute struct {
	client EC2API
}

// NewEC2Compute creates a new EC2 backed compute handle
func NewEC2Compute(client EC2API) *EC2Compute {
	return &EC2Compute{client: client}
}

// Describe returns the snapshot of one instance
func (c *EC2Compute) Describe(ctx context.Context, id string) (*instance.Instance, error) {
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if apiErrorCode(err) == "InvalidInstanceID.NotFound" {
			return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, id)
		}
		return nil, err
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			if aws.ToString(inst.InstanceId) == id {
				return toInstance(inst), nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", instance.ErrNotFound, id)
}

// DescribeByTag pages through every live instance whose key tag has one of values
func (c *EC2Compute) DescribeByTag(ctx context.Context, key string, values []string) ([]*instance.Instance, error) {
	p := ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:" + key), Values: values},
			{Name: aws.String("instance-state-name"), Values: liveStates},
		},
	})

	var out []*instance.Instance
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				out = append(out, toInstance(inst))
			}
		}
	}
	return out, nil
}

// Start starts ids in a single request
func (c *EC2Compute) Start(ctx context.Context, ids []string) (instance.BatchResult, error) {
	if len(ids) == 0 {
		return instance.BatchResult{}, nil
	}

	out, err := c.client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: ids})
	if err != nil {
		return instance.FailAll(ids, apiErrorMessage(err)), err
	}
	return batchFromStateChanges(ids, out.StartingInstances), nil
}

// Stop stops ids in a single request
func (c *EC2Compute) Stop(ctx context.Context, ids []string) (instance.BatchResult, error) {
	if len(ids) == 0 {
		return instance.BatchResult{}, nil
	}

	out, err := c.client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: ids})
	if err != nil {
		return instance.FailAll(ids, apiErrorMessage(err)), err
	}
	return batchFromStateChanges(ids, out.StoppingInstances), nil
}

// Tag applies tags to ids. CreateTags overwrites, so repeating it is harmless.
func (c *EC2Compute) Tag(ctx context.Context, ids []string, tags []instance.Tag) error {
	sorted := append([]instance.Tag(nil), tags...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	ec2Tags := make([]types.Tag, 0, len(sorted))
	for _, t := range sorted {
		ec2Tags = append(ec2Tags, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}

	_, err := c.client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: ids,
		Tags:      ec2Tags,
	})
	return err
}

// batchFromStateChanges counts an id as succeeded when EC2 returned a state
// change for it. Ids missing from the response are reported as failed.
func batchFromStateChanges(ids []string, changes []types.InstanceStateChange) instance.BatchResult {
	changed := make(map[string]bool, len(changes))
	for _, ch := range changes {
		changed[aws.ToString(ch.InstanceId)] = true
	}

	res := instance.BatchResult{Attempted: append([]string(nil), ids...)}
	for _, id := range ids {
		if changed[id] {
			res.Succeeded = append(res.Succeeded, id)
			continue
		}
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		res.Failed[id] = "no state change returned"
	}
	return res
}

func toInstance(inst types.Instance) *instance.Instance {
	out := &instance.Instance{
		ID:         aws.ToString(inst.InstanceId),
		Type:       string(inst.InstanceType),
		ImageID:    aws.ToString(inst.ImageId),
		LaunchTime: inst.LaunchTime,
		PrivateIP:  aws.ToString(inst.PrivateIpAddress),
		PublicIP:   aws.ToString(inst.PublicIpAddress),
		VpcID:      aws.ToString(inst.VpcId),
		SubnetID:   aws.ToString(inst.SubnetId),
		Snapshot:   inst,
	}
	if inst.State != nil {
		out.State = string(inst.State.Name)
	}
	if inst.Placement != nil {
		out.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	for _, t := range inst.Tags {
		tag := instance.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)}
		out.Tags = append(out.Tags, tag)
		if tag.Key == "Name" && out.Name == "" {
			out.Name = tag.Value
		}
	}
	return out
}
