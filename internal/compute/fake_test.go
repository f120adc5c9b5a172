package compute

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// fakeEC2 is an in-memory EC2 that honors tag filters and basic state rules.
type fakeEC2 struct {
	instances []ec2types.Instance
	nextID    int

	runCalls  []*ec2.RunInstancesInput
	stopCalls []string
	startCall []string

	runErr error
}

func (f *fakeEC2) add(id string, state ec2types.InstanceStateName, tags map[string]string) {
	inst := ec2types.Instance{
		InstanceId:   aws.String(id),
		InstanceType: ec2types.InstanceTypeT3Micro,
		State:        &ec2types.InstanceState{Name: state},
	}
	for k, v := range tags {
		inst.Tags = append(inst.Tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	f.instances = append(f.instances, inst)
}

func (f *fakeEC2) find(id string) *ec2types.Instance {
	for i := range f.instances {
		if aws.ToString(f.instances[i].InstanceId) == id {
			return &f.instances[i]
		}
	}
	return nil
}

func (f *fakeEC2) RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.runCalls = append(f.runCalls, params)
	if f.runErr != nil {
		return nil, f.runErr
	}
	f.nextID++
	inst := ec2types.Instance{
		InstanceId:   aws.String(fmt.Sprintf("i-%017d", f.nextID)),
		InstanceType: params.InstanceType,
		ImageId:      params.ImageId,
		State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending},
	}
	for _, spec := range params.TagSpecifications {
		inst.Tags = append(inst.Tags, spec.Tags...)
	}
	f.instances = append(f.instances, inst)
	return &ec2.RunInstancesOutput{Instances: []ec2types.Instance{inst}}, nil
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	var matched []ec2types.Instance
	for _, inst := range f.instances {
		if matchesFilters(inst, params.Filters) {
			matched = append(matched, inst)
		}
	}
	out := &ec2.DescribeInstancesOutput{}
	if len(matched) > 0 {
		out.Reservations = []ec2types.Reservation{{Instances: matched}}
	}
	return out, nil
}

func matchesFilters(inst ec2types.Instance, filters []ec2types.Filter) bool {
	for _, flt := range filters {
		name := aws.ToString(flt.Name)
		key, ok := strings.CutPrefix(name, "tag:")
		if !ok {
			continue
		}
		value, found := "", false
		for _, tag := range inst.Tags {
			if aws.ToString(tag.Key) == key {
				value, found = aws.ToString(tag.Value), true
			}
		}
		if !found {
			return false
		}
		hit := false
		for _, v := range flt.Values {
			if v == value {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func incorrectState(id string) error {
	return &smithy.GenericAPIError{
		Code:    "IncorrectInstanceState",
		Message: fmt.Sprintf("The instance '%s' is not in a state from which it can be stopped.", id),
	}
}

func (f *fakeEC2) transition(id string, from []ec2types.InstanceStateName, to ec2types.InstanceStateName) (ec2types.InstanceStateChange, error) {
	inst := f.find(id)
	if inst == nil {
		return ec2types.InstanceStateChange{}, &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound"}
	}
	prev := inst.State.Name
	allowed := false
	for _, s := range from {
		if prev == s {
			allowed = true
		}
	}
	if !allowed {
		return ec2types.InstanceStateChange{}, incorrectState(id)
	}
	inst.State = &ec2types.InstanceState{Name: to}
	return ec2types.InstanceStateChange{
		InstanceId:    aws.String(id),
		PreviousState: &ec2types.InstanceState{Name: prev},
		CurrentState:  &ec2types.InstanceState{Name: to},
	}, nil
}

func (f *fakeEC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	out := &ec2.StopInstancesOutput{}
	for _, id := range params.InstanceIds {
		f.stopCalls = append(f.stopCalls, id)
		change, err := f.transition(id, []ec2types.InstanceStateName{
			ec2types.InstanceStateNamePending, ec2types.InstanceStateNameRunning, ec2types.InstanceStateNameStopped,
		}, ec2types.InstanceStateNameStopping)
		if err != nil {
			return nil, err
		}
		out.StoppingInstances = append(out.StoppingInstances, change)
	}
	return out, nil
}

func (f *fakeEC2) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	out := &ec2.StartInstancesOutput{}
	for _, id := range params.InstanceIds {
		f.startCall = append(f.startCall, id)
		change, err := f.transition(id, []ec2types.InstanceStateName{
			ec2types.InstanceStateNameStopped, ec2types.InstanceStateNameRunning, ec2types.InstanceStateNamePending,
		}, ec2types.InstanceStateNamePending)
		if err != nil {
			return nil, err
		}
		out.StartingInstances = append(out.StartingInstances, change)
	}
	return out, nil
}

func (f *fakeEC2) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	out := &ec2.TerminateInstancesOutput{}
	for _, id := range params.InstanceIds {
		change, err := f.transition(id, []ec2types.InstanceStateName{
			ec2types.InstanceStateNamePending, ec2types.InstanceStateNameRunning,
			ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameStopped,
		}, ec2types.InstanceStateNameShuttingDown)
		if err != nil {
			return nil, err
		}
		out.TerminatingInstances = append(out.TerminatingInstances, change)
	}
	return out, nil
}
