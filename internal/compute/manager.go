// Package compute launches and controls virtual machine instances owned by
// the current identity.
package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/go-logr/logr"

	"github.com/blackwell-systems/platform-cli/internal/catalog"
	"github.com/blackwell-systems/platform-cli/internal/identity"
)

// EC2API is the subset of the EC2 client the manager uses.
type EC2API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// Instance is a snapshot of one owned instance.
type Instance struct {
	ID         string
	Type       string
	ImageID    string
	State      InstanceState
	LaunchTime time.Time
}

// StateChange reports the transition the provider accepted. The manager does
// not wait for the transition to finish.
type StateChange struct {
	InstanceID string
	Previous   InstanceState
	Current    InstanceState
}

// BulkOutcome distinguishes "nothing to do" from "applied".
type BulkOutcome int

const (
	BulkApplied BulkOutcome = iota
	NoInstances
)

// BulkResult is returned by StopAll and StartAll.
type BulkResult struct {
	Outcome BulkOutcome
	Changes []StateChange
}

type Manager struct {
	id      *identity.Context
	api     EC2API
	catalog *catalog.Catalog
	log     logr.Logger
}

// NewManager returns a manager acting as id through api.
func NewManager(id *identity.Context, api EC2API, cat *catalog.Catalog, log logr.Logger) *Manager {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Manager{id: id, api: api, catalog: cat, log: log}
}

// NewFromIdentity builds an EC2 client from id's credentials.
func NewFromIdentity(ctx context.Context, id *identity.Context, cat *catalog.Catalog, log logr.Logger) (*Manager, error) {
	cfg, err := id.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewManager(id, ec2.NewFromConfig(cfg), cat, log), nil
}

// Create launches exactly one instance tagged with the ownership tag pair and
// returns its id. Empty arguments fall back to the catalog defaults. A type or
// image outside the catalog is rejected with a *catalog.ValidationError before
// any provider call.
func (m *Manager) Create(ctx context.Context, instanceType, image string) (string, error) {
	if instanceType == "" {
		instanceType = catalog.DefaultInstanceType
	}
	if image == "" {
		image = catalog.DefaultImage
	}

	if err := m.catalog.CheckInstanceType(instanceType); err != nil {
		return "", err
	}
	imageID, err := m.catalog.ResolveImage(image)
	if err != nil {
		return "", err
	}

	m.log.V(1).Info("creating instance", "type", instanceType, "image", imageID, "owner", m.id.Owner())

	out, err := m.api.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String(imageID),
		InstanceType: ec2types.InstanceType(instanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags:         m.tags(),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("compute: create instance: %w", err)
	}
	if len(out.Instances) == 0 {
		return "", fmt.Errorf("compute: create instance: provider returned no instance")
	}

	instanceID := aws.ToString(out.Instances[0].InstanceId)
	m.log.Info("instance created", "id", instanceID)
	return instanceID, nil
}

// ListOwned returns the ids of every instance carrying both ownership tags, in
// provider response order.
func (m *Manager) ListOwned(ctx context.Context) ([]string, error) {
	instances, err := m.Describe(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids, nil
}

// Describe returns every owned instance with its current state. The tag match
// is done server side.
func (m *Manager) Describe(ctx context.Context) ([]Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + identity.OwnerTagKey),
				Values: []string{m.id.Owner()},
			},
			{
				Name:   aws.String("tag:" + identity.CreatedByTagKey),
				Values: []string{m.id.CreatedBy()},
			},
		},
	}

	var instances []Instance
	paginator := ec2.NewDescribeInstancesPaginator(m.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("compute: describe instances: %w", err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				instances = append(instances, Instance{
					ID:         aws.ToString(inst.InstanceId),
					Type:       string(inst.InstanceType),
					ImageID:    aws.ToString(inst.ImageId),
					State:      stateFromEC2(inst.State),
					LaunchTime: aws.ToTime(inst.LaunchTime),
				})
			}
		}
	}

	m.log.V(1).Info("described owned instances", "count", len(instances))
	return instances, nil
}

// Stop requests a stop of one instance. Provider errors such as an incorrect
// instance state are returned as is.
func (m *Manager) Stop(ctx context.Context, instanceID string) (StateChange, error) {
	m.log.V(1).Info("stopping instance", "id", instanceID)
	out, err := m.api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return StateChange{}, fmt.Errorf("compute: stop %s: %w", instanceID, err)
	}
	return firstChange(instanceID, out.StoppingInstances), nil
}

// Start requests a start of one instance.
func (m *Manager) Start(ctx context.Context, instanceID string) (StateChange, error) {
	m.log.V(1).Info("starting instance", "id", instanceID)
	out, err := m.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return StateChange{}, fmt.Errorf("compute: start %s: %w", instanceID, err)
	}
	return firstChange(instanceID, out.StartingInstances), nil
}

// Terminate requests termination of one instance.
func (m *Manager) Terminate(ctx context.Context, instanceID string) (StateChange, error) {
	m.log.V(1).Info("terminating instance", "id", instanceID)
	out, err := m.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	if err != nil {
		return StateChange{}, fmt.Errorf("compute: terminate %s: %w", instanceID, err)
	}
	return firstChange(instanceID, out.TerminatingInstances), nil
}

// StopAll stops every owned instance that is not terminated, one at a time.
// The first failure aborts the sweep; changes applied so far are returned with
// the error.
func (m *Manager) StopAll(ctx context.Context) (BulkResult, error) {
	return m.forEachLive(ctx, m.Stop)
}

// StartAll starts every owned instance that is not terminated.
func (m *Manager) StartAll(ctx context.Context) (BulkResult, error) {
	return m.forEachLive(ctx, m.Start)
}

func (m *Manager) forEachLive(ctx context.Context, op func(context.Context, string) (StateChange, error)) (BulkResult, error) {
	instances, err := m.Describe(ctx)
	if err != nil {
		return BulkResult{}, err
	}

	var live []string
	for _, inst := range instances {
		if !inst.State.Terminal() {
			live = append(live, inst.ID)
		}
	}
	if len(live) == 0 {
		return BulkResult{Outcome: NoInstances}, nil
	}

	result := BulkResult{Outcome: BulkApplied}
	for _, id := range live {
		change, err := op(ctx, id)
		if err != nil {
			return result, err
		}
		result.Changes = append(result.Changes, change)
	}
	return result, nil
}

func (m *Manager) tags() []ec2types.Tag {
	return []ec2types.Tag{
		{Key: aws.String(identity.CreatedByTagKey), Value: aws.String(m.id.CreatedBy())},
		{Key: aws.String(identity.OwnerTagKey), Value: aws.String(m.id.Owner())},
	}
}

func firstChange(instanceID string, changes []ec2types.InstanceStateChange) StateChange {
	if len(changes) == 0 {
		return StateChange{InstanceID: instanceID}
	}
	c := changes[0]
	return StateChange{
		InstanceID: aws.ToString(c.InstanceId),
		Previous:   stateFromEC2(c.PreviousState),
		Current:    stateFromEC2(c.CurrentState),
	}
}
