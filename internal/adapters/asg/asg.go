// Package asgadapter manages AWS Auto Scaling Groups: capacity bounds and
// group tags. Clients are built lazily per region so plans mixing regions
// share one adapter.
package asgadapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/model"
)

// Params is the parameter schema for asg operations.
type Params struct {
	// Region selects the AWS region. Required.
	Region string `yaml:"region"`
	// Endpoint overrides the API endpoint, for LocalStack and friends.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// LaunchConfiguration names the launch configuration used when the
	// group is created. Existing groups keep theirs.
	LaunchConfiguration string `yaml:"launch_configuration"`
	// AvailabilityZones seeds zone placement when the group is created.
	AvailabilityZones []string `yaml:"availability_zones"`
	// VPCZoneIdentifier seeds subnet placement when the group is created.
	VPCZoneIdentifier string `yaml:"vpc_zone_identifier"`
	// ForceDelete removes the group even while it still has instances.
	ForceDelete bool `yaml:"force_delete"`
}

// API is the subset of the Auto Scaling client the adapter calls.
type API interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	CreateAutoScalingGroup(ctx context.Context, params *autoscaling.CreateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error)
	UpdateAutoScalingGroup(ctx context.Context, params *autoscaling.UpdateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error)
	DeleteAutoScalingGroup(ctx context.Context, params *autoscaling.DeleteAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DeleteAutoScalingGroupOutput, error)
	CreateOrUpdateTags(ctx context.Context, params *autoscaling.CreateOrUpdateTagsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.CreateOrUpdateTagsOutput, error)
}

type asgAdapter struct {
	mu        sync.Mutex
	clients   map[string]API
	newClient func(ctx context.Context, region, endpoint string) (API, error)
}

// New creates an asg adapter that builds real AWS clients on first use.
func New() adapter.Adapter {
	return &asgAdapter{clients: make(map[string]API), newClient: defaultClient}
}

var _ adapter.Adapter = (*asgAdapter)(nil)
var _ adapter.RequestValidator = (*asgAdapter)(nil)

func defaultClient(ctx context.Context, region, endpoint string) (API, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return autoscaling.NewFromConfig(awsCfg, func(o *autoscaling.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (a *asgAdapter) Metadata() adapter.Metadata {
	return adapter.Metadata{
		Name:        "asg",
		Version:     "0.4.0",
		APIVersion:  "1.x",
		Description: "Manages AWS Auto Scaling Group capacity and tags.",
	}
}

func (a *asgAdapter) Defaults() map[string]any {
	return map[string]any{"force_delete": false}
}

func (a *asgAdapter) Schema() any {
	return Params{}
}

func (a *asgAdapter) ValidateRequest(req *adapter.Request) error {
	if req.StringParam("region", "") == "" {
		return fmt.Errorf("asg '%s': 'region' parameter is required", req.Name)
	}
	for key, value := range req.Desired {
		switch key {
		case "min_size", "max_size", "desired_capacity":
			if _, ok := asInt32(value); !ok {
				return fmt.Errorf("asg '%s': %s must be an integer, got '%v'", req.Name, key, value)
			}
		case "tags":
			if _, ok := value.(map[string]any); !ok {
				return fmt.Errorf("asg '%s': tags must be a string map", req.Name)
			}
		default:
			return fmt.Errorf("asg '%s': unknown attribute '%s'", req.Name, key)
		}
	}
	if !req.Absent {
		for _, required := range []string{"min_size", "max_size"} {
			if _, ok := req.Desired[required]; !ok {
				return fmt.Errorf("asg '%s': desired '%s' is required", req.Name, required)
			}
		}
	}
	return nil
}

// Probe describes the group and reports its capacity bounds and tags.
func (a *asgAdapter) Probe(ctx context.Context, req *adapter.Request) (*adapter.State, error) {
	client, err := a.client(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := client.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{req.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("describe group '%s': %w", req.Name, err)
	}
	if len(out.AutoScalingGroups) == 0 {
		return &adapter.State{Exists: false}, nil
	}

	group := out.AutoScalingGroups[0]
	tags := map[string]any{}
	for _, tag := range group.Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}

	return &adapter.State{
		Exists: true,
		Attrs: map[string]any{
			"min_size":         int(aws.ToInt32(group.MinSize)),
			"max_size":         int(aws.ToInt32(group.MaxSize)),
			"desired_capacity": int(aws.ToInt32(group.DesiredCapacity)),
			"tags":             tags,
		},
	}, nil
}

// Invoke converges the group. Capacity drift goes through
// UpdateAutoScalingGroup, tag drift through CreateOrUpdateTags, so an
// update never touches more surface than the diff demands.
func (a *asgAdapter) Invoke(ctx context.Context, action adapter.Action) adapter.RawOutcome {
	req := action.Req

	client, err := a.client(ctx, req)
	if err != nil {
		return adapter.ErrorOutcome(err)
	}

	switch action.Kind {
	case adapter.ActionCreate:
		input := &autoscaling.CreateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(req.Name),
			MinSize:              int32Attr(req.Desired, "min_size"),
			MaxSize:              int32Attr(req.Desired, "max_size"),
			DesiredCapacity:      int32Attr(req.Desired, "desired_capacity"),
			Tags:                 groupTags(req.Name, req.Desired),
		}
		if lc := req.StringParam("launch_configuration", ""); lc != "" {
			input.LaunchConfigurationName = aws.String(lc)
		}
		if zones := stringListParam(req, "availability_zones"); len(zones) > 0 {
			input.AvailabilityZones = zones
		}
		if vpc := req.StringParam("vpc_zone_identifier", ""); vpc != "" {
			input.VPCZoneIdentifier = aws.String(vpc)
		}
		if _, err := client.CreateAutoScalingGroup(ctx, input); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("create group '%s': %w", req.Name, err))
		}
		return adapter.OKOutcome(nil)

	case adapter.ActionUpdate:
		if diffHasAny(action.Diff, "min_size", "max_size", "desired_capacity") {
			input := &autoscaling.UpdateAutoScalingGroupInput{
				AutoScalingGroupName: aws.String(req.Name),
				MinSize:              int32Attr(req.Desired, "min_size"),
				MaxSize:              int32Attr(req.Desired, "max_size"),
				DesiredCapacity:      int32Attr(req.Desired, "desired_capacity"),
			}
			if _, err := client.UpdateAutoScalingGroup(ctx, input); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("update group '%s': %w", req.Name, err))
			}
		}
		if _, ok := action.Diff["tags"]; ok {
			input := &autoscaling.CreateOrUpdateTagsInput{Tags: groupTags(req.Name, req.Desired)}
			if _, err := client.CreateOrUpdateTags(ctx, input); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("tag group '%s': %w", req.Name, err))
			}
		}
		return adapter.OKOutcome(nil)

	case adapter.ActionDelete:
		force, _ := req.Param("force_delete", false).(bool)
		input := &autoscaling.DeleteAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(req.Name),
			ForceDelete:          aws.Bool(force),
		}
		if _, err := client.DeleteAutoScalingGroup(ctx, input); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("delete group '%s': %w", req.Name, err))
		}
		return adapter.OKOutcome(nil)

	default:
		return adapter.ErrorOutcome(fmt.Errorf("asg does not support verb '%s'", action.Verb()))
	}
}

// client returns the cached client for the request's region and endpoint,
// building it on first use.
func (a *asgAdapter) client(ctx context.Context, req *adapter.Request) (API, error) {
	region := req.StringParam("region", "")
	if region == "" {
		return nil, fmt.Errorf("asg '%s': 'region' parameter is required", req.Name)
	}
	endpoint := req.StringParam("endpoint", "")
	key := region + "|" + endpoint

	a.mu.Lock()
	defer a.mu.Unlock()

	if client, ok := a.clients[key]; ok {
		return client, nil
	}
	client, err := a.newClient(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	a.clients[key] = client
	return client, nil
}

func groupTags(name string, desired map[string]any) []types.Tag {
	raw, ok := desired["tags"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, types.Tag{
			Key:               aws.String(k),
			Value:             aws.String(fmt.Sprintf("%v", raw[k])),
			PropagateAtLaunch: aws.Bool(true),
			ResourceId:        aws.String(name),
			ResourceType:      aws.String("auto-scaling-group"),
		})
	}
	return tags
}

func int32Attr(desired map[string]any, key string) *int32 {
	if n, ok := asInt32(desired[key]); ok {
		return aws.Int32(n)
	}
	return nil
}

func asInt32(v any) (int32, bool) {
	switch n := v.(type) {
	case int:
		return int32(n), true
	case int64:
		return int32(n), true
	case float64:
		return int32(n), true
	}
	return 0, false
}

func diffHasAny(diff map[string]model.Change, keys ...string) bool {
	for _, key := range keys {
		if _, ok := diff[key]; ok {
			return true
		}
	}
	return false
}

func stringListParam(req *adapter.Request, key string) []string {
	switch v := req.Param(key, nil).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
