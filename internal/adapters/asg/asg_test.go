package asgadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/stretchr/testify/require"

	"github.com/reeveops/reeve/internal/adapter"
	"github.com/reeveops/reeve/internal/model"
)

type fakeAPI struct {
	describeOut *autoscaling.DescribeAutoScalingGroupsOutput
	callErr     error

	described *autoscaling.DescribeAutoScalingGroupsInput
	created   *autoscaling.CreateAutoScalingGroupInput
	updated   *autoscaling.UpdateAutoScalingGroupInput
	deleted   *autoscaling.DeleteAutoScalingGroupInput
	tagged    *autoscaling.CreateOrUpdateTagsInput
}

func (f *fakeAPI) DescribeAutoScalingGroups(_ context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	f.described = params
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.describeOut != nil {
		return f.describeOut, nil
	}
	return &autoscaling.DescribeAutoScalingGroupsOutput{}, nil
}

func (f *fakeAPI) CreateAutoScalingGroup(_ context.Context, params *autoscaling.CreateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateAutoScalingGroupOutput, error) {
	f.created = params
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &autoscaling.CreateAutoScalingGroupOutput{}, nil
}

func (f *fakeAPI) UpdateAutoScalingGroup(_ context.Context, params *autoscaling.UpdateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error) {
	f.updated = params
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &autoscaling.UpdateAutoScalingGroupOutput{}, nil
}

func (f *fakeAPI) DeleteAutoScalingGroup(_ context.Context, params *autoscaling.DeleteAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.DeleteAutoScalingGroupOutput, error) {
	f.deleted = params
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &autoscaling.DeleteAutoScalingGroupOutput{}, nil
}

func (f *fakeAPI) CreateOrUpdateTags(_ context.Context, params *autoscaling.CreateOrUpdateTagsInput, _ ...func(*autoscaling.Options)) (*autoscaling.CreateOrUpdateTagsOutput, error) {
	f.tagged = params
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &autoscaling.CreateOrUpdateTagsOutput{}, nil
}

func newTestAdapter(fake API) *asgAdapter {
	return &asgAdapter{
		clients: make(map[string]API),
		newClient: func(context.Context, string, string) (API, error) {
			return fake, nil
		},
	}
}

func request(name string, desired map[string]any) *adapter.Request {
	return &adapter.Request{
		OpID:    "op",
		Name:    name,
		Desired: desired,
		Params:  map[string]any{"region": "eu-west-1"},
	}
}

func TestProbeDescribesGroup(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{
		describeOut: &autoscaling.DescribeAutoScalingGroupsOutput{
			AutoScalingGroups: []types.AutoScalingGroup{{
				AutoScalingGroupName: aws.String("web"),
				MinSize:              aws.Int32(2),
				MaxSize:              aws.Int32(6),
				DesiredCapacity:      aws.Int32(3),
				Tags: []types.TagDescription{
					{Key: aws.String("env"), Value: aws.String("prod")},
				},
			}},
		},
	}
	a := newTestAdapter(fake)

	state, err := a.Probe(context.Background(), request("web", nil))
	require.NoError(t, err)
	require.True(t, state.Exists)
	require.Equal(t, 2, state.Attrs["min_size"])
	require.Equal(t, 6, state.Attrs["max_size"])
	require.Equal(t, 3, state.Attrs["desired_capacity"])
	require.Equal(t, map[string]any{"env": "prod"}, state.Attrs["tags"])
	require.Equal(t, []string{"web"}, fake.described.AutoScalingGroupNames)
}

func TestProbeAbsentGroup(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(&fakeAPI{})

	state, err := a.Probe(context.Background(), request("ghost", nil))
	require.NoError(t, err)
	require.False(t, state.Exists)
}

func TestProbeDescribeError(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(&fakeAPI{callErr: errors.New("throttled")})

	_, err := a.Probe(context.Background(), request("web", nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "describe group 'web'")
}

func TestProbeRequiresRegion(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(&fakeAPI{})
	req := request("web", nil)
	req.Params = map[string]any{}

	_, err := a.Probe(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "'region' parameter is required")
}

func TestInvokeCreate(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	a := newTestAdapter(fake)

	req := request("web", map[string]any{
		"min_size":         2,
		"max_size":         4,
		"desired_capacity": 2,
		"tags":             map[string]any{"env": "prod", "app": "edge"},
	})
	req.Params["launch_configuration"] = "web-lc-v3"
	req.Params["availability_zones"] = []any{"eu-west-1a", "eu-west-1b"}

	outcome := a.Invoke(context.Background(), adapter.Action{Kind: adapter.ActionCreate, Req: req})
	require.True(t, outcome.Success)
	require.NoError(t, outcome.Err)

	require.NotNil(t, fake.created)
	require.Equal(t, "web", aws.ToString(fake.created.AutoScalingGroupName))
	require.Equal(t, int32(2), aws.ToInt32(fake.created.MinSize))
	require.Equal(t, int32(4), aws.ToInt32(fake.created.MaxSize))
	require.Equal(t, int32(2), aws.ToInt32(fake.created.DesiredCapacity))
	require.Equal(t, "web-lc-v3", aws.ToString(fake.created.LaunchConfigurationName))
	require.Equal(t, []string{"eu-west-1a", "eu-west-1b"}, fake.created.AvailabilityZones)

	require.Len(t, fake.created.Tags, 2)
	require.Equal(t, "app", aws.ToString(fake.created.Tags[0].Key))
	require.Equal(t, "edge", aws.ToString(fake.created.Tags[0].Value))
	require.True(t, aws.ToBool(fake.created.Tags[0].PropagateAtLaunch))
	require.Equal(t, "web", aws.ToString(fake.created.Tags[0].ResourceId))
	require.Equal(t, "auto-scaling-group", aws.ToString(fake.created.Tags[0].ResourceType))
	require.Equal(t, "env", aws.ToString(fake.created.Tags[1].Key))
}

func TestInvokeUpdateCapacityOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	a := newTestAdapter(fake)

	req := request("web", map[string]any{"min_size": 3, "max_size": 6})
	action := adapter.Action{
		Kind: adapter.ActionUpdate,
		Req:  req,
		Diff: map[string]model.Change{"min_size": {Old: 2, New: 3}},
	}

	outcome := a.Invoke(context.Background(), action)
	require.True(t, outcome.Success)

	require.NotNil(t, fake.updated)
	require.Equal(t, int32(3), aws.ToInt32(fake.updated.MinSize))
	require.Equal(t, int32(6), aws.ToInt32(fake.updated.MaxSize))
	require.Nil(t, fake.updated.DesiredCapacity, "unset attributes stay untouched")
	require.Nil(t, fake.tagged, "tag API stays untouched without tag drift")
}

func TestInvokeUpdateTagsOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	a := newTestAdapter(fake)

	req := request("web", map[string]any{
		"min_size": 2,
		"max_size": 6,
		"tags":     map[string]any{"env": "staging"},
	})
	action := adapter.Action{
		Kind: adapter.ActionUpdate,
		Req:  req,
		Diff: map[string]model.Change{
			"tags": {Old: map[string]any{"env": "prod"}, New: req.Desired["tags"]},
		},
	}

	outcome := a.Invoke(context.Background(), action)
	require.True(t, outcome.Success)

	require.Nil(t, fake.updated, "capacity API stays untouched without size drift")
	require.NotNil(t, fake.tagged)
	require.Len(t, fake.tagged.Tags, 1)
	require.Equal(t, "env", aws.ToString(fake.tagged.Tags[0].Key))
	require.Equal(t, "staging", aws.ToString(fake.tagged.Tags[0].Value))
}

func TestInvokeDelete(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	a := newTestAdapter(fake)

	req := request("web", nil)
	req.Absent = true
	req.Params["force_delete"] = true

	outcome := a.Invoke(context.Background(), adapter.Action{Kind: adapter.ActionDelete, Req: req})
	require.True(t, outcome.Success)

	require.NotNil(t, fake.deleted)
	require.Equal(t, "web", aws.ToString(fake.deleted.AutoScalingGroupName))
	require.True(t, aws.ToBool(fake.deleted.ForceDelete))
}

func TestInvokeSurfacesAPIError(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{callErr: errors.New("ValidationError: MinSize exceeds MaxSize")}
	a := newTestAdapter(fake)

	req := request("web", map[string]any{"min_size": 9, "max_size": 2})
	action := adapter.Action{
		Kind: adapter.ActionUpdate,
		Req:  req,
		Diff: map[string]model.Change{"min_size": {Old: 2, New: 9}},
	}

	outcome := a.Invoke(context.Background(), action)
	require.False(t, outcome.Success)
	require.Error(t, outcome.Err)
	require.Contains(t, outcome.Err.Error(), "update group 'web'")
}

func TestClientCachedPerRegion(t *testing.T) {
	t.Parallel()

	builds := 0
	a := &asgAdapter{
		clients: make(map[string]API),
		newClient: func(context.Context, string, string) (API, error) {
			builds++
			return &fakeAPI{}, nil
		},
	}

	_, err := a.Probe(context.Background(), request("web", nil))
	require.NoError(t, err)
	_, err = a.Probe(context.Background(), request("web", nil))
	require.NoError(t, err)
	require.Equal(t, 1, builds)

	other := request("web", nil)
	other.Params["region"] = "us-east-1"
	_, err = a.Probe(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	a := New().(*asgAdapter)

	t.Run("requires region", func(t *testing.T) {
		t.Parallel()
		req := request("web", map[string]any{"min_size": 1, "max_size": 2})
		req.Params = map[string]any{}
		require.Error(t, a.ValidateRequest(req))
	})

	t.Run("requires capacity bounds", func(t *testing.T) {
		t.Parallel()
		err := a.ValidateRequest(request("web", map[string]any{"min_size": 1}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "'max_size' is required")
	})

	t.Run("rejects unknown attribute", func(t *testing.T) {
		t.Parallel()
		err := a.ValidateRequest(request("web", map[string]any{
			"min_size": 1, "max_size": 2, "cooldown": 300,
		}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown attribute 'cooldown'")
	})

	t.Run("rejects non-integer size", func(t *testing.T) {
		t.Parallel()
		err := a.ValidateRequest(request("web", map[string]any{"min_size": "two", "max_size": 4}))
		require.Error(t, err)
	})

	t.Run("absent needs no capacity", func(t *testing.T) {
		t.Parallel()
		req := request("web", nil)
		req.Absent = true
		require.NoError(t, a.ValidateRequest(req))
	})

	t.Run("accepts full shape", func(t *testing.T) {
		t.Parallel()
		err := a.ValidateRequest(request("web", map[string]any{
			"min_size": 2, "max_size": 6, "desired_capacity": 3,
			"tags": map[string]any{"env": "prod"},
		}))
		require.NoError(t, err)
	})
}

func TestMetadataAndDefaults(t *testing.T) {
	t.Parallel()

	a := New()
	meta := a.Metadata()
	require.Equal(t, "asg", meta.Name)
	require.NoError(t, meta.Validate())
	require.Equal(t, false, a.Defaults()["force_delete"])
}
