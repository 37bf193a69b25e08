// Package s3bucketadapter manages S3 buckets: existence, versioning and
// bucket tags.
package s3bucketadapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/reeveops/reeve/internal/adapter"
)

// Params is the parameter schema for s3bucket operations.
type Params struct {
	// Region selects the AWS region. Required.
	Region string `yaml:"region"`
	// Endpoint overrides the API endpoint. Path-style addressing is
	// enabled alongside, as MinIO and LocalStack expect.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// API is the subset of the S3 client the adapter calls.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	DeleteBucketTagging(ctx context.Context, params *s3.DeleteBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketTaggingOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

type s3Adapter struct {
	mu        sync.Mutex
	clients   map[string]API
	newClient func(ctx context.Context, region, endpoint string) (API, error)
}

// New creates an s3bucket adapter that builds real AWS clients on first
// use.
func New() adapter.Adapter {
	return &s3Adapter{clients: make(map[string]API), newClient: defaultClient}
}

var _ adapter.Adapter = (*s3Adapter)(nil)
var _ adapter.RequestValidator = (*s3Adapter)(nil)

func defaultClient(ctx context.Context, region, endpoint string) (API, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (a *s3Adapter) Metadata() adapter.Metadata {
	return adapter.Metadata{
		Name:        "s3bucket",
		Version:     "0.2.1",
		APIVersion:  "1.x",
		Description: "Manages S3 bucket existence, versioning and tags.",
	}
}

func (a *s3Adapter) Defaults() map[string]any {
	return map[string]any{}
}

func (a *s3Adapter) Schema() any {
	return Params{}
}

func (a *s3Adapter) ValidateRequest(req *adapter.Request) error {
	if req.StringParam("region", "") == "" {
		return fmt.Errorf("s3bucket '%s': 'region' parameter is required", req.Name)
	}
	for key, value := range req.Desired {
		switch key {
		case "versioning":
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("s3bucket '%s': versioning must be a boolean, got '%v'", req.Name, value)
			}
		case "tags":
			if _, ok := value.(map[string]any); !ok {
				return fmt.Errorf("s3bucket '%s': tags must be a string map", req.Name)
			}
		default:
			return fmt.Errorf("s3bucket '%s': unknown attribute '%s'", req.Name, key)
		}
	}
	return nil
}

// Probe heads the bucket, then reads versioning and tags. A 404 on the
// head is a clean absent. A bucket with no tag set at all reports empty
// tags rather than an error.
func (a *s3Adapter) Probe(ctx context.Context, req *adapter.Request) (*adapter.State, error) {
	client, err := a.client(ctx, req)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(req.Name)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket}); err != nil {
		if isNotFound(err) {
			return &adapter.State{Exists: false}, nil
		}
		return nil, fmt.Errorf("head bucket '%s': %w", req.Name, err)
	}

	versioning, err := client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: bucket})
	if err != nil {
		return nil, fmt.Errorf("read versioning for '%s': %w", req.Name, err)
	}

	tags := map[string]any{}
	tagging, err := client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: bucket})
	switch {
	case err == nil:
		for _, tag := range tagging.TagSet {
			tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
	case hasErrorCode(err, "NoSuchTagSet"):
	default:
		return nil, fmt.Errorf("read tags for '%s': %w", req.Name, err)
	}

	return &adapter.State{
		Exists: true,
		Attrs: map[string]any{
			"versioning": versioning.Status == types.BucketVersioningStatusEnabled,
			"tags":       tags,
		},
	}, nil
}

// Invoke converges the bucket. Creation applies the desired versioning
// and tags in the same pass; updates touch only the drifted surface.
func (a *s3Adapter) Invoke(ctx context.Context, action adapter.Action) adapter.RawOutcome {
	req := action.Req

	client, err := a.client(ctx, req)
	if err != nil {
		return adapter.ErrorOutcome(err)
	}

	bucket := aws.String(req.Name)

	switch action.Kind {
	case adapter.ActionCreate:
		input := &s3.CreateBucketInput{Bucket: bucket}
		// us-east-1 is the default location and must not appear as a
		// constraint.
		if region := req.StringParam("region", ""); region != "" && region != "us-east-1" {
			input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(region),
			}
		}
		if _, err := client.CreateBucket(ctx, input); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("create bucket '%s': %w", req.Name, err))
		}
		if wants, ok := req.Desired["versioning"].(bool); ok && wants {
			if err := putVersioning(ctx, client, bucket, true); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("enable versioning on '%s': %w", req.Name, err))
			}
		}
		if tagSet := bucketTags(req.Desired); len(tagSet) > 0 {
			if _, err := client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
				Bucket:  bucket,
				Tagging: &types.Tagging{TagSet: tagSet},
			}); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("tag bucket '%s': %w", req.Name, err))
			}
		}
		return adapter.OKOutcome(nil)

	case adapter.ActionUpdate:
		if _, drifted := action.Diff["versioning"]; drifted {
			wants, _ := req.Desired["versioning"].(bool)
			if err := putVersioning(ctx, client, bucket, wants); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("set versioning on '%s': %w", req.Name, err))
			}
		}
		if _, drifted := action.Diff["tags"]; drifted {
			tagSet := bucketTags(req.Desired)
			if len(tagSet) == 0 {
				if _, err := client.DeleteBucketTagging(ctx, &s3.DeleteBucketTaggingInput{Bucket: bucket}); err != nil {
					return adapter.ErrorOutcome(fmt.Errorf("clear tags on '%s': %w", req.Name, err))
				}
			} else if _, err := client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
				Bucket:  bucket,
				Tagging: &types.Tagging{TagSet: tagSet},
			}); err != nil {
				return adapter.ErrorOutcome(fmt.Errorf("tag bucket '%s': %w", req.Name, err))
			}
		}
		return adapter.OKOutcome(nil)

	case adapter.ActionDelete:
		if _, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: bucket}); err != nil {
			return adapter.ErrorOutcome(fmt.Errorf("delete bucket '%s': %w", req.Name, err))
		}
		return adapter.OKOutcome(nil)

	default:
		return adapter.ErrorOutcome(fmt.Errorf("s3bucket does not support verb '%s'", action.Verb()))
	}
}

func (a *s3Adapter) client(ctx context.Context, req *adapter.Request) (API, error) {
	region := req.StringParam("region", "")
	if region == "" {
		return nil, fmt.Errorf("s3bucket '%s': 'region' parameter is required", req.Name)
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

func putVersioning(ctx context.Context, client API, bucket *string, enabled bool) error {
	status := types.BucketVersioningStatusSuspended
	if enabled {
		status = types.BucketVersioningStatusEnabled
	}
	_, err := client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket:                  bucket,
		VersioningConfiguration: &types.VersioningConfiguration{Status: status},
	})
	return err
}

func bucketTags(desired map[string]any) []types.Tag {
	raw, ok := desired["tags"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tagSet := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		tagSet = append(tagSet, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(fmt.Sprintf("%v", raw[k])),
		})
	}
	return tagSet
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	return hasErrorCode(err, "NotFound", "NoSuchBucket")
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
