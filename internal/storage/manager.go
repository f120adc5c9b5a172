// Package storage creates, fills, lists and removes object-storage buckets
// owned by the current identity.
//
// Bucket listing cannot be filtered by tag on the provider side, so ListOwned
// reads every bucket's tag set individually. That is O(number of buckets)
// calls, and each per-bucket failure is skipped on its own.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"

	"github.com/blackwell-systems/platform-cli/internal/identity"
)

// deleteBatchSize is the provider's limit on keys per DeleteObjects call.
const deleteBatchSize = 1000

var ErrNotOwned = errors.New("bucket is not owned by this identity")

// S3API is the subset of the S3 client the manager uses.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Uploader streams an object body to a bucket. *manager.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// PartialCreateError means a bucket was created, could not be tagged, and
// could not be removed again. The bucket exists but will not show up in
// ListOwned.
type PartialCreateError struct {
	Bucket      string
	TagErr      error
	RollbackErr error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("storage: bucket %s created but left untagged: tagging failed: %v; rollback failed: %v",
		e.Bucket, e.TagErr, e.RollbackErr)
}

func (e *PartialCreateError) Unwrap() []error { return []error{e.TagErr, e.RollbackErr} }

// UploadResult describes a stored object.
type UploadResult struct {
	Bucket   string
	Key      string
	Location string
}

type Manager struct {
	id       *identity.Context
	api      S3API
	uploader Uploader
	log      logr.Logger
}

// NewManager returns a manager acting as id.
func NewManager(id *identity.Context, api S3API, uploader Uploader, log logr.Logger) *Manager {
	return &Manager{id: id, api: api, uploader: uploader, log: log}
}

// NewFromIdentity builds S3 clients from id's credentials.
func NewFromIdentity(ctx context.Context, id *identity.Context, log logr.Logger) (*Manager, error) {
	cfg, err := id.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// path-style keeps custom endpoints (emulators) working
		o.UsePathStyle = id.Endpoint() != ""
	})
	return NewManager(id, client, manager.NewUploader(client), log), nil
}

// CreateBucket creates a bucket and tags it with the ownership tag pair. If
// tagging fails the bucket is deleted again so that no untagged bucket is
// left behind; if that also fails a *PartialCreateError is returned.
func (m *Manager) CreateBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	// the default region rejects an explicit location constraint
	if m.id.Region() != identity.DefaultRegion {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(m.id.Region()),
		}
	}

	m.log.V(1).Info("creating bucket", "bucket", name, "region", m.id.Region())
	if _, err := m.api.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("storage: create bucket %s: %w", name, err)
	}

	_, tagErr := m.api.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &s3types.Tagging{TagSet: m.tags()},
	})
	if tagErr == nil {
		m.log.Info("bucket created", "bucket", name)
		return nil
	}

	m.log.Info("tagging failed, removing bucket", "bucket", name, "error", tagErr.Error())
	if _, err := m.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return &PartialCreateError{Bucket: name, TagErr: tagErr, RollbackErr: err}
	}
	return fmt.Errorf("storage: tag bucket %s (bucket removed): %w", name, tagErr)
}

// Upload streams the local file at path into bucket. The object key is
// objectName, or the file's base name when objectName is empty. The object is
// tagged with the ownership tag pair.
func (m *Manager) Upload(ctx context.Context, bucket, path, objectName string) (*UploadResult, error) {
	key := objectName
	if key == "" {
		key = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	m.log.V(1).Info("uploading object", "bucket", bucket, "key", key, "path", path)
	out, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(bucket),
		Key:     aws.String(key),
		Body:    f,
		Tagging: aws.String(m.id.TagQuery()),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s to %s/%s: %w", path, bucket, key, err)
	}

	return &UploadResult{Bucket: bucket, Key: key, Location: out.Location}, nil
}

// ListOwned returns the names of buckets whose tag set carries both ownership
// tags. Buckets without tags, or whose tags the provider refuses to return,
// are skipped. Any other failure, a cancelled context included, is returned.
func (m *Manager) ListOwned(ctx context.Context) ([]string, error) {
	var names []string
	var token *string
	for {
		out, err := m.api.ListBuckets(ctx, &s3.ListBucketsInput{ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("storage: list buckets: %w", err)
		}
		for _, b := range out.Buckets {
			name := aws.ToString(b.Name)
			owned, err := m.owned(ctx, name)
			if err != nil {
				if ctx.Err() != nil || !isAPIError(err) {
					return nil, fmt.Errorf("storage: read tags of %s: %w", name, err)
				}
				m.log.V(1).Info("skipping bucket", "bucket", name, "reason", errorCode(err))
				continue
			}
			if owned {
				names = append(names, name)
			}
		}
		if aws.ToString(out.ContinuationToken) == "" {
			break
		}
		token = out.ContinuationToken
	}
	return names, nil
}

// DeleteBucket empties and deletes an owned bucket. Buckets that are not
// owned are refused with ErrNotOwned.
func (m *Manager) DeleteBucket(ctx context.Context, name string) (int, error) {
	owned, err := m.owned(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("storage: delete %s: ownership unverified: %w", name, errors.Join(ErrNotOwned, err))
	}
	if !owned {
		return 0, fmt.Errorf("storage: delete %s: %w", name, ErrNotOwned)
	}

	deleted := 0
	var batch []s3types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := m.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(name),
			Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("storage: delete objects in %s: %w", name, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("storage: delete %s/%s: %s: %s", name, aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	paginator := s3.NewListObjectsV2Paginator(m.api, &s3.ListObjectsV2Input{Bucket: aws.String(name)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("storage: list objects in %s: %w", name, err)
		}
		for _, obj := range page.Contents {
			batch = append(batch, s3types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := flush(); err != nil {
					return deleted, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	if _, err := m.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
		return deleted, fmt.Errorf("storage: delete bucket %s: %w", name, err)
	}
	m.log.Info("bucket deleted", "bucket", name, "objects", deleted)
	return deleted, nil
}

func (m *Manager) owned(ctx context.Context, bucket string) (bool, error) {
	out, err := m.api.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		return false, err
	}
	tags := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return m.id.Owns(tags), nil
}

func (m *Manager) tags() []s3types.Tag {
	return []s3types.Tag{
		{Key: aws.String(identity.OwnerTagKey), Value: aws.String(m.id.Owner())},
		{Key: aws.String(identity.CreatedByTagKey), Value: aws.String(m.id.CreatedBy())},
	}
}

func isAPIError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr)
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return err.Error()
}
