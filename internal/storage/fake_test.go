package storage

import (
	"context"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeObject struct {
	body    string
	tagging string
}

type fakeBucket struct {
	tags    map[string]string
	objects map[string]fakeObject
	// denyTags makes GetBucketTagging fail with AccessDenied.
	denyTags bool
}

// fakeS3 is an in-memory S3 with optional injected failures.
type fakeS3 struct {
	buckets map[string]*fakeBucket

	createInputs []*s3.CreateBucketInput
	deleteCalls  []string
	listPageSize int

	tagErr        error
	deleteErr     error
	tagCalls      int
	deleteObjCall int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: make(map[string]*fakeBucket)}
}

func (f *fakeS3) addBucket(name string, tags map[string]string) *fakeBucket {
	b := &fakeBucket{tags: tags, objects: make(map[string]fakeObject)}
	f.buckets[name] = b
	return b
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createInputs = append(f.createInputs, params)
	name := aws.ToString(params.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, apiError("BucketAlreadyOwnedByYou")
	}
	f.addBucket(name, nil)
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	name := aws.ToString(params.Bucket)
	f.deleteCalls = append(f.deleteCalls, name)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	b, ok := f.buckets[name]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	if len(b.objects) > 0 {
		return nil, apiError("BucketNotEmpty")
	}
	delete(f.buckets, name)
	return &s3.DeleteBucketOutput{}, nil
}

func (f *fakeS3) PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error) {
	f.tagCalls++
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	b.tags = make(map[string]string)
	for _, tag := range params.Tagging.TagSet {
		b.tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return &s3.PutBucketTaggingOutput{}, nil
}

func (f *fakeS3) GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	if b.denyTags {
		return nil, apiError("AccessDenied")
	}
	if len(b.tags) == 0 {
		return nil, apiError("NoSuchTagSet")
	}
	out := &s3.GetBucketTaggingOutput{}
	for k, v := range b.tags {
		out.TagSet = append(out.TagSet, s3types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out, nil
}

func (f *fakeS3) sortedBucketNames() []string {
	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	names := f.sortedBucketNames()
	start := 0
	if tok := aws.ToString(params.ContinuationToken); tok != "" {
		for i, n := range names {
			if n == tok {
				start = i
			}
		}
	}
	end := len(names)
	if f.listPageSize > 0 && start+f.listPageSize < end {
		end = start + f.listPageSize
	}

	out := &s3.ListBucketsOutput{}
	for _, n := range names[start:end] {
		out.Buckets = append(out.Buckets, s3types.Bucket{Name: aws.String(n)})
	}
	if end < len(names) {
		out.ContinuationToken = aws.String(names[end])
	}
	return out, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleteObjCall++
	b, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	for _, obj := range params.Delete.Objects {
		delete(b.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

// Upload implements Uploader on top of the same buckets.
func (f *fakeS3) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	b, ok := f.buckets[aws.ToString(input.Bucket)]
	if !ok {
		return nil, apiError("NoSuchBucket")
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(input.Key)
	b.objects[key] = fakeObject{body: string(data), tagging: aws.ToString(input.Tagging)}
	return &manager.UploadOutput{
		Key:      input.Key,
		Location: "https://" + aws.ToString(input.Bucket) + ".s3.amazonaws.com/" + key,
	}, nil
}
