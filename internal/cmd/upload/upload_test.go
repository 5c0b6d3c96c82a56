package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory manager.UploadAPIClient.
type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	parts        map[int32][]byte
	putCalls     int
	aborted      bool
	failPart     int32
}

var _ manager.UploadAPIClient = (*fakeS3)(nil)

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		parts:        map[int32][]byte{},
	}
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	f.objects[aws.ToString(input.Key)] = data
	f.contentTypes[aws.ToString(input.Key)] = aws.ToString(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, input *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentTypes[aws.ToString(input.Key)] = aws.ToString(input.ContentType)
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-id")}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, input *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	n := aws.ToInt32(input.PartNumber)
	if n == f.failPart {
		return nil, errors.New("part failed")
	}

	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[n] = data
	return &s3.UploadPartOutput{ETag: aws.String("etag")}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, input *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	numbers := make([]int32, 0, len(input.MultipartUpload.Parts))
	for _, p := range input.MultipartUpload.Parts {
		numbers = append(numbers, aws.ToInt32(p.PartNumber))
	}
	slices.Sort(numbers)

	var data bytes.Buffer
	for _, n := range numbers {
		data.Write(f.parts[n])
	}

	f.objects[aws.ToString(input.Key)] = data.Bytes()
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
	return &s3.AbortMultipartUploadOutput{}, nil
}

// archiveOf returns the bytes of the archive that Command is expected to upload.
func archiveOf(t *testing.T, root string) []byte {
	t.Helper()

	idx, err := rangetar.Scan(context.Background(), root, func(opts *rangetar.ScanOptions) {
		opts.Logger = log.New(io.Discard, "", 0)
	})
	require.NoError(t, err)
	defer idx.Close()

	data, err := io.ReadAll(idx.NewReader())
	require.NoError(t, err)
	return data
}

func newCommand(root string, client manager.UploadAPIClient) *Command {
	c := &Command{
		UploadTo:    "s3://my-bucket/backups/",
		PartSize:    manager.MinUploadPartSize,
		Concurrency: 3,
		NoProgress:  true,
		Global:      &internal.GlobalOptions{Quiet: true, Symlinks: "warn"},
		client:      client,
	}
	c.Args.Dir = flags.Filename(root)
	return c
}

func TestCommand_Execute_Multipart(t *testing.T) {
	root := filepath.Join(t.TempDir(), "my-dir")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	large := bytes.Repeat([]byte("0123456789abcdef"), (11<<20)/16+7)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "large.bin"), large, 0644))

	client := newFakeS3()
	require.NoError(t, newCommand(root, client).Execute(nil))

	want := archiveOf(t, root)
	assert.Equal(t, want, client.objects["backups/my-dir.tar"])
	assert.Equal(t, "application/x-tar", client.contentTypes["backups/my-dir.tar"])
	assert.Len(t, client.parts, 3)
	assert.Zero(t, client.putCalls)
	assert.False(t, client.aborted)
}

func TestCommand_Execute_SinglePart(t *testing.T) {
	root := filepath.Join(t.TempDir(), "small")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	client := newFakeS3()
	require.NoError(t, newCommand(root, client).Execute(nil))

	assert.Equal(t, archiveOf(t, root), client.objects["backups/small.tar"])
	assert.Equal(t, 1, client.putCalls)
	assert.Empty(t, client.parts)
}

func TestCommand_Execute_PartFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "my-dir")
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "large.bin"), make([]byte, 11<<20), 0644))

	client := newFakeS3()
	client.failPart = 2

	err := newCommand(root, client).Execute(nil)
	assert.ErrorContains(t, err, "part failed")
	assert.True(t, client.aborted)
	assert.NotContains(t, client.objects, "backups/my-dir.tar")
}

func TestCommand_Execute_InvalidFlags(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Command)
		args    []string
		wantErr string
	}{
		{name: "bad upload-to", modify: func(c *Command) { c.UploadTo = "my-bucket" }, wantErr: "invalid --upload-to"},
		{name: "small part size", modify: func(c *Command) { c.PartSize = 1024 }, wantErr: "--part-size"},
		{name: "no concurrency", modify: func(c *Command) { c.Concurrency = 0 }, wantErr: "--concurrency"},
		{name: "extra args", args: []string{"extra"}, wantErr: "unknown positional arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeS3()
			c := newCommand(t.TempDir(), client)
			if tt.modify != nil {
				tt.modify(c)
			}

			assert.ErrorContains(t, c.Execute(tt.args), tt.wantErr)
			assert.Empty(t, client.objects)
		})
	}
}

func TestCommand_Execute_StorageClass(t *testing.T) {
	root := filepath.Join(t.TempDir(), "small")
	require.NoError(t, os.MkdirAll(root, 0755))

	var got *s3.PutObjectInput
	client := &recordingS3{fakeS3: newFakeS3(), put: func(input *s3.PutObjectInput) { got = input }}

	c := newCommand(root, client)
	c.StorageClass = "GLACIER_IR"
	c.ExpectedBucketOwner = "123456789012"
	require.NoError(t, c.Execute(nil))

	require.NotNil(t, got)
	assert.Equal(t, types.StorageClassGlacierIr, got.StorageClass)
	assert.Equal(t, "123456789012", aws.ToString(got.ExpectedBucketOwner))
	assert.EqualValues(t, rangetar.TerminatorSize, aws.ToInt64(got.ContentLength))
}

type recordingS3 struct {
	*fakeS3
	put func(*s3.PutObjectInput)
}

func (r *recordingS3) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.put(input)
	return r.fakeS3.PutObject(ctx, input, optFns...)
}
