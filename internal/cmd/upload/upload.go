package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/internal"
)

// upload streams the archive to S3 and returns its key.
func (c *Command) upload(ctx context.Context, idx *rangetar.Index) (string, error) {
	key := c.prefix + internal.ArchiveName(idx)
	logger := internal.MustLogger(ctx)
	logger.Printf(`uploading to "s3://%s/%s"`, c.bucket, key)

	var progress io.Writer
	if c.NoProgress {
		pl := internal.NewProgressLogger(logger, "uploaded", idx.TotalLength(), 5*time.Second)
		defer pl.Done()
		progress = pl
	} else {
		bar := internal.NewProgressBar(idx.TotalLength(), "uploading")
		defer bar.Close()
		progress = bar
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          &progressReader{Reader: idx.NewReader(), w: progress},
		ContentLength: aws.Int64(idx.TotalLength()),
		ContentType:   aws.String("application/x-tar"),
	}
	if c.StorageClass != "" {
		input.StorageClass = types.StorageClass(c.StorageClass)
	}
	if c.ExpectedBucketOwner != "" {
		input.ExpectedBucketOwner = aws.String(c.ExpectedBucketOwner)
	}

	client := &loggingClient{
		UploadAPIClient: c.client,
		logger:          logger,
		partCount:       expectedPartCount(idx.TotalLength(), c.PartSize),
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = c.PartSize
		u.Concurrency = c.Concurrency
	})

	if _, err := uploader.Upload(ctx, input); err != nil {
		return key, fmt.Errorf(`upload "s3://%s/%s" error: %w`, c.bucket, key, err)
	}

	return key, nil
}

// progressReader reports every byte read from the archive to w.
//
// It keeps the io.ReaderAt and io.Seeker of rangetar.Reader visible so that manager.Uploader reads parts directly
// from the archive in parallel instead of buffering them. A part that is retried is reported twice.
type progressReader struct {
	*rangetar.Reader
	w io.Writer
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	_, _ = r.w.Write(p[:n])
	return n, err
}

func (r *progressReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.Reader.ReadAt(p, off)
	_, _ = r.w.Write(p[:n])
	return n, err
}
