package upload

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// loggingClient logs the lifecycle of the multipart upload that manager.Uploader drives through it.
//
// UploadPart may be called from any of the goroutines uploading parts in parallel so the tally is atomic.
type loggingClient struct {
	manager.UploadAPIClient
	logger    *log.Logger
	partCount int64
	n         atomic.Int64
}

var _ manager.UploadAPIClient = (*loggingClient)(nil)

// expectedPartCount returns the number of parts manager.Uploader will use for an object of the given size.
func expectedPartCount(size, partSize int64) int64 {
	if size/partSize >= int64(manager.MaxUploadParts) {
		partSize = size/int64(manager.MaxUploadParts) + 1
	}

	return max(1, (size+partSize-1)/partSize)
}

func (c *loggingClient) CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	output, err := c.UploadAPIClient.CreateMultipartUpload(ctx, input, optFns...)
	if err == nil {
		c.logger.Printf("started multipart upload (upload Id %s) with %d parts", aws.ToString(output.UploadId), c.partCount)
	}

	return output, err
}

func (c *loggingClient) UploadPart(ctx context.Context, input *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	output, err := c.UploadAPIClient.UploadPart(ctx, input, optFns...)
	if err != nil {
		return output, err
	}

	if v := c.n.Add(1); v == c.partCount {
		c.logger.Printf("uploaded %d/%d parts", v, c.partCount)
	} else {
		c.logger.Printf("uploaded %d/%d parts so far", v, c.partCount)
	}

	return output, nil
}

func (c *loggingClient) AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	output, err := c.UploadAPIClient.AbortMultipartUpload(ctx, input, optFns...)
	if err != nil {
		c.logger.Printf("multipart upload (upload Id %s) was not aborted successfully: %v", aws.ToString(input.UploadId), err)
	} else {
		c.logger.Printf("multipart upload (upload Id %s) was aborted successfully", aws.ToString(input.UploadId))
	}

	return output, err
}
