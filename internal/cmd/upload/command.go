package upload

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/rangetar/internal"
)

// Command uploads the virtual archive of a directory to S3 without creating it locally.
type Command struct {
	UploadTo            string `short:"u" long:"upload-to" description:"the S3 bucket and prefix in format s3://bucket/prefix to upload the archive to" value-name:"S3_LOCATION" required:"yes"`
	PartSize            int64  `long:"part-size" description:"the size in bytes of each part of the multipart upload" default:"8388608"`
	Concurrency         int    `long:"concurrency" description:"the number of parts to upload in parallel" default:"5"`
	StorageClass        string `long:"storage-class" description:"the S3 storage class of the uploaded archive"`
	ExpectedBucketOwner string `long:"expected-bucket-owner" description:"the account ID that is expected to own the bucket"`
	NoProgress          bool   `long:"no-progress" description:"log progress periodically instead of displaying a progress bar"`
	Args                struct {
		Dir flags.Filename `positional-arg-name:"dir" description:"the directory to upload as a tar archive" required:"yes"`
	} `positional-args:"yes"`

	// Global is set by the parser.
	Global *internal.GlobalOptions `no-flag:"true"`

	bucket, prefix string
	client         manager.UploadAPIClient
}

func (c *Command) Execute(args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if c.bucket, c.prefix, err = internal.ParseS3URI(c.UploadTo); err != nil {
		return fmt.Errorf("invalid --upload-to: %w", err)
	}

	if c.PartSize < manager.MinUploadPartSize {
		return fmt.Errorf("--part-size must be at least %s", humanize.IBytes(uint64(manager.MinUploadPartSize)))
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx = internal.WithPrefixLogger(ctx, internal.Prefix(string(c.Args.Dir)))
	logger := internal.MustLogger(ctx)

	if c.client == nil {
		var optFns []func(*config.LoadOptions) error
		if c.Global.Profile != "" {
			optFns = append(optFns, config.WithSharedConfigProfile(c.Global.Profile))
		}

		cfg, err := config.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return fmt.Errorf("load AWS config error: %w", err)
		}

		c.client = s3.NewFromConfig(cfg)
	}

	idx, err := c.Global.Scan(ctx, string(c.Args.Dir))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := idx.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close archive error: %w", closeErr)
		}
	}()

	key, err := c.upload(ctx, idx)
	if err != nil {
		logger.Printf("upload error: %v", err)
		return err
	}

	logger.Printf(`uploaded to "s3://%s/%s"`, c.bucket, key)
	return nil
}
