package internal

import (
	"fmt"
	"strings"
)

// ParseS3URI parses S3 URIs in format s3://bucket/prefix.
//
// The prefix is optional. Bucket names are not validated beyond being non-empty.
func ParseS3URI(text string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(text, "s3://") {
		return "", "", fmt.Errorf(`"%s" does not start with s3://`, text)
	}

	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(text, "s3://"), "/")
	if bucket == "" {
		return "", "", fmt.Errorf(`"%s" has no bucket`, text)
	}

	return bucket, prefix, nil
}
