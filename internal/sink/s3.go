package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink streams written bytes into an S3 object via the SDK's multipart
// Uploader, the S3 analogue of FileSink's temp-file-then-rename atomicity:
// nothing is visible under the final key until Commit succeeds, and Abort
// cancels the in-progress multipart upload so no partial object survives.
type S3Sink struct {
	bucket, key string

	pw *io.PipeWriter
	pr *io.PipeReader

	cancel context.CancelFunc
	done   chan error
	once   sync.Once
	result error
}

// NewS3Sink loads the default AWS config (environment, shared config
// file, or EC2/ECS role, in the SDK's usual resolution order), optionally
// checks for an existing object when overwrite is disallowed, and starts
// the multipart upload reading from an internal pipe that Write feeds.
func NewS3Sink(bucket, key, region string, overwrite bool) (*S3Sink, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	if !overwrite {
		_, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
		if err == nil {
			cancel()
			return nil, fmt.Errorf("destination exists and overwrite is disabled: s3://%s/%s", bucket, key)
		}
	}

	pr, pw := io.Pipe()
	s := &S3Sink{
		bucket: bucket,
		key:    key,
		pw:     pw,
		pr:     pr,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	uploader := manager.NewUploader(client)
	go func() {
		_, uploadErr := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
			Body:   pr,
		})
		s.done <- uploadErr
	}()

	return s, nil
}

func (s *S3Sink) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}

// Commit closes the write side of the pipe, letting the uploader finish
// the last part, and waits for it to report success.
func (s *S3Sink) Commit() error {
	s.once.Do(func() {
		s.pw.Close()
		s.result = <-s.done
	})
	if s.result != nil {
		return fmt.Errorf("committing s3 upload to s3://%s/%s: %w", s.bucket, s.key, s.result)
	}
	return nil
}

// Abort cancels the upload's context, which causes the SDK to clean up
// the in-progress multipart upload, then drains the uploader goroutine.
func (s *S3Sink) Abort() error {
	s.once.Do(func() {
		s.cancel()
		s.pw.CloseWithError(errAborted)
		s.result = <-s.done
	})
	return nil
}

var errAborted = errors.New("sink: s3 upload aborted")
