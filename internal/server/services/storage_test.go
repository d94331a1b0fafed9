package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/fieldsync/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorageForTest() *FileStorage {
	return NewFileStorage(&sc.Config{
		S3Region:                "us-east-1",
		S3RootUser:              "minioadmin",
		S3RootPassword:          "minioadmin",
		S3BaseEndpoint:          "http://127.0.0.1:9000",
		S3Bucket:                "fieldsync",
		PresignValidityDuration: 5 * time.Minute,
	})
}

func stubS3(t *testing.T) *int {
	t.Helper()
	origLoad, origNewS3, origNewPre, origGet := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignGetObject = origGet
	})

	loads := 0
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		loads++
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("BaseEndpoint not applied")
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	return &loads
}

func TestFileStorage_PresignGet(t *testing.T) {
	loads := stubS3(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, 5*time.Minute, po.Expires)
		assert.Equal(t, "fieldsync", *in.Bucket)
		return &v4.PresignedHTTPRequest{URL: "https://s3/" + *in.Key}, nil
	}

	fs := newStorageForTest()
	url, err := fs.PresignGet(context.Background(), "drawings/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/drawings/1.pdf", url)

	_, err = fs.PresignGet(context.Background(), "photos/2.jpg")
	require.NoError(t, err)
	assert.Equal(t, 1, *loads, "presign client is built once")
}

func TestFileStorage_PresignGet_Errors(t *testing.T) {
	t.Run("config load", func(t *testing.T) {
		stubS3(t)
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("load-fail")
		}
		_, err := newStorageForTest().PresignGet(context.Background(), "k")
		if err == nil || err.Error() != "load-fail" {
			t.Fatalf("want load-fail, got %v", err)
		}
	})

	t.Run("presign", func(t *testing.T) {
		stubS3(t)
		presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			return nil, errors.New("presign-get-fail")
		}
		_, err := newStorageForTest().PresignGet(context.Background(), "k")
		if err == nil || err.Error() != "presign-get-fail" {
			t.Fatalf("want presign-get-fail, got %v", err)
		}
	})
}
