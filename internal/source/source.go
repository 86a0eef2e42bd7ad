// Package source opens transaction record sources and reads them as CSV.
//
// A source is named by a URI:
//
//	./transactions.csv             local file
//	s3://bucket/path/file.csv      Amazon S3 (or any S3-compatible endpoint)
//	gs://bucket/path/file.csv      Google Cloud Storage
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/transactions/internal/config"
)

// Source is a named, openable byte stream.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Parse resolves a URI to a Source. It performs no I/O.
func Parse(uri string, cfg config.SourceConfig) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := splitObjectURI(uri, "s3://")
		if err != nil {
			return nil, err
		}
		return &S3Object{Bucket: bucket, Key: key, Region: cfg.S3Region, Endpoint: cfg.S3Endpoint, PathStyle: cfg.S3PathStyle}, nil
	case strings.HasPrefix(uri, "gs://"):
		bucket, object, err := splitObjectURI(uri, "gs://")
		if err != nil {
			return nil, err
		}
		return &GCSObject{Bucket: bucket, Object: object}, nil
	case strings.TrimSpace(uri) == "":
		return nil, fmt.Errorf("empty source")
	default:
		return File(uri), nil
	}
}

func splitObjectURI(uri, scheme string) (string, string, error) {
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid object URI (want %sbucket/object): %s", scheme, uri)
	}
	return parts[0], parts[1], nil
}

// File is a source on the local filesystem.
type File string

func (f File) Name() string { return string(f) }

func (f File) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

// S3Object is a single object in an S3 bucket. Credentials come from the
// default AWS chain.
type S3Object struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

func (o *S3Object) Name() string { return "s3://" + o.Bucket + "/" + o.Key }

func (o *S3Object) Open(ctx context.Context) (io.ReadCloser, error) {
	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(opts *s3.Options) {
		if o.PathStyle {
			opts.UsePathStyle = true
		}
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.Bucket),
		Key:    aws.String(o.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", o.Name(), err)
	}
	return out.Body, nil
}

// GCSObject is a single Cloud Storage object. Credentials come from
// Application Default Credentials.
type GCSObject struct {
	Bucket string
	Object string
}

func (o *GCSObject) Name() string { return "gs://" + o.Bucket + "/" + o.Object }

func (o *GCSObject) Open(ctx context.Context) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	r, err := client.Bucket(o.Bucket).Object(o.Object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open GCS object reader %s: %w", o.Name(), err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

// gcsReader closes the client along with the object reader.
type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}
