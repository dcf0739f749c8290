package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AwsS3Repository is a struct that implements the Repository interface for
// handling configuration data stored in a YAML file within an S3 bucket.
type AwsS3Repository struct {
	document
	Name       string     // Name of the configuration source
	BucketName string     // Name of the S3 bucket
	ObjectName string     // Name of the YAML file within the S3 bucket
	Region     string     // Optional region override
	Endpoint   string     // Optional S3 compatible endpoint, path style addressing is used when set
	AccessKey  string     // Optional static access key
	SecretKey  string     // Optional static secret key
	Client     *s3.Client // S3 client instance

	clientOnce    sync.Once // Ensures client is initialized only once
	clientInitErr error     // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (a *AwsS3Repository) GetName() string {
	return a.Name
}

func (a *AwsS3Repository) client(ctx context.Context) (*s3.Client, error) {
	if a.Client != nil {
		return a.Client, nil
	}
	a.clientOnce.Do(func() {
		var opts []func(*config.LoadOptions) error
		if a.Region != "" {
			opts = append(opts, config.WithRegion(a.Region))
		}
		if a.AccessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(a.AccessKey, a.SecretKey, "")))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			a.clientInitErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		a.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if a.Endpoint != "" {
				o.BaseEndpoint = aws.String(a.Endpoint)
				o.UsePathStyle = true
			}
		})
	})
	return a.Client, a.clientInitErr
}

// Refresh reads the YAML file from the S3 bucket, unmarshal it into the data map.
func (a *AwsS3Repository) Refresh(ctx context.Context) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.BucketName),
		Key:    aws.String(a.ObjectName),
	})
	if err != nil {
		return err
	}
	defer result.Body.Close()

	fileContent, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}
	return a.replace(fileContent)
}

// Store uploads data to the S3 object and makes it the current document.
func (a *AwsS3Repository) Store(ctx context.Context, data []byte) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.BucketName),
		Key:         aws.String(a.ObjectName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return err
	}
	return a.replace(data)
}
