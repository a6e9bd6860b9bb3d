// Package backend validates that a project's configured state backend is
// actually usable before deployments are enabled: a write/read round trip
// against the S3 bucket and a conditional-put lock probe against DynamoDB.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-uuid"

	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/pkg/logging"
)

const (
	probeTimeout  = 30 * time.Second
	lockTableName = "appforge-state-locks"
)

// s3API is the slice of the S3 client the read/write probe needs
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// dynamoAPI is the slice of the DynamoDB client the lock probe needs
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Validator probes the configured AWS state backend
type Validator struct {
	logger    *logging.Logger
	s3For     func(ctx context.Context, backend interfaces.BackendSettings) (s3API, error)
	dynamoFor func(ctx context.Context, backend interfaces.BackendSettings) (dynamoAPI, error)
}

// NewValidator creates a backend validator against real AWS clients
func NewValidator() *Validator {
	v := &Validator{logger: logging.Backend}
	v.s3For = func(ctx context.Context, backend interfaces.BackendSettings) (s3API, error) {
		return v.s3Client(ctx, backend)
	}
	v.dynamoFor = func(ctx context.Context, backend interfaces.BackendSettings) (dynamoAPI, error) {
		return v.dynamoClient(ctx, backend)
	}
	return v
}

// ValidateReadWrite writes a probe object under the project's state prefix,
// reads it back, compares the payload, and deletes it
func (v *Validator) ValidateReadWrite(ctx context.Context, backend interfaces.BackendSettings) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := v.s3For(ctx, backend)
	if err != nil {
		return err
	}

	nonce, err := uuid.GenerateUUID()
	if err != nil {
		return fmt.Errorf("failed to generate probe nonce: %w", err)
	}
	key := path.Join(backend.StatePrefix, ".appforge-probe-"+nonce)
	payload := []byte("appforge backend probe " + nonce)

	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(backend.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	}); err != nil {
		return fmt.Errorf("backend write probe failed for bucket %s: %w", backend.Bucket, err)
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(backend.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("backend read probe failed for bucket %s: %w", backend.Bucket, err)
	}
	defer func() { _ = obj.Body.Close() }()

	readBack, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("backend read probe failed to read body: %w", err)
	}
	if !bytes.Equal(readBack, payload) {
		return errors.New("backend read probe returned different content than was written")
	}

	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(backend.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		// The probe object is harmless; deletion failure is worth surfacing
		// since destroy-time cleanup needs delete permission too.
		return fmt.Errorf("backend delete probe failed for bucket %s: %w", backend.Bucket, err)
	}

	v.logger.Info("backend read/write probe passed for s3://%s/%s", backend.Bucket, backend.StatePrefix)
	return nil
}

// ValidateLocking acquires and releases a probe lock using a conditional put,
// verifying the lock table accepts the same write pattern the IaC engine uses
func (v *Validator) ValidateLocking(ctx context.Context, backend interfaces.BackendSettings) error {
	if backend.LockStrategy != "dynamodb" {
		return fmt.Errorf("unsupported lock strategy %q: only %q is supported", backend.LockStrategy, "dynamodb")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := v.dynamoFor(ctx, backend)
	if err != nil {
		return err
	}

	nonce, err := uuid.GenerateUUID()
	if err != nil {
		return fmt.Errorf("failed to generate probe nonce: %w", err)
	}
	lockID := path.Join(backend.StatePrefix, ".appforge-lock-probe-"+nonce)

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(lockTableName),
		Item: map[string]ddbtypes.AttributeValue{
			"LockID": &ddbtypes.AttributeValueMemberS{Value: lockID},
			"Owner":  &ddbtypes.AttributeValueMemberS{Value: probeOwner()},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		return fmt.Errorf("backend lock probe failed to acquire: %w", err)
	}

	if _, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(lockTableName),
		Key: map[string]ddbtypes.AttributeValue{
			"LockID": &ddbtypes.AttributeValueMemberS{Value: lockID},
		},
	}); err != nil {
		return fmt.Errorf("backend lock probe failed to release: %w", err)
	}

	v.logger.Info("backend lock probe passed for table %s", lockTableName)
	return nil
}

// s3Client builds an S3 client honoring the backend's region and profile
func (v *Validator) s3Client(ctx context.Context, backend interfaces.BackendSettings) (*s3.Client, error) {
	cfg, err := v.awsConfig(ctx, backend)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

// dynamoClient builds a DynamoDB client honoring the backend's region and profile
func (v *Validator) dynamoClient(ctx context.Context, backend interfaces.BackendSettings) (*dynamodb.Client, error) {
	cfg, err := v.awsConfig(ctx, backend)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func (v *Validator) awsConfig(ctx context.Context, backend interfaces.BackendSettings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(backend.Region),
	}
	if backend.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(backend.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// probeOwner identifies this process in probe lock records
func probeOwner() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// Ensure Validator implements interfaces.BackendProber
var _ interfaces.BackendProber = (*Validator)(nil)
