package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge/internal/interfaces"
)

// fakeObjectStore implements s3API over a map
type fakeObjectStore struct {
	objects     map[string][]byte
	putErr      error
	getErr      error
	deleteErr   error
	corrupt     bool
	lastBucket  string
	deletedKeys []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastBucket = *params.Bucket
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	if f.corrupt {
		data = append([]byte("garbled "), data...)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedKeys = append(f.deletedKeys, *params.Key)
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

// fakeLockTable implements dynamoAPI with conditional-put semantics
type fakeLockTable struct {
	items      map[string]string
	held       bool
	deleteErr  error
	conditions []string
	table      string
}

func newFakeLockTable() *fakeLockTable {
	return &fakeLockTable{items: make(map[string]string)}
}

func lockIDOf(item map[string]ddbtypes.AttributeValue) string {
	attr, ok := item["LockID"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return attr.Value
}

func (f *fakeLockTable) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.table = *params.TableName
	if params.ConditionExpression != nil {
		f.conditions = append(f.conditions, *params.ConditionExpression)
	}
	id := lockIDOf(params.Item)
	_, exists := f.items[id]
	if (exists || f.held) && params.ConditionExpression != nil {
		return nil, &ddbtypes.ConditionalCheckFailedException{Message: awsString("The conditional request failed")}
	}
	owner, _ := params.Item["Owner"].(*ddbtypes.AttributeValueMemberS)
	f.items[id] = owner.Value
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeLockTable) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.items, lockIDOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func awsString(s string) *string { return &s }

func testBackend() interfaces.BackendSettings {
	return interfaces.BackendSettings{
		Bucket:       "acme-infra-state",
		Region:       "us-east-1",
		StatePrefix:  "projects/shop",
		LockStrategy: "dynamodb",
	}
}

func newTestValidator(store *fakeObjectStore, table *fakeLockTable) *Validator {
	v := NewValidator()
	v.s3For = func(context.Context, interfaces.BackendSettings) (s3API, error) {
		return store, nil
	}
	v.dynamoFor = func(context.Context, interfaces.BackendSettings) (dynamoAPI, error) {
		return table, nil
	}
	return v
}

func TestValidator_ReadWrite(t *testing.T) {
	t.Parallel()

	t.Run("RoundTripWritesUnderStatePrefixAndCleansUp", func(t *testing.T) {
		t.Parallel()
		store := newFakeObjectStore()
		v := newTestValidator(store, newFakeLockTable())

		require.NoError(t, v.ValidateReadWrite(context.Background(), testBackend()))

		assert.Equal(t, "acme-infra-state", store.lastBucket)
		require.Len(t, store.deletedKeys, 1)
		assert.True(t, strings.HasPrefix(store.deletedKeys[0], "projects/shop/"), "key %q not under the state prefix", store.deletedKeys[0])
		assert.Empty(t, store.objects, "the written object is removed after the check")
	})

	t.Run("MismatchedReadBackFails", func(t *testing.T) {
		t.Parallel()
		store := newFakeObjectStore()
		store.corrupt = true
		v := newTestValidator(store, newFakeLockTable())

		err := v.ValidateReadWrite(context.Background(), testBackend())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different content")
	})

	t.Run("WriteDeniedSurfacesBucket", func(t *testing.T) {
		t.Parallel()
		store := newFakeObjectStore()
		store.putErr = errors.New("AccessDenied")
		v := newTestValidator(store, newFakeLockTable())

		err := v.ValidateReadWrite(context.Background(), testBackend())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acme-infra-state")
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("DeleteDeniedFails", func(t *testing.T) {
		t.Parallel()
		store := newFakeObjectStore()
		store.deleteErr = errors.New("AccessDenied")
		v := newTestValidator(store, newFakeLockTable())

		err := v.ValidateReadWrite(context.Background(), testBackend())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete")
	})
}

func TestValidator_Locking(t *testing.T) {
	t.Parallel()

	t.Run("AcquiresConditionallyAndReleases", func(t *testing.T) {
		t.Parallel()
		table := newFakeLockTable()
		v := newTestValidator(newFakeObjectStore(), table)

		require.NoError(t, v.ValidateLocking(context.Background(), testBackend()))

		assert.Equal(t, "appforge-state-locks", table.table)
		require.Len(t, table.conditions, 1)
		assert.Equal(t, "attribute_not_exists(LockID)", table.conditions[0])
		assert.Empty(t, table.items, "the lock row is released after the check")
	})

	t.Run("HeldLockRejectsConditionalPut", func(t *testing.T) {
		t.Parallel()
		table := newFakeLockTable()
		v := newTestValidator(newFakeObjectStore(), table)

		// The lock id carries a random nonce, so the collision is simulated
		// for every id.
		table.held = true

		err := v.ValidateLocking(context.Background(), testBackend())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to acquire")
		var conditional *ddbtypes.ConditionalCheckFailedException
		assert.ErrorAs(t, err, &conditional)
	})

	t.Run("ReleaseFailureFails", func(t *testing.T) {
		t.Parallel()
		table := newFakeLockTable()
		table.deleteErr = errors.New("AccessDenied")
		v := newTestValidator(newFakeObjectStore(), table)

		err := v.ValidateLocking(context.Background(), testBackend())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to release")
	})

	t.Run("UnsupportedStrategyIsRejectedUpFront", func(t *testing.T) {
		t.Parallel()
		v := newTestValidator(newFakeObjectStore(), newFakeLockTable())
		backend := testBackend()
		backend.LockStrategy = "consul"

		err := v.ValidateLocking(context.Background(), backend)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported lock strategy "consul"`)
	})
}
