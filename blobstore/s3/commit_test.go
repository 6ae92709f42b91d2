package s3

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canbakiskan/voyager-node/blobstore"
)

// fakeDDBClient is an in-memory DynamoDB honoring the conditional put the
// commit store relies on.
type fakeDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDDBClient() *fakeDDBClient {
	return &fakeDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (c *fakeDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := uri + ":" + version

	if params.ConditionExpression != nil {
		if _, exists := c.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	}
	c.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (c *fakeDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var latest map[string]types.AttributeValue
	var latestVersion string
	for _, item := range c.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value != uri {
			continue
		}
		v := item["version"].(*types.AttributeValueMemberN).Value
		if latest == nil || len(v) > len(latestVersion) || (len(v) == len(latestVersion) && v > latestVersion) {
			latest = item
			latestVersion = v
		}
	}

	out := &dynamodb.QueryOutput{}
	if latest != nil {
		out.Items = append(out.Items, latest)
	}
	return out, nil
}

func readPointer(t *testing.T, blob blobstore.Blob) string {
	t.Helper()
	data := make([]byte, blob.Size())
	_, err := io.ReadFull(io.NewSectionReader(blob, 0, blob.Size()), data)
	require.NoError(t, err)
	return string(data)
}

func TestCommitStorePublish(t *testing.T) {
	ctx := context.Background()
	store := NewCommitStore(
		NewStore(newFakeS3Client(), "bucket", "idx"),
		newFakeDDBClient(),
		"voyager-commits",
		"s3://bucket/idx",
	)

	_, err := store.Open(ctx, CurrentName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	// Regular blobs pass through to S3.
	require.NoError(t, store.Put(ctx, "snap-1.voy", strings.NewReader("data")))

	require.NoError(t, store.Put(ctx, CurrentName, strings.NewReader("snap-1.voy")))
	blob, err := store.Open(ctx, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "snap-1.voy", readPointer(t, blob))

	require.NoError(t, store.Put(ctx, CurrentName, strings.NewReader("snap-2.voy")))
	blob, err = store.Open(ctx, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "snap-2.voy", readPointer(t, blob))
}

// staleQueryDDB serves Query results from a fixed point in time, so a
// commit sees an outdated latest version while PutItem sees the truth.
type staleQueryDDB struct {
	*fakeDDBClient
	stale []map[string]types.AttributeValue
}

func (c *staleQueryDDB) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{Items: c.stale}, nil
}

func TestCommitStoreConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDBClient()

	item := func(version, snapshot string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: "s3://bucket/idx"},
			"version":  &types.AttributeValueMemberN{Value: version},
			"snapshot": &types.AttributeValueMemberS{Value: snapshot},
		}
	}

	// Version 1 is committed; another writer has already claimed 2.
	for _, it := range []map[string]types.AttributeValue{
		item("1", "snap-1.voy"),
		item("2", "snap-other.voy"),
	} {
		_, err := ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String("voyager-commits"),
			Item:      it,
		})
		require.NoError(t, err)
	}

	// This writer still believes 1 is the latest, so its commit targets
	// the taken version 2 and must fail cleanly.
	store := NewCommitStore(
		NewStore(newFakeS3Client(), "bucket", "idx"),
		&staleQueryDDB{fakeDDBClient: ddb, stale: []map[string]types.AttributeValue{item("1", "snap-1.voy")}},
		"voyager-commits",
		"s3://bucket/idx",
	)

	err := store.Put(ctx, CurrentName, strings.NewReader("snap-mine.voy"))
	require.ErrorIs(t, err, ErrConcurrentCommit)
}
