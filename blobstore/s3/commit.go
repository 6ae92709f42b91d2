package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/canbakiskan/voyager-node/blobstore"
)

// CurrentName is the virtual blob naming the published snapshot.
const CurrentName = "CURRENT"

// ErrConcurrentCommit is returned when another writer published a
// snapshot between our read and our commit.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore layers atomic snapshot publication on top of an S3 store.
// S3 has no compare-and-swap, so the CURRENT pointer lives in a DynamoDB
// table keyed by (base_uri, version): publishing writes the snapshot name
// under the next version with a conditional put, and a losing writer gets
// ErrConcurrentCommit instead of silently clobbering the winner.
//
// Table schema: partition key base_uri (S), sort key version (N).
type CommitStore struct {
	*Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore wraps store with a DynamoDB commit pointer. baseURI is
// the partition key, typically "s3://bucket/prefix".
func NewCommitStore(store *Store, ddb DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{Store: store, ddb: ddb, tableName: tableName, baseURI: baseURI}
}

// Open returns the published snapshot name when asked for CURRENT, and
// otherwise defers to S3.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.Store.Open(ctx, name)
	}

	version, snapshot, err := s.latestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return &pointerBlob{content: []byte(snapshot)}, nil
}

// Put publishes the snapshot pointer atomically when writing CURRENT, and
// otherwise defers to S3.
func (s *CommitStore) Put(ctx context.Context, name string, r io.Reader) error {
	if name != CurrentName {
		return s.Store.Put(ctx, name, r)
	}

	snapshot, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.commit(ctx, string(snapshot))
}

func (s *CommitStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("commit table: missing version attribute")
	}
	snapshotAttr, ok := item["snapshot"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("commit table: missing snapshot attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("commit table: bad version: %w", err)
	}
	return version, snapshotAttr.Value, nil
}

func (s *CommitStore) commit(ctx context.Context, snapshot string) error {
	current, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"snapshot": &types.AttributeValueMemberS{Value: snapshot},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("commit snapshot pointer: %w", err)
	}
	return nil
}

// pointerBlob serves the CURRENT pointer content from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) Bytes() ([]byte, error) {
	return bytes.Clone(b.content), nil
}
