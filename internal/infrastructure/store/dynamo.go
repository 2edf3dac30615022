package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/domain"
)

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Condition expressions used by the store.
const (
	condNotExists = "attribute_not_exists(sk)"
	condExists    = "attribute_exists(sk)"
	condUnchanged = "attribute_exists(sk) AND updated_at = :prev"
)

// maxUpdateAttempts bounds the optimistic read-modify-write loop in Update.
const maxUpdateAttempts = 3

// dynamoDocument is the item layout of the documents table. The table is
// keyed by collection (pk) and record key (sk).
type dynamoDocument struct {
	PK        string `dynamodbav:"pk"`
	SK        string `dynamodbav:"sk"`
	Doc       string `dynamodbav:"doc"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStore keeps every record as a JSON document in one DynamoDB table.
// With Kinesis streaming enabled on the table, writes from any process
// reach the relay Lambda.
type DynamoStore struct {
	*broadcaster

	users     *dynamoCollection[domain.User]
	products  *dynamoCollection[domain.Product]
	customers *dynamoCollection[domain.Customer]
	orders    *dynamoCollection[domain.Order]
}

func NewDynamoStore(client DynamoAPI, tableName string, publisher Publisher, log *zap.Logger) *DynamoStore {
	b := newBroadcaster(publisher, log)
	return &DynamoStore{
		broadcaster: b,
		users:       newDynamoCollection[domain.User](client, tableName, b),
		products:    newDynamoCollection[domain.Product](client, tableName, b),
		customers:   newDynamoCollection[domain.Customer](client, tableName, b),
		orders:      newDynamoCollection[domain.Order](client, tableName, b),
	}
}

func (s *DynamoStore) Users() Collection[domain.User]         { return s.users }
func (s *DynamoStore) Products() Collection[domain.Product]   { return s.products }
func (s *DynamoStore) Customers() Collection[domain.Customer] { return s.customers }
func (s *DynamoStore) Orders() Collection[domain.Order]       { return s.orders }

func (s *DynamoStore) Close() error { return nil }

type dynamoCollection[T domain.Record] struct {
	name   string
	table  string
	client DynamoAPI
	bus    *broadcaster
}

func newDynamoCollection[T domain.Record](client DynamoAPI, table string, bus *broadcaster) *dynamoCollection[T] {
	return &dynamoCollection[T]{name: collectionOf[T](), table: table, client: client, bus: bus}
}

func (c *dynamoCollection[T]) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: c.name},
		"sk": &types.AttributeValueMemberS{Value: id},
	}
}

func (c *dynamoCollection[T]) List(ctx context.Context) ([]T, error) {
	p := dynamodb.NewQueryPaginator(c.client, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: c.name},
		},
		// reference and last-admin guards list right after writes
		ConsistentRead: aws.Bool(true),
	})

	var docs []dynamoDocument
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("list", c.name, "*", err)
		}
		var batch []dynamoDocument
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, storeErr("decode", c.name, "*", err)
		}
		docs = append(docs, batch...)
	}

	// the sort key orders by record key; callers expect creation order
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt == docs[j].CreatedAt {
			return docs[i].SK < docs[j].SK
		}
		return docs[i].CreatedAt < docs[j].CreatedAt
	})

	items := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode[T]([]byte(d.Doc))
		if err != nil {
			return nil, storeErr("decode", c.name, d.SK, err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (c *dynamoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.load(ctx, id)
	if err != nil {
		return zero, err
	}
	v, err := decode[T]([]byte(doc.Doc))
	if err != nil {
		return zero, storeErr("decode", c.name, id, err)
	}
	return v, nil
}

func (c *dynamoCollection[T]) load(ctx context.Context, id string) (*dynamoDocument, error) {
	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            c.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get", c.name, id, err)
	}
	if out.Item == nil {
		return nil, notFound(c.name, id)
	}
	var doc dynamoDocument
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, storeErr("decode", c.name, id, err)
	}
	return &doc, nil
}

func (c *dynamoCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	id := rec.Key()
	if err := checkKey(c.name, id); err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", storeErr("encode", c.name, id, err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	av, err := attributevalue.MarshalMap(dynamoDocument{
		PK:        c.name,
		SK:        id,
		Doc:       string(data),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", storeErr("encode", c.name, id, err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.table),
		Item:                av,
		ConditionExpression: aws.String(condNotExists),
	})
	if err != nil {
		if isConditionFailed(err) {
			return "", duplicate(c.name, id)
		}
		return "", storeErr("create", c.name, id, err)
	}

	c.bus.emit(ctx, c.name, id, OpCreated)
	return id, nil
}

// Update reads the item, applies fn and writes it back on the condition that
// nobody else wrote in between. A lost race re-runs fn on fresh data.
func (c *dynamoCollection[T]) Update(ctx context.Context, id string, fn func(*T) error) error {
	for attempt := 1; ; attempt++ {
		doc, err := c.load(ctx, id)
		if err != nil {
			return err
		}
		working, err := decode[T]([]byte(doc.Doc))
		if err != nil {
			return storeErr("decode", c.name, id, err)
		}
		if err := fn(&working); err != nil {
			return err
		}
		if working.Key() != id {
			return fmt.Errorf("%w: %s key cannot change", domain.ErrValidation, singular(c.name))
		}

		data, err := json.Marshal(working)
		if err != nil {
			return storeErr("encode", c.name, id, err)
		}
		prev := doc.UpdatedAt
		doc.Doc = string(data)
		doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
		av, err := attributevalue.MarshalMap(doc)
		if err != nil {
			return storeErr("encode", c.name, id, err)
		}

		_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(c.table),
			Item:                av,
			ConditionExpression: aws.String(condUnchanged),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prev": &types.AttributeValueMemberS{Value: prev},
			},
		})
		if err == nil {
			break
		}
		if !isConditionFailed(err) {
			return storeErr("update", c.name, id, err)
		}
		if attempt == maxUpdateAttempts {
			return storeErr("update", c.name, id, errors.New("concurrent modification"))
		}
	}

	c.bus.emit(ctx, c.name, id, OpUpdated)
	return nil
}

func (c *dynamoCollection[T]) Delete(ctx context.Context, id string) error {
	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(c.table),
		Key:                 c.key(id),
		ConditionExpression: aws.String(condExists),
	})
	if err != nil {
		if isConditionFailed(err) {
			return notFound(c.name, id)
		}
		return storeErr("delete", c.name, id, err)
	}

	c.bus.emit(ctx, c.name, id, OpDeleted)
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
