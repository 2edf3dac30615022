package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/sales-desk/internal/infrastructure/store"
)

var opsByEventName = map[string]store.Op{
	"INSERT": store.OpCreated,
	"MODIFY": store.OpUpdated,
	"REMOVE": store.OpDeleted,
}

// ConvertFromKinesisRecord turns a documents-table stream record delivered by
// the DynamoDB Kinesis integration into a store.Change.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*store.Change, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Streams record. Records
// of unknown event names or of items outside the four collections yield nil
// without error.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*store.Change, error) {
	op, ok := opsByEventName[record.EventName]
	if !ok {
		return nil, nil
	}

	keys := record.Change.Keys
	if keys == nil {
		// older producers omit Keys; both images carry the key attributes
		keys = record.Change.NewImage
		if keys == nil {
			keys = record.Change.OldImage
		}
	}
	return convertKeys(keys, op, record)
}

func convertKeys(keys map[string]events.DynamoDBAttributeValue, op store.Op, record events.DynamoDBEventRecord) (*store.Change, error) {
	if keys == nil {
		return nil, fmt.Errorf("DynamoDB record has no keys")
	}

	change := &store.Change{Op: op, At: record.Change.ApproximateCreationDateTime.Time}
	if v, ok := keys["pk"]; ok && v.DataType() == events.DataTypeString {
		change.Collection = v.String()
	}
	if v, ok := keys["sk"]; ok && v.DataType() == events.DataTypeString {
		change.ID = v.String()
	}

	if change.Collection == "" || change.ID == "" {
		return nil, fmt.Errorf("missing key attributes: pk=%q, sk=%q", change.Collection, change.ID)
	}
	switch change.Collection {
	case store.CollectionUsers, store.CollectionProducts, store.CollectionCustomers, store.CollectionOrders:
	default:
		// other items in the table never become valid on retry
		return nil, nil
	}

	return change, nil
}

// BatchConvertFromKinesisEvent converts all records of a Kinesis event.
// Returns successfully converted changes and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*store.Change, []error) {
	var changes []*store.Change
	var errs []error

	for _, record := range kinesisEvent.Records {
		change, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if change != nil {
			changes = append(changes, change)
		}
	}

	return changes, errs
}
