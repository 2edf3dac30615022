package kinesis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sales-desk/internal/infrastructure/store"
)

func documentKeys(collection, id string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"pk": events.NewStringAttribute(collection),
		"sk": events.NewStringAttribute(id),
	}
}

func streamRecord(eventName, collection, id string) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName: eventName,
		Change: events.DynamoDBStreamRecord{
			ApproximateCreationDateTime: events.SecondsEpochTime{Time: time.Unix(1700000000, 0)},
			Keys:                        documentKeys(collection, id),
		},
	}
}

func TestConvertKeys(t *testing.T) {
	tests := []struct {
		name    string
		keys    map[string]events.DynamoDBAttributeValue
		wantErr bool
		wantNil bool
	}{
		{
			name: "valid keys",
			keys: documentKeys("orders", "1001"),
		},
		{
			name:    "nil keys",
			keys:    nil,
			wantErr: true,
		},
		{
			name: "missing sort key",
			keys: map[string]events.DynamoDBAttributeValue{
				"pk": events.NewStringAttribute("orders"),
			},
			wantErr: true,
		},
		{
			name:    "unknown collection",
			keys:    documentKeys("carts", "c-1"),
			wantNil: true,
		},
		{
			name: "numeric key attribute",
			keys: map[string]events.DynamoDBAttributeValue{
				"pk": events.NewStringAttribute("orders"),
				"sk": events.NewNumberAttribute("1001"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := convertKeys(tt.keys, store.OpCreated, events.DynamoDBEventRecord{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, store.CollectionOrders, change.Collection)
			assert.Equal(t, "1001", change.ID)
			assert.Equal(t, store.OpCreated, change.Op)
		})
	}
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("event names map to ops", func(t *testing.T) {
		cases := map[string]store.Op{
			"INSERT": store.OpCreated,
			"MODIFY": store.OpUpdated,
			"REMOVE": store.OpDeleted,
		}
		for name, op := range cases {
			change, err := ConvertFromDynamoDBStreamRecord(streamRecord(name, "products", "P1"))
			require.NoError(t, err)
			require.NotNil(t, change)
			assert.Equal(t, op, change.Op, name)
			assert.Equal(t, "P1", change.ID)
			assert.Equal(t, int64(1700000000), change.At.Unix())
		}
	})

	t.Run("falls back to old image on remove", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "REMOVE",
			Change: events.DynamoDBStreamRecord{
				OldImage: documentKeys("customers", "0100"),
			},
		}

		change, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, store.CollectionCustomers, change.Collection)
		assert.Equal(t, "0100", change.ID)
	})

	t.Run("unknown event name returns nil", func(t *testing.T) {
		change, err := ConvertFromDynamoDBStreamRecord(events.DynamoDBEventRecord{EventName: "TTL"})
		require.NoError(t, err)
		assert.Nil(t, change)
	})
}

func TestConvertFromKinesisRecord(t *testing.T) {
	t.Run("valid Kinesis record", func(t *testing.T) {
		dynamoRecordJSON, err := json.Marshal(streamRecord("INSERT", "users", "admin"))
		require.NoError(t, err)

		kinesisRecord := events.KinesisEventRecord{
			EventID: "kinesis-event-1",
			Kinesis: events.KinesisRecord{Data: dynamoRecordJSON},
		}

		change, err := ConvertFromKinesisRecord(kinesisRecord)
		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, store.CollectionUsers, change.Collection)
		assert.Equal(t, "admin", change.ID)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := ConvertFromKinesisRecord(events.KinesisEventRecord{
			Kinesis: events.KinesisRecord{Data: []byte("not json")},
		})
		assert.Error(t, err)
	})
}

func TestBatchConvertFromKinesisEvent(t *testing.T) {
	t.Run("batch conversion with mixed results", func(t *testing.T) {
		validJSON, _ := json.Marshal(streamRecord("MODIFY", "orders", "1001"))
		ttlJSON, _ := json.Marshal(events.DynamoDBEventRecord{EventName: "TTL"})

		kinesisEvent := events.KinesisEvent{
			Records: []events.KinesisEventRecord{
				{EventID: "1", Kinesis: events.KinesisRecord{Data: validJSON}},
				{EventID: "2", Kinesis: events.KinesisRecord{Data: ttlJSON}},
				{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("invalid json")}},
			},
		}

		changes, errs := BatchConvertFromKinesisEvent(kinesisEvent)

		assert.Len(t, changes, 1)
		assert.Len(t, errs, 1)
		assert.Equal(t, "1001", changes[0].ID)
		assert.Equal(t, store.OpUpdated, changes[0].Op)
	})
}
