package servicetable

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"NewsFlow/internal/ports"
)

// DynamoTable reads the service abbreviation table from DynamoDB. The table
// is maintained out-of-band; a run only ever scans it once.
type DynamoTable struct {
	client *dynamodb.Client
	table  string
}

var _ ports.ServiceTable = (*DynamoTable)(nil)

// NewDynamoTable wires a DynamoDB client with the table name.
func NewDynamoTable(client *dynamodb.Client, table string) *DynamoTable {
	return &DynamoTable{client: client, table: table}
}

type serviceRecord struct {
	ServiceName  string `dynamodbav:"service_name"`
	Abbreviation string `dynamodbav:"abbreviation"`
}

// GetAll scans the whole table, following pagination, and returns the
// canonical-name to aliases mapping.
func (t *DynamoTable) GetAll(ctx context.Context) (map[string][]string, error) {
	result := map[string][]string{}

	var startKey map[string]types.AttributeValue
	for {
		resp, err := t.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(t.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan service table: %w", err)
		}

		var records []serviceRecord
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &records); err != nil {
			return nil, fmt.Errorf("unmarshal service records: %w", err)
		}

		for _, rec := range records {
			if rec.ServiceName == "" {
				continue
			}
			if _, ok := result[rec.ServiceName]; !ok {
				result[rec.ServiceName] = nil
			}
			if rec.Abbreviation != "" && rec.Abbreviation != rec.ServiceName {
				result[rec.ServiceName] = append(result[rec.ServiceName], rec.Abbreviation)
			}
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	return result, nil
}
