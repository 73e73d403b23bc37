package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoTable stores items in a DynamoDB table whose partition key is the
// string attribute noteId.
type DynamoTable struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoTable loads AWS configuration and checks that the table exists.
func NewDynamoTable(ctx context.Context, cfg DynamoDBConfig) (*DynamoTable, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	table := cfg.Table
	if table == "" {
		table = DefaultTableName
	}
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	return &DynamoTable{client: client, table: table}, nil
}

func (t *DynamoTable) Put(ctx context.Context, item Item) error {
	fields, err := item.Fields()
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	av, err := attributevalue.MarshalMap(fields)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.table),
		Item:      av,
	})
	return err
}

func (t *DynamoTable) Get(ctx context.Context, noteID string) (Item, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.table),
		Key: map[string]types.AttributeValue{
			"noteId": &types.AttributeValueMemberS{Value: noteID},
		},
	})
	if err != nil {
		return Item{}, err
	}
	if len(out.Item) == 0 {
		return Item{}, ErrItemNotFound
	}
	var fields map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &fields); err != nil {
		return Item{}, fmt.Errorf("unmarshal item %s: %w", noteID, err)
	}
	return itemFromFields(fields)
}

func (t *DynamoTable) Close() error { return nil }
