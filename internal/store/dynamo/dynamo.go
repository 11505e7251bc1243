package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/store"
)

// Client is the subset of the DynamoDB API the store uses. Satisfied by
// *dynamodb.Client and by test fakes.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Tables names the three tables the gateway reads.
type Tables struct {
	Providers string
	Endpoints string
	Agents    string
}

// Store implements store.ConfigStore on DynamoDB. Endpoint lookups by
// provider use the provider_id-index GSI.
type Store struct {
	client Client
	tables Tables
}

func New(client Client, tables Tables) *Store {
	return &Store{client: client, tables: tables}
}

func (s *Store) Close() error { return nil }

type templateRecord struct {
	ProviderID            string `dynamodbav:"provider_id"`
	ProviderName          string `dynamodbav:"provider_name"`
	BaseURL               string `dynamodbav:"base_url"`
	EndpointPath          string `dynamodbav:"endpoint_path"`
	AuthType              string `dynamodbav:"auth_type"`
	AuthHeader            string `dynamodbav:"auth_header"`
	RequestTransformerID  string `dynamodbav:"request_transformer_id"`
	ResponseTransformerID string `dynamodbav:"response_transformer_id"`
	DefaultTimeoutMS      int64  `dynamodbav:"default_timeout_ms"`
	MaxRetries            int    `dynamodbav:"max_retries"`
	SupportsStreaming     bool   `dynamodbav:"supports_streaming"`
	SupportsTools         bool   `dynamodbav:"supports_tools"`
}

type endpointRecord struct {
	EndpointID    string            `dynamodbav:"endpoint_id"`
	ProviderID    string            `dynamodbav:"provider_id"`
	Environment   string            `dynamodbav:"environment"`
	Name          string            `dynamodbav:"name"`
	ModelID       string            `dynamodbav:"model_id"`
	SecretPath    string            `dynamodbav:"secret_path"`
	CustomHeaders map[string]string `dynamodbav:"custom_headers"`
	RateLimit     float64           `dynamodbav:"rate_limit"`
	Priority      int               `dynamodbav:"priority"`
	Enabled       bool              `dynamodbav:"enabled"`
	TestStatus    string            `dynamodbav:"test_status"`
	LastTested    string            `dynamodbav:"last_tested"` // RFC 3339, empty if never tested
}

func (r endpointRecord) toDomain() domain.EndpointConfig {
	ep := domain.EndpointConfig{
		EndpointID:    r.EndpointID,
		ProviderID:    r.ProviderID,
		Environment:   r.Environment,
		Name:          r.Name,
		ModelID:       r.ModelID,
		SecretPath:    r.SecretPath,
		CustomHeaders: r.CustomHeaders,
		RateLimit:     r.RateLimit,
		Priority:      r.Priority,
		Enabled:       r.Enabled,
		TestStatus:    r.TestStatus,
	}
	if r.LastTested != "" {
		if t, err := time.Parse(time.RFC3339, r.LastTested); err == nil {
			ep.LastTested = &t
		}
	}
	return ep
}

func (s *Store) getItem(ctx context.Context, table, keyName, keyValue string, out interface{}) error {
	res, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			keyName: &types.AttributeValueMemberS{Value: keyValue},
		},
	})
	if err != nil {
		return err
	}
	if res.Item == nil {
		return store.ErrNotFound
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

func (s *Store) GetProviderTemplate(ctx context.Context, providerID string) (*domain.ProviderTemplate, error) {
	var rec templateRecord
	if err := s.getItem(ctx, s.tables.Providers, "provider_id", providerID, &rec); err != nil {
		return nil, err
	}
	return &domain.ProviderTemplate{
		ProviderID:            rec.ProviderID,
		ProviderName:          rec.ProviderName,
		BaseURL:               rec.BaseURL,
		EndpointPath:          rec.EndpointPath,
		AuthType:              rec.AuthType,
		AuthHeader:            rec.AuthHeader,
		RequestTransformerID:  rec.RequestTransformerID,
		ResponseTransformerID: rec.ResponseTransformerID,
		DefaultTimeout:        time.Duration(rec.DefaultTimeoutMS) * time.Millisecond,
		MaxRetries:            rec.MaxRetries,
		SupportsStreaming:     rec.SupportsStreaming,
		SupportsTools:         rec.SupportsTools,
	}, nil
}

func (s *Store) GetEndpoint(ctx context.Context, endpointID string) (*domain.EndpointConfig, error) {
	var rec endpointRecord
	if err := s.getItem(ctx, s.tables.Endpoints, "endpoint_id", endpointID, &rec); err != nil {
		return nil, err
	}
	ep := rec.toDomain()
	return &ep, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]domain.EndpointConfig, error) {
	res, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.Endpoints),
	})
	if err != nil {
		return nil, err
	}
	var recs []endpointRecord
	if err := attributevalue.UnmarshalListOfMaps(res.Items, &recs); err != nil {
		return nil, err
	}
	eps := make([]domain.EndpointConfig, 0, len(recs))
	for _, r := range recs {
		eps = append(eps, r.toDomain())
	}
	return eps, nil
}

func (s *Store) EndpointsForProvider(ctx context.Context, providerID string) ([]domain.EndpointConfig, error) {
	res, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Endpoints),
		IndexName:              aws.String("provider_id-index"),
		KeyConditionExpression: aws.String("provider_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: providerID},
		},
	})
	if err != nil {
		return nil, err
	}
	var recs []endpointRecord
	if err := attributevalue.UnmarshalListOfMaps(res.Items, &recs); err != nil {
		return nil, err
	}
	eps := make([]domain.EndpointConfig, 0, len(recs))
	for _, r := range recs {
		eps = append(eps, r.toDomain())
	}
	return eps, nil
}

func (s *Store) GetAgentAssignment(ctx context.Context, agentID string) (string, error) {
	var rec struct {
		AgentID    string `dynamodbav:"agent_id"`
		EndpointID string `dynamodbav:"endpoint_id"`
	}
	if err := s.getItem(ctx, s.tables.Agents, "agent_id", agentID, &rec); err != nil {
		return "", err
	}
	return rec.EndpointID, nil
}

func (s *Store) UpdateTestStatus(ctx context.Context, endpointID, status string, testedAt time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tables.Endpoints),
		Key: map[string]types.AttributeValue{
			"endpoint_id": &types.AttributeValueMemberS{Value: endpointID},
		},
		UpdateExpression: aws.String("SET test_status = :status, last_tested = :tested"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":tested": &types.AttributeValueMemberS{Value: testedAt.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(endpoint_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return store.ErrNotFound
	}
	return err
}
