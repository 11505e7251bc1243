package awssm_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/llm-gateway/internal/secrets"
	"github.com/agentforge/llm-gateway/internal/secrets/awssm"
)

type fakeClient struct {
	lastSecretID string
	value        string
	err          error
}

func (f *fakeClient) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.lastSecretID = aws.ToString(in.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestGetSecretBareKey(t *testing.T) {
	client := &fakeClient{value: "sk-live-abc123"}
	p := awssm.New(client)

	cred, err := p.GetSecret(context.Background(), "prod/openai/key")
	require.NoError(t, err)
	assert.Equal(t, "prod/openai/key", client.lastSecretID)
	assert.Equal(t, "sk-live-abc123", cred.APIKey)
}

func TestGetSecretJSONDocument(t *testing.T) {
	client := &fakeClient{value: `{"access_key_id":"AKIA123","secret_access_key":"shhh","region":"us-east-1"}`}
	p := awssm.New(client)

	cred, err := p.GetSecret(context.Background(), "prod/bedrock/creds")
	require.NoError(t, err)
	assert.Equal(t, "AKIA123", cred.AccessKeyID)
	assert.Equal(t, "shhh", cred.SecretAccessKey)
	assert.Equal(t, "us-east-1", cred.Region)
}

func TestGetSecretNotFound(t *testing.T) {
	client := &fakeClient{err: &smtypes.ResourceNotFoundException{}}
	p := awssm.New(client)

	_, err := p.GetSecret(context.Background(), "prod/missing")
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestGetSecretAccessDenied(t *testing.T) {
	client := &fakeClient{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not allowed"}}
	p := awssm.New(client)

	_, err := p.GetSecret(context.Background(), "prod/forbidden")
	assert.ErrorIs(t, err, secrets.ErrAccessDenied)
}

func TestGetSecretEmptyValue(t *testing.T) {
	client := &fakeClient{value: ""}
	p := awssm.New(client)

	_, err := p.GetSecret(context.Background(), "prod/empty")
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}
