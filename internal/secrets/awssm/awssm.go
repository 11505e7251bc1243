package awssm

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/secrets"
)

// Client is the subset of the Secrets Manager API used here. Satisfied by
// *secretsmanager.Client and by test fakes.
type Client interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider resolves secret paths via AWS Secrets Manager.
type Provider struct {
	client Client
}

func New(client Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) GetSecret(ctx context.Context, secretPath string) (*domain.Credential, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretPath),
	})
	if err != nil {
		var nf *smtypes.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, secrets.ErrNotFound
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
			return nil, secrets.ErrAccessDenied
		}
		return nil, err
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, secrets.ErrNotFound
	}

	return secrets.ParseCredential(raw)
}
