package openai

import (
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/internal/transform/openaiwire"
	"github.com/agentforge/llm-gateway/pkg/api"
)

func init() {
	transform.Register(&Adapter{})
}

// Adapter translates between the unified schema and the OpenAI chat
// completions wire format.
type Adapter struct{}

func (a *Adapter) Family() string { return "openai" }

type request struct {
	Model       string               `json:"model"`
	Messages    []openaiwire.Message `json:"messages"`
	Tools       []openaiwire.Tool    `json:"tools,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

func (a *Adapter) ToProviderRequest(req *api.UnifiedRequest, ep *domain.EndpointConfig) (*transform.WireRequest, error) {
	if err := transform.ValidateTools(req.Tools); err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}

	messages, err := openaiwire.BuildMessages(req.Messages)
	if err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}

	body := request{
		Model:       ep.ModelID,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if len(req.Tools) > 0 {
		body.Tools = openaiwire.BuildTools(req.Tools)
	}

	return &transform.WireRequest{Body: body}, nil
}

func (a *Adapter) FromProviderResponse(raw []byte) (*api.UnifiedResponse, error) {
	resp, err := openaiwire.ParseResponse(raw,
		[]string{"usage.prompt_tokens", "usage.input_tokens"},
		[]string{"usage.completion_tokens", "usage.output_tokens"},
	)
	if err != nil {
		return nil, domain.AtStage(domain.StageTransformResponse, err)
	}
	return resp, nil
}
