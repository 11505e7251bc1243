package bedrock

import (
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/internal/transform/openaiwire"
	"github.com/agentforge/llm-gateway/pkg/api"
)

func init() {
	transform.Register(&Adapter{})
}

// Adapter handles Bedrock-style endpoints. The dialect is OpenAI-shaped
// (tool_calls arrays, separate role=tool messages), so message reconstruction
// is shared with the openai family; what differs is the usage field naming
// and that the model travels in the URL rather than the body.
type Adapter struct{}

func (a *Adapter) Family() string { return "bedrock" }

type request struct {
	Messages    []openaiwire.Message `json:"messages"`
	Tools       []openaiwire.Tool    `json:"tools,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
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
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if len(req.Tools) > 0 {
		body.Tools = openaiwire.BuildTools(req.Tools)
	}

	return &transform.WireRequest{Body: body}, nil
}

func (a *Adapter) FromProviderResponse(raw []byte) (*api.UnifiedResponse, error) {
	resp, err := openaiwire.ParseResponse(raw,
		[]string{"usage.inputTokens", "usage.input_tokens", "usage.prompt_tokens"},
		[]string{"usage.outputTokens", "usage.output_tokens", "usage.completion_tokens"},
	)
	if err != nil {
		return nil, domain.AtStage(domain.StageTransformResponse, err)
	}
	return resp, nil
}
