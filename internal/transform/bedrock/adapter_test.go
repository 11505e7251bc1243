package bedrock_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform/bedrock"
	"github.com/agentforge/llm-gateway/pkg/api"
)

var endpoint = &domain.EndpointConfig{
	EndpointID: "bedrock-dev",
	ProviderID: "bedrock",
	ModelID:    "anthropic.claude-3-5-sonnet-20241022-v2:0",
}

func TestToProviderRequest_NoModelInBody(t *testing.T) {
	adapter := &bedrock.Adapter{}

	wire, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages:  []api.Message{{Role: api.RoleUser, Content: api.Content{Text: "Hi"}}},
		MaxTokens: 64,
	}, endpoint)
	require.NoError(t, err)

	raw, err := json.Marshal(wire.Body)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	// The model travels in the URL path, never in the body.
	_, hasModel := doc["model"]
	assert.False(t, hasModel)
	assert.Equal(t, float64(64), doc["max_tokens"])
	assert.Len(t, doc["messages"].([]any), 1)
}

func TestToProviderRequest_DanglingToolResult(t *testing.T) {
	adapter := &bedrock.Adapter{}

	_, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages: []api.Message{
			{Role: api.RoleTool, Content: api.Content{Parts: []api.Part{
				{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "call_ghost", Content: "?"}},
			}}},
		},
	}, endpoint)

	assert.Equal(t, domain.KindDanglingToolResult, domain.KindOf(err))
	assert.Equal(t, domain.StageTransformRequest, domain.StageOf(err))
}

func TestFromProviderResponse_BedrockUsageNames(t *testing.T) {
	adapter := &bedrock.Adapter{}

	resp, err := adapter.FromProviderResponse([]byte(`{
		"model": "anthropic.claude-3-5-sonnet-20241022-v2:0",
		"message": {"role": "assistant", "content": "Hello from Bedrock"},
		"usage": {"inputTokens": 14, "outputTokens": 6}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Hello from Bedrock", resp.Message.Content.Text)
	assert.Equal(t, 14, resp.Metadata.InputTokens)
	assert.Equal(t, 6, resp.Metadata.OutputTokens)
}

func TestFromProviderResponse_OpenAIShapedFallback(t *testing.T) {
	adapter := &bedrock.Adapter{}

	resp, err := adapter.FromProviderResponse([]byte(`{
		"choices": [{"message": {"role": "assistant", "content": "Hi"}}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 1}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Hi", resp.Message.Content.Text)
	assert.Equal(t, 3, resp.Metadata.InputTokens)
	assert.Equal(t, 1, resp.Metadata.OutputTokens)
}
