package gemini_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform/gemini"
	"github.com/agentforge/llm-gateway/pkg/api"
)

var endpoint = &domain.EndpointConfig{
	EndpointID: "gemini-dev",
	ProviderID: "gemini",
	ModelID:    "gemini-2.0-flash",
}

func marshalBody(t *testing.T, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestToProviderRequest(t *testing.T) {
	adapter := &gemini.Adapter{}
	temp := 0.5

	wire, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: api.Content{Text: "Be brief."}},
			{Role: api.RoleUser, Content: api.Content{Text: "What is 2+2?"}},
			{Role: api.RoleAssistant, Content: api.Content{Text: "4"}},
			{Role: api.RoleUser, Content: api.Content{Text: "And 3+3?"}},
		},
		Temperature: &temp,
		MaxTokens:   128,
	}, endpoint)
	require.NoError(t, err)

	doc := marshalBody(t, wire.Body)

	sys := doc["systemInstruction"].(map[string]any)
	assert.Equal(t, "Be brief.", sys["parts"].([]any)[0].(map[string]any)["text"])

	contents := doc["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].(map[string]any)["role"])
	// Assistant maps to the model role in this dialect.
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])

	gen := doc["generationConfig"].(map[string]any)
	assert.Equal(t, 0.5, gen["temperature"])
	assert.Equal(t, float64(128), gen["maxOutputTokens"])
}

func TestToProviderRequest_EmptyPartsDropped(t *testing.T) {
	adapter := &gemini.Adapter{}

	wire, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages: []api.Message{
			{Role: api.RoleUser, Content: api.Content{Parts: []api.Part{
				{Type: api.PartText, Text: ""},
				{Type: api.PartText, Text: "Hello"},
			}}},
			// A turn that reduces to nothing must be skipped entirely.
			{Role: api.RoleAssistant, Content: api.Content{Parts: []api.Part{
				{Type: api.PartText, Text: ""},
			}}},
			{Role: api.RoleUser, Content: api.Content{Text: "Still there?"}},
		},
	}, endpoint)
	require.NoError(t, err)

	doc := marshalBody(t, wire.Body)
	contents := doc["contents"].([]any)
	require.Len(t, contents, 2)
	assert.Len(t, contents[0].(map[string]any)["parts"].([]any), 1)
}

func TestToProviderRequest_ToolResultKeyedByName(t *testing.T) {
	adapter := &gemini.Adapter{}

	wire, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages: []api.Message{
			{Role: api.RoleAssistant, Content: api.Content{Parts: []api.Part{
				{Type: api.PartToolUse, ToolUse: &api.ToolUse{ID: "call_1", Name: "get_weather", Input: map[string]any{"city": "Oslo"}}},
			}}},
			{Role: api.RoleTool, Content: api.Content{Parts: []api.Part{
				{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "call_1", Content: "12C"}},
			}}},
		},
		Tools: []api.ToolSpec{{Name: "get_weather"}},
	}, endpoint)
	require.NoError(t, err)

	doc := marshalBody(t, wire.Body)
	contents := doc["contents"].([]any)
	require.Len(t, contents, 2)

	// The result correlates to its call through the function name, since
	// the upstream has no tool-use ids.
	fr := contents[1].(map[string]any)["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	assert.Equal(t, "get_weather", fr["name"])
	assert.Equal(t, "12C", fr["response"].(map[string]any)["content"])

	decls := doc["tools"].([]any)[0].(map[string]any)["functionDeclarations"].([]any)
	assert.Equal(t, "get_weather", decls[0].(map[string]any)["name"])
}

func TestToProviderRequest_DanglingToolResult(t *testing.T) {
	adapter := &gemini.Adapter{}

	_, err := adapter.ToProviderRequest(&api.UnifiedRequest{
		Messages: []api.Message{
			{Role: api.RoleTool, Content: api.Content{Parts: []api.Part{
				{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "call_ghost", Content: "?"}},
			}}},
		},
	}, endpoint)

	assert.Equal(t, domain.KindDanglingToolResult, domain.KindOf(err))
}

func TestFromProviderResponse(t *testing.T) {
	adapter := &gemini.Adapter{}

	resp, err := adapter.FromProviderResponse([]byte(`{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "2+2 equals 4."}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 1},
		"modelVersion": "gemini-2.0-flash"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "2+2 equals 4.", resp.Message.Content.Text)
	assert.Empty(t, resp.FunctionCalls)
	assert.Equal(t, "gemini-2.0-flash", resp.Metadata.ModelID)
	assert.Equal(t, 9, resp.Metadata.InputTokens)
	assert.Equal(t, 1, resp.Metadata.OutputTokens)
}

func TestFromProviderResponse_FunctionCall(t *testing.T) {
	adapter := &gemini.Adapter{}

	resp, err := adapter.FromProviderResponse([]byte(`{
		"candidates": [{
			"content": {"role": "model", "parts": [
				{"functionCall": {"name": "get_weather", "args": {"city": "Oslo"}}}
			]}
		}]
	}`))
	require.NoError(t, err)

	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "get_weather", resp.FunctionCalls[0].Name)
	assert.Equal(t, "Oslo", resp.FunctionCalls[0].Input["city"])
	// Upstream has no call ids, so one is synthesized.
	assert.NotEmpty(t, resp.FunctionCalls[0].ID)
	assert.Contains(t, resp.FunctionCalls[0].ID, "call_")
}

func TestFromProviderResponse_Malformed(t *testing.T) {
	adapter := &gemini.Adapter{}

	for name, raw := range map[string]string{
		"not json":      `nope`,
		"no candidates": `{"usageMetadata": {}}`,
		"unnamed call":  `{"candidates": [{"content": {"parts": [{"functionCall": {"args": {}}}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.FromProviderResponse([]byte(raw))
			assert.Equal(t, domain.KindProviderResponseMalformed, domain.KindOf(err))
		})
	}
}
