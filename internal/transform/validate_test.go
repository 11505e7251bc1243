package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"
)

func TestValidateToolFlow(t *testing.T) {
	valid := []api.Message{
		{Role: api.RoleUser, Content: api.Content{Text: "What's the weather?"}},
		{Role: api.RoleAssistant, Content: api.Content{Parts: []api.Part{
			{Type: api.PartToolUse, ToolUse: &api.ToolUse{ID: "call_1", Name: "get_weather", Input: map[string]any{"city": "Oslo"}}},
		}}},
		{Role: api.RoleTool, Content: api.Content{Parts: []api.Part{
			{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "call_1", Content: "12C"}},
		}}},
	}
	assert.NoError(t, transform.ValidateToolFlow(valid))
}

func TestValidateToolFlow_DanglingResult(t *testing.T) {
	messages := []api.Message{
		{Role: api.RoleUser, Content: api.Content{Parts: []api.Part{
			{Type: api.PartToolResult, ToolResult: &api.ToolResult{ToolUseID: "call_unknown", Content: "?"}},
		}}},
	}

	err := transform.ValidateToolFlow(messages)
	assert.Equal(t, domain.KindDanglingToolResult, domain.KindOf(err))
}

func TestValidateToolFlow_ToolUseOutsideAssistant(t *testing.T) {
	messages := []api.Message{
		{Role: api.RoleUser, Content: api.Content{Parts: []api.Part{
			{Type: api.PartToolUse, ToolUse: &api.ToolUse{ID: "call_1", Name: "x"}},
		}}},
	}

	err := transform.ValidateToolFlow(messages)
	assert.Equal(t, domain.KindUnsupportedToolFormat, domain.KindOf(err))
}

func TestValidateToolFlow_ToolUseWithoutID(t *testing.T) {
	messages := []api.Message{
		{Role: api.RoleAssistant, Content: api.Content{Parts: []api.Part{
			{Type: api.PartToolUse, ToolUse: &api.ToolUse{Name: "x"}},
		}}},
	}

	err := transform.ValidateToolFlow(messages)
	assert.Equal(t, domain.KindUnsupportedToolFormat, domain.KindOf(err))
}

func TestValidateTools(t *testing.T) {
	assert.NoError(t, transform.ValidateTools([]api.ToolSpec{{Name: "get_weather"}}))

	err := transform.ValidateTools([]api.ToolSpec{{Description: "no name"}})
	assert.Equal(t, domain.KindUnsupportedToolFormat, domain.KindOf(err))
}

func TestRegistry(t *testing.T) {
	_, err := transform.Get("no-such-family")
	assert.Equal(t, domain.KindConfigNotFound, domain.KindOf(err))
	assert.False(t, transform.Known("no-such-family"))
}
