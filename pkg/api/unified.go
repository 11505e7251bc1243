package api

import "encoding/json"

// Roles used in the unified message schema.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// UnifiedRequest is the provider-agnostic request the gateway accepts.
// Exactly one of EndpointID, ProviderID or AgentID selects the target.
type UnifiedRequest struct {
	EndpointID string `json:"endpoint_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`

	Messages []Message `json:"messages" binding:"required,min=1"`

	Tools []ToolSpec `json:"tools,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type Message struct {
	Role    string  `json:"role" binding:"required,oneof=system user assistant tool"`
	Content Content `json:"content"` // string or []Part
}

// Content handles the union type: string | []Part
type Content struct {
	Text  string
	Parts []Part
}

func (c *Content) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// AsParts returns the content as a part slice, lifting plain text into a
// single text part so adapters can walk one shape.
func (c Content) AsParts() []Part {
	if c.Parts != nil {
		return c.Parts
	}
	if c.Text == "" {
		return nil
	}
	return []Part{{Type: PartText, Text: c.Text}}
}

// Part types in structured content.
const (
	PartText       = "text"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

type Part struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolUse is a model-issued request to invoke a tool.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult feeds a tool's output back into the conversation. ToolUseID must
// reference a ToolUse issued by a prior assistant turn.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

type ToolSpec struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// UnifiedResponse is the provider-agnostic result. FunctionCalls is always
// present (possibly empty), regardless of where the provider placed calls in
// its native response.
type UnifiedResponse struct {
	Message       Message        `json:"message"`
	FunctionCalls []FunctionCall `json:"function_calls"`
	Metadata      Metadata       `json:"metadata"`
	EndpointUsed  string         `json:"endpoint_used"`
}

type FunctionCall struct {
	Name  string         `json:"name"`
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

type Metadata struct {
	EndpointID   string `json:"endpoint_id"`
	ModelID      string `json:"model_id"`
	Provider     string `json:"provider"`
	LatencyMS    int64  `json:"latency_ms"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TestResult is returned by the connection-test operation. It never carries a
// transport-level error outward; failures are folded into Success/Error.
type TestResult struct {
	EndpointID string `json:"endpoint_id"`
	Success    bool   `json:"success"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}
