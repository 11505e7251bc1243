package anthropic

import (
	"encoding/json"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"
)

const defaultMaxTokens = 4096

func init() {
	transform.Register(&Adapter{})
}

// Adapter translates between the unified schema and the Anthropic messages
// wire format. The mapping is nearly 1:1: tool_use and tool_result travel as
// content blocks inline in their turns, so no message reconstruction is
// needed, unlike the openai family.
type Adapter struct{}

func (a *Adapter) Family() string { return "anthropic" }

type request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Tools       []toolDef `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

func (a *Adapter) ToProviderRequest(req *api.UnifiedRequest, ep *domain.EndpointConfig) (*transform.WireRequest, error) {
	if err := transform.ValidateTools(req.Tools); err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}

	ar := request{
		Model:       ep.ModelID,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = defaultMaxTokens
	}
	for _, t := range req.Tools {
		ar.Tools = append(ar.Tools, toolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	issued := make(map[string]bool)

	for i, m := range req.Messages {
		if m.Role == api.RoleSystem {
			ar.System += flattenText(m.Content)
			continue
		}

		role := m.Role
		if role == api.RoleTool {
			// Results travel inline in a user turn in this dialect.
			role = api.RoleUser
		}

		var blocks []block
		for _, part := range m.Content.AsParts() {
			switch part.Type {
			case api.PartText:
				blocks = append(blocks, block{Type: "text", Text: part.Text})

			case api.PartToolUse:
				if part.ToolUse == nil || part.ToolUse.ID == "" {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindUnsupportedToolFormat, "message %d: tool_use without an id", i))
				}
				issued[part.ToolUse.ID] = true
				blocks = append(blocks, block{
					Type:  "tool_use",
					ID:    part.ToolUse.ID,
					Name:  part.ToolUse.Name,
					Input: part.ToolUse.Input,
				})

			case api.PartToolResult:
				if part.ToolResult == nil || part.ToolResult.ToolUseID == "" {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindUnsupportedToolFormat, "message %d: tool_result without a tool_use_id", i))
				}
				if !issued[part.ToolResult.ToolUseID] {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindDanglingToolResult,
							"message %d: tool_result references unknown tool_use id %q", i, part.ToolResult.ToolUseID))
				}
				blocks = append(blocks, block{
					Type:      "tool_result",
					ToolUseID: part.ToolResult.ToolUseID,
					Content:   part.ToolResult.Content,
					IsError:   part.ToolResult.IsError,
				})
			}
		}

		if len(blocks) > 0 {
			ar.Messages = append(ar.Messages, message{Role: role, Content: blocks})
		}
	}

	return &transform.WireRequest{
		Body: ar,
		Headers: map[string]string{
			"anthropic-version": "2023-06-01",
		},
	}, nil
}

func (a *Adapter) FromProviderResponse(raw []byte) (*api.UnifiedResponse, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.Wrap(domain.KindProviderResponseMalformed, err, "response is not valid JSON"))
	}

	rawContent, ok := transform.Lookup(doc, "content", "message.content")
	if !ok {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.E(domain.KindProviderResponseMalformed, "response has no content blocks"))
	}
	blocks, ok := rawContent.([]any)
	if !ok {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.E(domain.KindProviderResponseMalformed, "content is not an array"))
	}

	var text string
	calls := make([]api.FunctionCall, 0)

	for i, rb := range blocks {
		switch transform.StringAt(rb, "", "type") {
		case "text":
			text += transform.StringAt(rb, "", "text")
		case "tool_use":
			name := transform.StringAt(rb, "", "name")
			if name == "" {
				return nil, domain.AtStage(domain.StageTransformResponse,
					domain.E(domain.KindProviderResponseMalformed, "tool_use block %d has no name", i))
			}
			input := map[string]any{}
			if v, ok := transform.Lookup(rb, "input"); ok {
				if m, ok := v.(map[string]any); ok {
					input = m
				}
			}
			calls = append(calls, api.FunctionCall{
				Name:  name,
				ID:    transform.StringAt(rb, "", "id"),
				Input: input,
			})
		}
	}

	return &api.UnifiedResponse{
		Message: api.Message{
			Role:    api.RoleAssistant,
			Content: api.Content{Text: text},
		},
		FunctionCalls: calls,
		Metadata: api.Metadata{
			ModelID:      transform.StringAt(doc, "", "model"),
			InputTokens:  transform.IntAt(doc, 0, "usage.input_tokens", "usage.inputTokens"),
			OutputTokens: transform.IntAt(doc, 0, "usage.output_tokens", "usage.outputTokens"),
		},
	}, nil
}

func flattenText(c api.Content) string {
	var text string
	for _, part := range c.AsParts() {
		if part.Type == api.PartText {
			text += part.Text
		}
	}
	return text
}
