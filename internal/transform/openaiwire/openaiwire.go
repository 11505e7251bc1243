// Package openaiwire holds the message shapes and conversion logic shared by
// the OpenAI-style provider families. Bedrock-style providers speak the same
// dialect, so both adapters build on this package.
package openaiwire

import (
	"encoding/json"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"
)

type Message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

func strptr(s string) *string { return &s }

// BuildMessages rebuilds the grouped tool-call structure this dialect expects
// from the unified flat sequence:
//
//   - assistant turns carry a tool_calls array reconstructed from their
//     tool_use parts
//   - every tool_result becomes a standalone role=tool message carrying the
//     originating tool_call_id, emitted in original result order immediately
//     after the assistant turn that issued the calls
//
// A tool_result referencing an id no prior assistant turn issued fails with
// DanglingToolResult.
func BuildMessages(messages []api.Message) ([]Message, error) {
	out := make([]Message, 0, len(messages))
	issued := make(map[string]bool)

	for i, m := range messages {
		switch m.Role {
		case api.RoleSystem:
			out = append(out, Message{Role: api.RoleSystem, Content: strptr(flattenText(m.Content))})

		case api.RoleAssistant:
			msg := Message{Role: api.RoleAssistant}
			var text string
			for _, part := range m.Content.AsParts() {
				switch part.Type {
				case api.PartText:
					text += part.Text
				case api.PartToolUse:
					if part.ToolUse == nil || part.ToolUse.ID == "" {
						return nil, domain.E(domain.KindUnsupportedToolFormat,
							"message %d: assistant tool_use without an id", i)
					}
					args, err := json.Marshal(part.ToolUse.Input)
					if err != nil {
						return nil, domain.Wrap(domain.KindUnsupportedToolFormat, err,
							"message %d: tool_use input not serializable", i)
					}
					issued[part.ToolUse.ID] = true
					msg.ToolCalls = append(msg.ToolCalls, ToolCall{
						ID:   part.ToolUse.ID,
						Type: "function",
						Function: FunctionCall{
							Name:      part.ToolUse.Name,
							Arguments: string(args),
						},
					})
				}
			}
			// Null content with tool_calls matches the dialect; plain turns
			// keep their text.
			if text != "" || len(msg.ToolCalls) == 0 {
				msg.Content = strptr(text)
			}
			out = append(out, msg)

		case api.RoleUser, api.RoleTool:
			// Tool results become standalone role=tool messages first, so
			// they directly follow the assistant turn that issued the calls.
			var text string
			for _, part := range m.Content.AsParts() {
				switch part.Type {
				case api.PartText:
					text += part.Text
				case api.PartToolResult:
					if part.ToolResult == nil || part.ToolResult.ToolUseID == "" {
						return nil, domain.E(domain.KindUnsupportedToolFormat,
							"message %d: tool_result without a tool_use_id", i)
					}
					if !issued[part.ToolResult.ToolUseID] {
						return nil, domain.E(domain.KindDanglingToolResult,
							"message %d: tool_result references unknown tool_use id %q", i, part.ToolResult.ToolUseID)
					}
					out = append(out, Message{
						Role:       api.RoleTool,
						Content:    strptr(part.ToolResult.Content),
						ToolCallID: part.ToolResult.ToolUseID,
					})
				}
			}
			if text != "" {
				out = append(out, Message{Role: api.RoleUser, Content: strptr(text)})
			}

		default:
			return nil, domain.E(domain.KindUnsupportedToolFormat, "message %d: unknown role %q", i, m.Role)
		}
	}

	return out, nil
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

// BuildTools converts unified tool specs to the dialect's function tools.
func BuildTools(tools []api.ToolSpec) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// ParseResponse normalizes an OpenAI-shaped response body. Usage extraction
// tries the given fallback paths in order; absent usage resolves to zero.
func ParseResponse(raw []byte, inputTokenPaths, outputTokenPaths []string) (*api.UnifiedResponse, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.Wrap(domain.KindProviderResponseMalformed, err, "response is not valid JSON")
	}

	msg, ok := transform.Lookup(doc, "choices.0.message", "message", "output.message")
	if !ok {
		return nil, domain.E(domain.KindProviderResponseMalformed, "response has no assistant message")
	}

	text := transform.StringAt(msg, "", "content")

	calls := make([]api.FunctionCall, 0)
	if rawCalls, ok := transform.Lookup(msg, "tool_calls"); ok {
		list, ok := rawCalls.([]any)
		if !ok {
			return nil, domain.E(domain.KindProviderResponseMalformed, "tool_calls is not an array")
		}
		for i, rc := range list {
			name := transform.StringAt(rc, "", "function.name", "name")
			if name == "" {
				return nil, domain.E(domain.KindProviderResponseMalformed, "tool call %d has no name", i)
			}
			input := map[string]any{}
			if args := transform.StringAt(rc, "", "function.arguments", "arguments"); args != "" {
				if err := json.Unmarshal([]byte(args), &input); err != nil {
					return nil, domain.Wrap(domain.KindProviderResponseMalformed, err,
						"tool call %d has unparseable arguments", i)
				}
			}
			calls = append(calls, api.FunctionCall{
				Name:  name,
				ID:    transform.StringAt(rc, "", "id"),
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
			InputTokens:  transform.IntAt(doc, 0, inputTokenPaths...),
			OutputTokens: transform.IntAt(doc, 0, outputTokenPaths...),
		},
	}, nil
}
