package transform

import (
	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/pkg/api"
)

// ValidateToolFlow checks that every tool_result in the message sequence
// references a tool_use issued by a prior assistant turn. Violations are
// reported as DanglingToolResult before any transformation or dispatch.
func ValidateToolFlow(messages []api.Message) error {
	issued := make(map[string]bool)

	for i, m := range messages {
		for _, part := range m.Content.AsParts() {
			switch part.Type {
			case api.PartToolUse:
				if m.Role != api.RoleAssistant {
					return domain.E(domain.KindUnsupportedToolFormat,
						"message %d: tool_use outside an assistant turn", i)
				}
				if part.ToolUse == nil || part.ToolUse.ID == "" {
					return domain.E(domain.KindUnsupportedToolFormat,
						"message %d: tool_use without an id", i)
				}
				issued[part.ToolUse.ID] = true

			case api.PartToolResult:
				if part.ToolResult == nil || part.ToolResult.ToolUseID == "" {
					return domain.E(domain.KindUnsupportedToolFormat,
						"message %d: tool_result without a tool_use_id", i)
				}
				if !issued[part.ToolResult.ToolUseID] {
					return domain.E(domain.KindDanglingToolResult,
						"message %d: tool_result references unknown tool_use id %q", i, part.ToolResult.ToolUseID)
				}
			}
		}
	}

	return nil
}

// ValidateTools rejects malformed tool specifications up front.
func ValidateTools(tools []api.ToolSpec) error {
	for i, t := range tools {
		if t.Name == "" {
			return domain.E(domain.KindUnsupportedToolFormat, "tool %d has no name", i)
		}
	}
	return nil
}
