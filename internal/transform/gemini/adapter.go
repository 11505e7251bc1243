package gemini

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/transform"
	"github.com/agentforge/llm-gateway/pkg/api"
)

func init() {
	transform.Register(&Adapter{})
}

// Adapter translates between the unified schema and the Gemini
// generateContent wire format. Tool calls travel as functionCall parts and
// results as functionResponse parts keyed by function name; the upstream has
// no tool-use ids, so result correlation goes through the issuing call's
// name and response-side ids are synthesized.
type Adapter struct{}

func (a *Adapter) Family() string { return "gemini" }

type request struct {
	SystemInstruction *content      `json:"systemInstruction,omitempty"`
	Contents          []content     `json:"contents"`
	Tools             []toolWrapper `json:"tools,omitempty"`
	GenerationConfig  *genConfig    `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

func (p part) empty() bool {
	return p.Text == "" && p.FunctionCall == nil && p.FunctionResponse == nil
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type toolWrapper struct {
	FunctionDeclarations []functionDecl `json:"functionDeclarations"`
}

type functionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type genConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

func (a *Adapter) ToProviderRequest(req *api.UnifiedRequest, ep *domain.EndpointConfig) (*transform.WireRequest, error) {
	if err := transform.ValidateTools(req.Tools); err != nil {
		return nil, domain.AtStage(domain.StageTransformRequest, err)
	}

	gr := request{}

	if req.Temperature != nil || req.MaxTokens > 0 {
		gr.GenerationConfig = &genConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]functionDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, functionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			})
		}
		gr.Tools = []toolWrapper{{FunctionDeclarations: decls}}
	}

	// id -> function name, for correlating results back to their call.
	issued := make(map[string]string)

	for i, m := range req.Messages {
		if m.Role == api.RoleSystem {
			sysText := flattenText(m.Content)
			if sysText == "" {
				continue
			}
			if gr.SystemInstruction == nil {
				gr.SystemInstruction = &content{}
			}
			gr.SystemInstruction.Parts = append(gr.SystemInstruction.Parts, part{Text: sysText})
			continue
		}

		role := "user"
		if m.Role == api.RoleAssistant {
			role = "model"
		}

		var parts []part
		for _, p := range m.Content.AsParts() {
			var built part
			switch p.Type {
			case api.PartText:
				built = part{Text: p.Text}

			case api.PartToolUse:
				if p.ToolUse == nil || p.ToolUse.ID == "" {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindUnsupportedToolFormat, "message %d: tool_use without an id", i))
				}
				issued[p.ToolUse.ID] = p.ToolUse.Name
				built = part{FunctionCall: &functionCall{
					Name: p.ToolUse.Name,
					Args: p.ToolUse.Input,
				}}

			case api.PartToolResult:
				if p.ToolResult == nil || p.ToolResult.ToolUseID == "" {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindUnsupportedToolFormat, "message %d: tool_result without a tool_use_id", i))
				}
				name, ok := issued[p.ToolResult.ToolUseID]
				if !ok {
					return nil, domain.AtStage(domain.StageTransformRequest,
						domain.E(domain.KindDanglingToolResult,
							"message %d: tool_result references unknown tool_use id %q", i, p.ToolResult.ToolUseID))
				}
				built = part{FunctionResponse: &functionResponse{
					Name:     name,
					Response: map[string]any{"content": p.ToolResult.Content},
				}}
			}

			// The upstream rejects empty parts outright, so they are dropped
			// rather than forwarded.
			if !built.empty() {
				parts = append(parts, built)
			}
		}

		if len(parts) > 0 {
			gr.Contents = append(gr.Contents, content{Role: role, Parts: parts})
		}
	}

	return &transform.WireRequest{Body: gr}, nil
}

func (a *Adapter) FromProviderResponse(raw []byte) (*api.UnifiedResponse, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.Wrap(domain.KindProviderResponseMalformed, err, "response is not valid JSON"))
	}

	rawParts, ok := transform.Lookup(doc, "candidates.0.content.parts", "candidates.0.parts")
	if !ok {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.E(domain.KindProviderResponseMalformed, "response has no candidate parts"))
	}
	parts, ok := rawParts.([]any)
	if !ok {
		return nil, domain.AtStage(domain.StageTransformResponse,
			domain.E(domain.KindProviderResponseMalformed, "candidate parts is not an array"))
	}

	var text string
	calls := make([]api.FunctionCall, 0)

	for i, rp := range parts {
		if s := transform.StringAt(rp, "", "text"); s != "" {
			text += s
			continue
		}
		if fc, ok := transform.Lookup(rp, "functionCall", "function_call"); ok {
			name := transform.StringAt(fc, "", "name")
			if name == "" {
				return nil, domain.AtStage(domain.StageTransformResponse,
					domain.E(domain.KindProviderResponseMalformed, "functionCall part %d has no name", i))
			}
			input := map[string]any{}
			if v, ok := transform.Lookup(fc, "args", "arguments"); ok {
				if m, ok := v.(map[string]any); ok {
					input = m
				}
			}
			calls = append(calls, api.FunctionCall{
				Name:  name,
				ID:    "call_" + uuid.NewString(),
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
			ModelID:      transform.StringAt(doc, "", "modelVersion", "model"),
			InputTokens:  transform.IntAt(doc, 0, "usageMetadata.promptTokenCount", "usage_metadata.prompt_token_count"),
			OutputTokens: transform.IntAt(doc, 0, "usageMetadata.candidatesTokenCount", "usage_metadata.candidates_token_count"),
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
