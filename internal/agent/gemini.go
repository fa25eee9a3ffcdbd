package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var errNoCandidates = errors.New("gemini returned no candidates")

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	system, contents := toGenAIContents(req.Messages)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       req.Temperature,
		Tools:             toGenAITools(req.Tools),
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errNoCandidates
	}

	out := &GenerateResponse{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		if fc == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
	}
	return out, nil
}

// toGenAIContents splits off the system block and maps the remaining messages
// onto Gemini's user/model roles.
func toGenAIContents(msgs []Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if system == nil {
				system = genai.NewContentFromText(m.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
			}
		case RoleModel:
			if m.ToolCall != nil {
				contents = append(contents, genai.NewContentFromParts([]*genai.Part{{
					FunctionCall: &genai.FunctionCall{ID: m.ToolCall.ID, Name: m.ToolCall.Name, Args: m.ToolCall.Args},
				}}, genai.RoleModel))
				continue
			}
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case RoleTool:
			name, id, output := "", "", m.Content
			if m.ToolResult != nil {
				name, id, output = m.ToolResult.Name, m.ToolResult.CallID, m.ToolResult.Output
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{ID: id, Name: name, Response: map[string]any{"output": output}},
			}}, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return system, contents
}

func toGenAITools(decls []ToolDeclaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
		}
		for _, p := range d.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		fns = append(fns, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}
