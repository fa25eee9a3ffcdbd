package agent

import (
	"log/slog"

	"github.com/ashureev/upsell-agent/internal/knowledge"
)

// FactLookupToolName is the tool the model calls to ground an answer.
const FactLookupToolName = "lookup_workspace_facts"

// FactLookup returns grounding facts for a topic. Implementations return a
// sentinel string instead of failing.
type FactLookup interface {
	Lookup(topic string) string
}

// FactLookupDeclaration describes the fact-lookup tool to the model.
func FactLookupDeclaration() ToolDeclaration {
	return ToolDeclaration{
		Name: FactLookupToolName,
		Description: "Look up verified Google Workspace facts (plan prices, storage limits, Meet capacity, " +
			"security controls, eSignature, Gemini features). Call this before quoting any price, limit or " +
			"feature you are not certain about.",
		Params: []ToolParam{{
			Name:        "topic",
			Description: "The subject to look up.",
			Enum:        knowledge.Topics,
			Required:    true,
		}},
	}
}

// executeTool runs one tool call. Unknown tools produce a textual error so the
// model can still answer.
func executeTool(facts FactLookup, call ToolCall, logger *slog.Logger) ToolResult {
	res := ToolResult{CallID: call.ID, Name: call.Name}
	if call.Name != FactLookupToolName {
		logger.Warn("model requested unknown tool", "tool", call.Name)
		res.Output = "Unknown tool: " + call.Name
		return res
	}
	topic := call.StringArg("topic")
	if facts == nil {
		res.Output = knowledge.Unavailable
		return res
	}
	res.Output = facts.Lookup(topic)
	logger.Info("fact lookup executed", "topic", topic, "bytes", len(res.Output))
	return res
}
