// Package agent implements the sales agent: prompt assembly, the generation
// boundary with its single tool round trip, and normalization of raw model
// output into a reply the widget can render.
package agent

import (
	"context"
	"fmt"
	"strings"
)

// Role is the author of a message sent to the generation service.
type Role string

const (
	// RoleSystem carries the instruction block. It is always the first message.
	RoleSystem Role = "system"
	// RoleUser carries user utterances.
	RoleUser Role = "user"
	// RoleModel carries earlier agent replies and tool-call requests.
	RoleModel Role = "model"
	// RoleTool carries the synthetic tool-result turn.
	RoleTool Role = "tool"
)

// Message is one entry of the instruction sequence.
type Message struct {
	Role       Role
	Content    string
	ToolCall   *ToolCall   // set on model turns that requested a tool
	ToolResult *ToolResult // set on tool turns
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// StringArg returns the named argument as a trimmed string.
func (c ToolCall) StringArg(key string) string {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ToolResult is the output of an executed tool call.
type ToolResult struct {
	CallID string
	Name   string
	Output string
}

// ToolParam describes a single tool parameter. Only string parameters are used.
type ToolParam struct {
	Name        string
	Description string
	Enum        []string
	Required    bool
}

// ToolDeclaration advertises a callable tool to the model.
type ToolDeclaration struct {
	Name        string
	Description string
	Params      []ToolParam
}

// GenerateRequest is the wire contract with the generation service.
type GenerateRequest struct {
	Messages    []Message
	Tools       []ToolDeclaration
	Temperature *float32
	JSON        bool // ask for an application/json response body
}

// GenerateResponse is the service answer: text, or a tool call request, or both.
type GenerateResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Generator is the external text-generation service.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Outcome classifies how a reply was produced.
type Outcome string

const (
	// OutcomeOK means the model honoured the output grammar.
	OutcomeOK Outcome = "ok"
	// OutcomeRecovered means the model broke the grammar and a fallback was applied.
	OutcomeRecovered Outcome = "recovered"
	// OutcomeDegraded means the service failed and a fixed apology was returned.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeMisconfigured means no credential is configured.
	OutcomeMisconfigured Outcome = "misconfigured"
)

// NeedsOperator reports whether the outcome can only be fixed outside the process.
func (o Outcome) NeedsOperator() bool {
	return o == OutcomeMisconfigured
}

// Displayable reports whether the reply came from the model rather than a fixed fallback.
func (o Outcome) Displayable() bool {
	return o == OutcomeOK || o == OutcomeRecovered
}

// Reply is the normalized unit handed to the caller for one turn.
type Reply struct {
	Text     string   `json:"text"`
	Score    string   `json:"score"`
	Chips    []string `json:"chips"`
	Terminal bool     `json:"terminal"`
}

// Result pairs a reply with how it was obtained.
type Result struct {
	Reply     Reply
	Outcome   Outcome
	ToolsUsed []string
	Err       error // transport error behind a degraded outcome, for logging only
}
