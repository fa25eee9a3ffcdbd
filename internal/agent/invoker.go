package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var errNilResponse = errors.New("generation service returned no response")

// Invocation is the raw output of one user turn.
type Invocation struct {
	Text      string
	ToolsUsed []string
}

// InvokerOptions tunes calls to the generation service.
type InvokerOptions struct {
	Temperature *float32
	Timeout     time.Duration // per call; 0 disables
}

// Invoker sends an instruction sequence to the generation service and
// performs at most one fact-lookup round trip before returning raw text.
type Invoker struct {
	gen    Generator
	facts  FactLookup
	opts   InvokerOptions
	logger *slog.Logger
}

// NewInvoker creates an invoker.
func NewInvoker(gen Generator, facts FactLookup, opts InvokerOptions, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{gen: gen, facts: facts, opts: opts, logger: logger}
}

// Invoke returns the model's final raw text. msgs is not modified. Any error
// is a transport or service failure.
func (i *Invoker) Invoke(ctx context.Context, msgs []Message) (Invocation, error) {
	first, err := i.call(ctx, GenerateRequest{
		Messages:    msgs,
		Tools:       []ToolDeclaration{FactLookupDeclaration()},
		Temperature: i.opts.Temperature,
	})
	if err != nil {
		return Invocation{}, err
	}
	if len(first.ToolCalls) == 0 {
		return Invocation{Text: first.Text}, nil
	}

	call := first.ToolCalls[0]
	if len(first.ToolCalls) > 1 {
		i.logger.Warn("model requested several tools; running only the first",
			"requested", len(first.ToolCalls), "tool", call.Name)
	}
	result := executeTool(i.facts, call, i.logger)

	followUp := make([]Message, 0, len(msgs)+2)
	followUp = append(followUp, msgs...)
	followUp = append(followUp,
		Message{Role: RoleModel, ToolCall: &call},
		Message{Role: RoleTool, Content: result.Output, ToolResult: &result},
	)

	// No tool declarations on the second call, so the model has to answer.
	second, err := i.call(ctx, GenerateRequest{
		Messages:    followUp,
		Temperature: i.opts.Temperature,
	})
	if err != nil {
		return Invocation{}, fmt.Errorf("after %s round trip: %w", call.Name, err)
	}
	if len(second.ToolCalls) > 0 {
		i.logger.Warn("model requested a tool after the round trip; ignoring", "tool", second.ToolCalls[0].Name)
	}
	return Invocation{Text: second.Text, ToolsUsed: []string{call.Name}}, nil
}

func (i *Invoker) call(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if i.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := i.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return nil, errNilResponse
	}
	i.logger.Debug("generation call completed",
		"messages", len(req.Messages),
		"tools", len(req.Tools),
		"tool_calls", len(resp.ToolCalls),
		"text_len", len(resp.Text),
		"elapsed", time.Since(start),
	)
	return resp, nil
}
