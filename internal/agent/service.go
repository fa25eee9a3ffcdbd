package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/upsell-agent/internal/domain"
)

// Fixed replies used when no model output is available.
const (
	ConfigErrorText = "Error: API Key not found."
	ApologyText     = "Sorry, I'm having trouble connecting right now. Please try again in a moment."
	FallbackScore   = "0"
)

// Options configures a Service.
type Options struct {
	Temperature float32
	Timeout     time.Duration
}

// Service is the sales agent core. A Service without a generator runs in
// degraded mode and answers every call with a configuration-error reply.
type Service struct {
	gen     Generator
	invoker *Invoker
	opts    Options
	logger  *slog.Logger
}

// NewService creates the agent. gen may be nil when no credential is configured.
func NewService(gen Generator, facts FactLookup, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{gen: gen, opts: opts, logger: logger}
	if gen != nil {
		temp := opts.Temperature
		s.invoker = NewInvoker(gen, facts, InvokerOptions{Temperature: &temp, Timeout: opts.Timeout}, logger)
	}
	return s
}

// Configured reports whether a generation backend is available.
func (s *Service) Configured() bool {
	return s.gen != nil
}

// Respond produces the agent's reply to utterance. history is the transcript
// so far and must not contain utterance. Respond never returns an error: the
// Result's Outcome tells the caller whether the reply is a fallback.
func (s *Service) Respond(ctx context.Context, profile domain.Profile, history []domain.Turn, utterance string) Result {
	if !s.Configured() {
		s.logger.Warn("agent has no generation credential", "industry", profile.Industry)
		return misconfiguredResult()
	}

	inv, err := s.invoker.Invoke(ctx, BuildPrompt(profile, history, utterance))
	if err != nil {
		s.logger.Error("agent generation failed", "error", err, "industry", profile.Industry, "history_len", len(history))
		return degradedResult(err)
	}

	reply, outcome := Normalize(inv.Text)
	if outcome == OutcomeRecovered {
		s.logger.Warn("model output violated the reply format", "raw_len", len(inv.Text))
	}
	s.logger.Info("agent replied",
		"industry", profile.Industry,
		"outcome", outcome,
		"score", reply.Score,
		"chips", len(reply.Chips),
		"terminal", reply.Terminal,
		"tools_used", inv.ToolsUsed,
	)
	return Result{Reply: reply, Outcome: outcome, ToolsUsed: inv.ToolsUsed}
}

func misconfiguredResult() Result {
	return Result{
		Reply:   Reply{Text: ConfigErrorText, Score: FallbackScore, Chips: []string{}},
		Outcome: OutcomeMisconfigured,
	}
}

func degradedResult(err error) Result {
	return Result{
		Reply:   Reply{Text: ApologyText, Score: FallbackScore, Chips: []string{}},
		Outcome: OutcomeDegraded,
		Err:     err,
	}
}
