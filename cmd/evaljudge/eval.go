package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/upsell-agent/internal/agent"
	"github.com/ashureev/upsell-agent/internal/domain"
)

// evalProfile is the persona every golden row is asked under.
var evalProfile = domain.Profile{
	Name:           "Eval Prospect",
	Industry:       "Consulting",
	Size:           "Solo (1 person)",
	PainPointTitle: "Storage Full",
	PainPointDesc:  "Gmail storage is at 99% and emails are bouncing.",
	CurrentSKU:     "Personal Gmail",
	Goal:           "Fix Storage Full issues and scale business.",
}

type judgeRunner interface {
	Respond(ctx context.Context, profile domain.Profile, history []domain.Turn, utterance string) agent.Result
	Judge(ctx context.Context, response, expected string) agent.Verdict
}

type caseResult struct {
	ID       string
	Input    string
	Response string
	Verdict  agent.Verdict
}

type report struct {
	Results []caseResult
	Passed  int
	Total   int
}

// PassRate is the share of passing rows as a percentage.
func (r report) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * 100
}

var requiredColumns = []string{"id", "user_input", "expected_outcome"}

// evaluate runs every dataset row through runner and writes a human-readable
// log to out. A canceled context stops the run and returns what was scored.
func evaluate(ctx context.Context, runner judgeRunner, dataset io.Reader, out io.Writer) (report, error) {
	var rep report

	r := csv.NewReader(dataset)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return rep, fmt.Errorf("read dataset header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return rep, fmt.Errorf("dataset missing column %q", name)
		}
	}

	fmt.Fprintln(out, "Starting eval run...")
	fmt.Fprintln(out)

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read dataset row %d: %w", rep.Total+1, err)
		}

		c := caseResult{
			ID:    field(record, cols["id"]),
			Input: field(record, cols["user_input"]),
		}
		expected := field(record, cols["expected_outcome"])
		rep.Total++
		fmt.Fprintf(out, "Testing ID %s: %s\n", c.ID, c.Input)

		res := runner.Respond(ctx, evalProfile, nil, c.Input)
		c.Response = res.Reply.Text
		if res.Outcome.Displayable() {
			c.Verdict = runner.Judge(ctx, c.Response, expected)
		} else {
			c.Verdict = agent.VerdictError
		}
		if c.Verdict == agent.VerdictPass {
			rep.Passed++
		}
		rep.Results = append(rep.Results, c)

		fmt.Fprintf(out, "Agent Response: %s\n", c.Response)
		fmt.Fprintf(out, "Result: %s\n\n", c.Verdict)
	}

	fmt.Fprintln(out, strings.Repeat("-", 30))
	fmt.Fprintln(out, "EVALUATION COMPLETE")
	fmt.Fprintf(out, "Total Tests: %d\n", rep.Total)
	fmt.Fprintf(out, "Passed: %d\n", rep.Passed)
	fmt.Fprintf(out, "Baseline Pass Rate: %.1f%%\n", rep.PassRate())
	return rep, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
