package agent

import (
	"context"
	"sync"
)

// fakeGenerator replays scripted responses and records every request.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []*GenerateResponse
	errs      []error
	requests  []GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return &GenerateResponse{}, nil
}

func (f *fakeGenerator) calls() []GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]GenerateRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

type fakeFacts struct {
	mu     sync.Mutex
	topics []string
	text   string
}

func (f *fakeFacts) Lookup(topic string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.text
}
