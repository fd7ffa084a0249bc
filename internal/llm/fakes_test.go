package llm_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rpggio/captime/internal/llm"
)

// scriptedProvider returns responses in order, repeating the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	model     string
	responses []scripted
	calls     int
}

type scripted struct {
	text string
	err  error
}

func newProvider(model string, responses ...scripted) *scriptedProvider {
	return &scriptedProvider{model: model, responses: responses}
}

func (p *scriptedProvider) Model() string { return p.model }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string, maxTokens int) (llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	r := p.responses[idx]
	if r.err != nil {
		return llm.Completion{}, r.err
	}
	return llm.Completion{Text: r.text, InputTokens: 10, OutputTokens: 5}, nil
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memoryEventStore struct {
	mu        sync.Mutex
	events    []llm.Event
	recordErr error
}

func (s *memoryEventStore) Record(ctx context.Context, ev *llm.Event) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *memoryEventStore) RecentTerminal(ctx context.Context, promptType string, limit int) ([]llm.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []llm.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := s.events[i]
		if ev.PromptType == promptType && ev.Terminal() && ev.AttemptedPrimary() {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memoryEventStore) count(t llm.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.EventType == t {
			n++
		}
	}
	return n
}

func (s *memoryEventStore) seed(t llm.EventType, promptType string, at time.Time, n int) {
	for i := 0; i < n; i++ {
		s.events = append(s.events, llm.Event{EventType: t, PromptType: promptType, CreatedAt: at})
	}
}

var errDown = errors.New("connection refused")

func noSleep(context.Context, time.Duration) error { return nil }
