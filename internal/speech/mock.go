package speech

import (
	"context"
	"sync"
)

// MockResult is a canned transcription result for the MockTranscriber.
type MockResult struct {
	Text string
	Err  error
}

// MockTranscriber is a deterministic Transcriber for testing. It returns
// canned results in FIFO order and records all calls.
type MockTranscriber struct {
	mu      sync.Mutex
	results []MockResult
	Calls   int
}

var _ Transcriber = (*MockTranscriber)(nil)

// NewMockTranscriber creates a MockTranscriber with the given canned results.
// Once the queue is empty the last result repeats.
func NewMockTranscriber(results ...MockResult) *MockTranscriber {
	return &MockTranscriber{results: results}
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++

	var r MockResult
	if len(m.results) > 0 {
		r = m.results[0]
		if len(m.results) > 1 {
			m.results = m.results[1:]
		}
	}
	return r.Text, r.Err
}

// MockSynthesizer is a deterministic Synthesizer for testing.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Texts []string
}

var _ Synthesizer = (*MockSynthesizer)(nil)

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}
