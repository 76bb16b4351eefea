package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/selfexplain/internal/speech"
)

// Narrator synthesizes tutor speech and stores it for HTTP serving.
type Narrator struct {
	synth     speech.Synthesizer
	store     *Store
	urlPrefix string

	mu sync.Mutex // serializes stable-name generation
}

// NewNarrator creates a narrator. urlPrefix is the public route the stored
// files are served under, e.g. "/uploads".
func NewNarrator(synth speech.Synthesizer, store *Store, urlPrefix string) *Narrator {
	return &Narrator{synth: synth, store: store, urlPrefix: urlPrefix}
}

// FeedbackAudio renders feedback text as speech and returns its URL.
func (n *Narrator) FeedbackAudio(ctx context.Context, sessionID, text string) (string, error) {
	data, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("synthesize feedback: %w", err)
	}

	name, err := n.store.Save("feedback", sessionID, ".mp3", data)
	if err != nil {
		return "", err
	}
	return n.url(name), nil
}

// CachedSpeech returns the URL of a stable speech file, synthesizing it on
// first use. Subsequent calls for the same key serve the stored file.
func (n *Narrator) CachedSpeech(ctx context.Context, key, text string) (string, error) {
	name := Slug(key) + ".mp3"

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.store.Exists(name) {
		return n.url(name), nil
	}

	data, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("synthesize %q: %w", key, err)
	}
	if err := n.store.SaveStable(name, data); err != nil {
		return "", err
	}
	return n.url(name), nil
}

func (n *Narrator) url(name string) string {
	return n.urlPrefix + "/" + name
}
