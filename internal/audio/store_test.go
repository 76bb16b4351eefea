package audio

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveGeneratesPrefixedName(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("feedback", "sess-1", ".mp3", []byte("mp3data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(name, "feedback_sess_1_") || !strings.HasSuffix(name, ".mp3") {
		t.Errorf("unexpected filename %q", name)
	}

	p, err := store.Path(name)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "mp3data" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"../secret.mp3", "a/b.mp3", `a\b.mp3`, "..", "", "."} {
		if _, err := store.Path(name); err == nil {
			t.Errorf("Path(%q) should fail", name)
		}
		if store.Exists(name) {
			t.Errorf("Exists(%q) should be false", name)
		}
	}
}

func TestPathMissingFile(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Path("missing.mp3"); err == nil {
		t.Error("Path should fail for a missing file")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Measures of Central Tendency", "measures_of_central_tendency"},
		{"  Univariate Analysis  ", "univariate_analysis"},
		{"intro", "intro"},
		{"???", "audio"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type stubSynth struct {
	data  []byte
	err   error
	calls int
}

func (s *stubSynth) Synthesize(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

func TestCachedSpeechSynthesizesOnce(t *testing.T) {
	store := newTestStore(t)
	synth := &stubSynth{data: []byte("mp3")}
	narrator := NewNarrator(synth, store, "/uploads")

	url1, err := narrator.CachedSpeech(context.Background(), "Univariate Analysis", "intro text")
	if err != nil {
		t.Fatalf("CachedSpeech: %v", err)
	}
	url2, err := narrator.CachedSpeech(context.Background(), "Univariate Analysis", "intro text")
	if err != nil {
		t.Fatalf("CachedSpeech (cached): %v", err)
	}

	if url1 != "/uploads/univariate_analysis.mp3" || url1 != url2 {
		t.Errorf("unexpected urls %q, %q", url1, url2)
	}
	if synth.calls != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.calls)
	}
}

func TestFeedbackAudioPropagatesSynthesisFailure(t *testing.T) {
	store := newTestStore(t)
	synth := &stubSynth{err: errors.New("tts down")}
	narrator := NewNarrator(synth, store, "/uploads")

	if _, err := narrator.FeedbackAudio(context.Background(), "sess-1", "well done"); err == nil {
		t.Error("expected synthesis error")
	}
}
