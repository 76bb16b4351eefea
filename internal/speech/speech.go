// Package speech abstracts the external speech-to-text and text-to-speech
// services used for spoken tutoring turns.
package speech

import (
	"context"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	// Transcribe returns the text spoken in audio. The filename carries the
	// container format hint (e.g. "clip.webm") some backends require.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer renders text as playable audio.
type Synthesizer interface {
	// Synthesize returns MP3 bytes for the given text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
