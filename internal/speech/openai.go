package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures the OpenAI-backed speech services.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	SpeechModel        string
	Voice              string
}

// OpenAISpeech implements Transcriber and Synthesizer using the OpenAI SDK.
type OpenAISpeech struct {
	client             *openai.Client
	transcriptionModel string
	speechModel        string
	voice              string
}

var _ Transcriber = (*OpenAISpeech)(nil)
var _ Synthesizer = (*OpenAISpeech)(nil)

// NewOpenAISpeech creates an OpenAI speech client.
func NewOpenAISpeech(cfg Config) (*OpenAISpeech, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	speechModel := cfg.SpeechModel
	if speechModel == "" {
		speechModel = string(openai.TTSModel1)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	return &OpenAISpeech{
		client:             openai.NewClientWithConfig(config),
		transcriptionModel: transcriptionModel,
		speechModel:        speechModel,
		voice:              voice,
	}, nil
}

// Transcribe sends audio to the transcription endpoint. The filename only
// supplies the container format hint; the audio itself is read from memory.
func (s *OpenAISpeech) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}
	if filename == "" {
		filename = "recording.webm"
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.transcriptionModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Synthesize renders text as MP3 audio.
func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("speech response is empty")
	}
	return data, nil
}
