package googletts

import (
	"context"
	"encoding/base64"
	"fmt"

	texttospeech "google.golang.org/api/texttospeech/v1"
)

const (
	voiceMale   = "en-US-Wavenet-D"
	voiceFemale = "en-US-Wavenet-F"
	sampleRate  = 44100
)

// Synthesizer turns SSML batches into LINEAR16 WAV bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml, voiceGender string) ([]byte, error)
}

// GoogleSynthesizer calls the Cloud Text-to-Speech REST API using application
// default credentials.
type GoogleSynthesizer struct {
	svc *texttospeech.Service
}

func NewGoogleSynthesizer(ctx context.Context) (*GoogleSynthesizer, error) {
	svc, err := texttospeech.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create tts service: %w", err)
	}
	return &GoogleSynthesizer{svc: svc}, nil
}

// Synthesize renders one SSML batch. voiceGender selects between the two
// fixed narration voices; anything but "male" means the female voice.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, ssml, voiceGender string) ([]byte, error) {
	voice := voiceFemale
	if voiceGender == "male" {
		voice = voiceMale
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Ssml: ssml},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: sampleRate,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}
