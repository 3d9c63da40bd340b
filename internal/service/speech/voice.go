package speech

import (
	"context"
	"fmt"
	"log"
)

// SynthesizerProvider converts text into an audio file and returns its path.
type SynthesizerProvider interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// VoiceService generates spoken responses. When the premium provider is
// requested but fails, it falls back to the free provider. A free-tier
// request never escalates to premium.
type VoiceService struct {
	premium SynthesizerProvider
	free    SynthesizerProvider
}

func NewVoiceService(premium, free SynthesizerProvider) *VoiceService {
	return &VoiceService{premium: premium, free: free}
}

// GenerateVoice synthesizes text, returning the path of the produced audio
// file and whether the premium provider produced it.
func (v *VoiceService) GenerateVoice(ctx context.Context, text string, usePremium bool) (string, bool, error) {
	if text == "" {
		return "", false, fmt.Errorf("no text to synthesize")
	}

	if usePremium && v.premium != nil {
		audioRef, err := v.premium.Synthesize(ctx, text)
		if err == nil {
			return audioRef, true, nil
		}
		log.Printf("[speech] premium synthesis failed, falling back to free tier: %v", err)
	}

	if v.free == nil {
		return "", false, fmt.Errorf("no voice provider available")
	}
	audioRef, err := v.free.Synthesize(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("voice generation failed: %w", err)
	}
	return audioRef, false, nil
}
