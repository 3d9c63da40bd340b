package speech

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubSynthesizer struct {
	audioRef string
	err      error
	calls    int
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.audioRef, nil
}

func TestGenerateVoicePremium(t *testing.T) {
	premium := &stubSynthesizer{audioRef: "/tmp/premium.mp3"}
	free := &stubSynthesizer{audioRef: "/tmp/free.mp3"}
	svc := NewVoiceService(premium, free)

	audioRef, usedPremium, err := svc.GenerateVoice(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("GenerateVoice failed: %v", err)
	}
	if !usedPremium {
		t.Error("expected premium provider to be used")
	}
	if audioRef != "/tmp/premium.mp3" {
		t.Errorf("unexpected audio ref: %s", audioRef)
	}
	if free.calls != 0 {
		t.Error("free provider should not be called when premium succeeds")
	}
}

func TestGenerateVoiceFallsBackToFree(t *testing.T) {
	premium := &stubSynthesizer{err: errors.New("quota exceeded")}
	free := &stubSynthesizer{audioRef: "/tmp/free.mp3"}
	svc := NewVoiceService(premium, free)

	audioRef, usedPremium, err := svc.GenerateVoice(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("GenerateVoice failed: %v", err)
	}
	if usedPremium {
		t.Error("expected fallback to free provider")
	}
	if audioRef != "/tmp/free.mp3" {
		t.Errorf("unexpected audio ref: %s", audioRef)
	}
}

func TestGenerateVoiceFreeNeverEscalates(t *testing.T) {
	premium := &stubSynthesizer{audioRef: "/tmp/premium.mp3"}
	free := &stubSynthesizer{err: errors.New("service unavailable")}
	svc := NewVoiceService(premium, free)

	_, _, err := svc.GenerateVoice(context.Background(), "hello", false)
	if err == nil {
		t.Fatal("expected error when free provider fails")
	}
	if premium.calls != 0 {
		t.Error("free-tier request must not escalate to premium")
	}
}

func TestGenerateVoiceEmptyText(t *testing.T) {
	svc := NewVoiceService(&stubSynthesizer{}, &stubSynthesizer{})
	if _, _, err := svc.GenerateVoice(context.Background(), "", true); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestGenerateVoiceBothFail(t *testing.T) {
	premium := &stubSynthesizer{err: errors.New("down")}
	free := &stubSynthesizer{err: errors.New("also down")}
	svc := NewVoiceService(premium, free)

	_, _, err := svc.GenerateVoice(context.Background(), "hello", true)
	if err == nil {
		t.Fatal("expected error when both providers fail")
	}
}

func TestSplitChunks(t *testing.T) {
	text := strings.Repeat("word ", 100)
	chunks := splitChunks(text, 200)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 200 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(chunk))
		}
	}
	if got := strings.Join(chunks, " "); got != strings.TrimSpace(text) {
		t.Error("chunks do not reassemble to original text")
	}
}

func TestProtocolHeaderRoundTrip(t *testing.T) {
	h := newHeader(fullClientRequest, positiveSequenceNumber, jsonSerialization, gzipCompression)
	decoded, err := decodeHeader(h.encode())
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}
	if decoded != h {
		t.Errorf("header mismatch: got %+v, want %+v", decoded, h)
	}
}

func TestDecompressGzip(t *testing.T) {
	compressed, err := gzipCompress([]byte("hello world"))
	if err != nil {
		t.Fatalf("gzipCompress failed: %v", err)
	}
	out, err := decompressPayload(compressed, gzipCompression)
	if err != nil {
		t.Fatalf("decompressPayload failed: %v", err)
	}
	if string(out) != "hello world" {
		t.Errorf("unexpected payload: %s", out)
	}
}
