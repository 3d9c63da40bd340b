package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/safespace/safespace-agent/internal/config"
)

const (
	ttsEndpoint   = "wss://openspeech.bytedance.com/api/v3/tts/bidirection"
	ttsResourceID = "volc.service_type.10029"
)

// Synthesizer produces speech audio from text using the volcengine
// bidirectional TTS service. It is the premium voice provider.
type Synthesizer struct {
	cfg config.SpeechConfig
}

func NewSynthesizer(cfg config.SpeechConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize converts text to speech and writes the audio to a temporary
// mp3 file, returning its path.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	if s.cfg.AppID == "" || s.cfg.AccessToken == "" {
		return "", fmt.Errorf("speech credentials are not configured")
	}
	if text == "" {
		return "", fmt.Errorf("no text to synthesize")
	}

	headers := http.Header{}
	headers.Set("X-Api-App-Key", s.cfg.AppID)
	headers.Set("X-Api-Access-Key", s.cfg.AccessToken)
	headers.Set("X-Api-Resource-Id", ttsResourceID)
	headers.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, ttsEndpoint, headers)
	if err != nil {
		return "", fmt.Errorf("failed to connect to synthesis service: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		log.Printf("[speech] tts connected, logid: %s", resp.Header.Get("X-Tt-Logid"))
	}

	sessionID := uuid.NewString()
	if err := s.startSession(conn, sessionID, text); err != nil {
		return "", err
	}

	audio, err := s.collectAudio(ctx, conn)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("synthesis service returned no audio")
	}

	file, err := os.CreateTemp("", "safespace_tts_*.mp3")
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(audio); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return file.Name(), nil
}

func (s *Synthesizer) startSession(conn *websocket.Conn, sessionID, text string) error {
	params := map[string]any{
		"event":     100, // StartSession
		"namespace": "BidirectionalTTS",
		"req_params": map[string]any{
			"speaker": s.cfg.TTSVoice,
			"text":    text,
			"audio_params": map[string]any{
				"format":      "mp3",
				"sample_rate": 24000,
			},
			"additions": fmt.Sprintf(`{"language":%q}`, s.cfg.TTSLanguage),
		},
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	msg := &message{
		header:    newHeader(fullClientRequest, withEvent, jsonSerialization, noCompression),
		sessionID: sessionID,
		payload:   payload,
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeSessionMessage(msg)); err != nil {
		return fmt.Errorf("failed to start synthesis session: %w", err)
	}
	return nil
}

// encodeSessionMessage encodes a message that carries an event type and a
// session identifier before the payload.
func encodeSessionMessage(msg *message) []byte {
	buf := bytes.NewBuffer(msg.header.encode())

	event := int32(100)
	if msg.event != eventNone {
		event = int32(msg.event)
	}
	buf.Write([]byte{byte(event >> 24), byte(event >> 16), byte(event >> 8), byte(event)})

	session := []byte(msg.sessionID)
	size := uint32(len(session))
	buf.Write([]byte{byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)})
	buf.Write(session)

	plen := uint32(len(msg.payload))
	buf.Write([]byte{byte(plen >> 24), byte(plen >> 16), byte(plen >> 8), byte(plen)})
	buf.Write(msg.payload)
	return buf.Bytes()
}

func (s *Synthesizer) collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read synthesis response: %w", err)
		}

		msg, err := decodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

		switch msg.header.msgType {
		case audioOnlyServerResponse:
			audio = append(audio, msg.payload...)
		case fullServerResponse:
			switch msg.event {
			case eventSessionFinished:
				return audio, nil
			case eventSessionFailed:
				return nil, fmt.Errorf("synthesis session failed: %s", msg.payload)
			}
		case errorMessage:
			return nil, fmt.Errorf("synthesis service error %d: %s", msg.errorCode, msg.payload)
		}
	}
}
