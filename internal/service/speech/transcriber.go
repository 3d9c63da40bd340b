package speech

import (
	"bytes"
	"compress/gzip"
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
	asrEndpoint   = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel"
	asrResourceID = "volc.bigasr.sauc.duration"
	asrChunkSize  = 32000
)

// Transcriber converts recorded audio into text using the volcengine
// streaming recognition service.
type Transcriber struct {
	cfg config.SpeechConfig
}

func NewTranscriber(cfg config.SpeechConfig) *Transcriber {
	return &Transcriber{cfg: cfg}
}

type asrRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	Audio struct {
		Format   string `json:"format"`
		Codec    string `json:"codec"`
		Rate     int    `json:"rate"`
		Bits     int    `json:"bits"`
		Channel  int    `json:"channel"`
		Language string `json:"language,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName  string `json:"model_name"`
		EnablePunc bool   `json:"enable_punc"`
	} `json:"request"`
}

type asrResponse struct {
	Result struct {
		Text string `json:"text"`
	} `json:"result"`
}

// Transcribe reads the audio file at audioRef and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if t.cfg.AppID == "" || t.cfg.AccessToken == "" {
		return "", fmt.Errorf("speech credentials are not configured")
	}

	audio, err := os.ReadFile(audioRef)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("audio file is empty: %s", audioRef)
	}

	headers := http.Header{}
	headers.Set("X-Api-App-Key", t.cfg.AppID)
	headers.Set("X-Api-Access-Key", t.cfg.AccessToken)
	headers.Set("X-Api-Resource-Id", asrResourceID)
	headers.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, asrEndpoint, headers)
	if err != nil {
		return "", fmt.Errorf("failed to connect to recognition service: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		log.Printf("[speech] asr connected, logid: %s", resp.Header.Get("X-Tt-Logid"))
	}

	if err := t.sendConfig(conn); err != nil {
		return "", err
	}
	if err := t.sendAudio(conn, audio); err != nil {
		return "", err
	}

	return t.collectText(ctx, conn)
}

func (t *Transcriber) sendConfig(conn *websocket.Conn) error {
	var req asrRequest
	req.User.UID = uuid.NewString()
	req.Audio.Format = "wav"
	req.Audio.Codec = "raw"
	req.Audio.Rate = 16000
	req.Audio.Bits = 16
	req.Audio.Channel = 1
	req.Audio.Language = t.cfg.ASRLanguage
	req.Request.ModelName = "bigmodel"
	req.Request.EnablePunc = true

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal recognition config: %w", err)
	}

	compressed, err := gzipCompress(payload)
	if err != nil {
		return err
	}

	msg := &message{
		header:   newHeader(fullClientRequest, positiveSequenceNumber, jsonSerialization, gzipCompression),
		sequence: 1,
		payload:  compressed,
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeMessage(msg)); err != nil {
		return fmt.Errorf("failed to send recognition config: %w", err)
	}
	return nil
}

func (t *Transcriber) sendAudio(conn *websocket.Conn, audio []byte) error {
	seq := int32(1)
	for offset := 0; offset < len(audio); offset += asrChunkSize {
		end := offset + asrChunkSize
		last := false
		if end >= len(audio) {
			end = len(audio)
			last = true
		}

		seq++
		compressed, err := gzipCompress(audio[offset:end])
		if err != nil {
			return err
		}

		msg := &message{
			header:   newHeader(audioOnlyRequest, positiveSequenceNumber, noSerialization, gzipCompression),
			sequence: seq,
			payload:  compressed,
		}
		if last {
			msg.header.flags = negativeSequenceNumber
			msg.sequence = -seq
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeMessage(msg)); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
	}
	return nil
}

func (t *Transcriber) collectText(ctx context.Context, conn *websocket.Conn) (string, error) {
	var text string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("failed to read recognition response: %w", err)
		}

		msg, err := decodeMessage(bytes.NewReader(data))
		if err != nil {
			return "", err
		}

		switch msg.header.msgType {
		case fullServerResponse:
			payload, err := decompressPayload(msg.payload, msg.header.compression)
			if err != nil {
				return "", err
			}
			var resp asrResponse
			if err := json.Unmarshal(payload, &resp); err != nil {
				return "", fmt.Errorf("failed to decode recognition result: %w", err)
			}
			if resp.Result.Text != "" {
				text = resp.Result.Text
			}
			if msg.isLastPacket() {
				return text, nil
			}
		case errorMessage:
			payload, _ := decompressPayload(msg.payload, msg.header.compression)
			return "", fmt.Errorf("recognition service error %d: %s", msg.errorCode, payload)
		default:
			return "", fmt.Errorf("unexpected recognition message type: %d", msg.header.msgType)
		}
	}
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}
