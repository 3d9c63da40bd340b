package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// protocolVersion is the volcengine speech WebSocket binary protocol version.
const protocolVersion = 0b0001

// messageType occupies the high nibble of the second header byte.
type messageType uint8

const (
	fullClientRequest       messageType = 0b0001
	audioOnlyRequest        messageType = 0b0010
	fullServerResponse      messageType = 0b1001
	audioOnlyServerResponse messageType = 0b1011
	errorMessage            messageType = 0b1111
)

// messageFlags occupy the low nibble of the second header byte.
type messageFlags uint8

const (
	noSequenceNumber       messageFlags = 0b0000
	positiveSequenceNumber messageFlags = 0b0001
	lastPacketNoSequence   messageFlags = 0b0010
	negativeSequenceNumber messageFlags = 0b0011
	withEvent              messageFlags = 0b0100
)

// eventType carries server lifecycle notifications when withEvent is set.
type eventType int32

const (
	eventNone            eventType = 0
	eventSessionStarted  eventType = 150
	eventSessionFinished eventType = 152
	eventSessionFailed   eventType = 153
)

type serializationMethod uint8

const (
	noSerialization   serializationMethod = 0b0000
	jsonSerialization serializationMethod = 0b0001
)

type compressionMethod uint8

const (
	noCompression   compressionMethod = 0b0000
	gzipCompression compressionMethod = 0b0001
)

type header struct {
	version       uint8
	headerSize    uint8
	msgType       messageType
	flags         messageFlags
	serialization serializationMethod
	compression   compressionMethod
}

type message struct {
	header    header
	sequence  int32
	event     eventType
	sessionID string
	errorCode uint32
	payload   []byte
}

func newHeader(msgType messageType, flags messageFlags, serialization serializationMethod, compression compressionMethod) header {
	return header{
		version:       protocolVersion,
		headerSize:    0b0001, // 4-byte header
		msgType:       msgType,
		flags:         flags,
		serialization: serialization,
		compression:   compression,
	}
}

func (h header) encode() []byte {
	return []byte{
		h.version<<4 | h.headerSize,
		uint8(h.msgType)<<4 | uint8(h.flags),
		uint8(h.serialization)<<4 | uint8(h.compression),
		0x00, // reserved
	}
}

func decodeHeader(data []byte) (header, error) {
	if len(data) < 4 {
		return header{}, fmt.Errorf("header data too short: got %d, need 4", len(data))
	}

	h := header{
		version:       data[0] >> 4 & 0x0F,
		headerSize:    data[0] & 0x0F,
		msgType:       messageType(data[1] >> 4 & 0x0F),
		flags:         messageFlags(data[1] & 0x0F),
		serialization: serializationMethod(data[2] >> 4 & 0x0F),
		compression:   compressionMethod(data[2] & 0x0F),
	}

	if h.version != protocolVersion {
		return header{}, fmt.Errorf("unsupported protocol version: %d", h.version)
	}
	return h, nil
}

func encodeMessage(msg *message) []byte {
	buf := bytes.NewBuffer(msg.header.encode())

	switch msg.header.flags & 0b0011 {
	case positiveSequenceNumber, negativeSequenceNumber:
		_ = binary.Write(buf, binary.BigEndian, uint32(msg.sequence))
	}

	_ = binary.Write(buf, binary.BigEndian, uint32(len(msg.payload)))
	buf.Write(msg.payload)
	return buf.Bytes()
}

func decodeMessage(reader io.Reader) (*message, error) {
	headerBytes := make([]byte, 4)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	msg := &message{header: h}

	// Skip any extended header bytes beyond the fixed four.
	if extra := int(h.headerSize)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(extra)); err != nil {
			return nil, fmt.Errorf("failed to read extended header: %w", err)
		}
	}

	switch h.flags & 0b0011 {
	case positiveSequenceNumber, negativeSequenceNumber:
		var seq uint32
		if err := binary.Read(reader, binary.BigEndian, &seq); err != nil {
			return nil, fmt.Errorf("failed to read sequence: %w", err)
		}
		msg.sequence = int32(seq)
	}

	if h.flags&withEvent == withEvent {
		var event int32
		if err := binary.Read(reader, binary.BigEndian, &event); err != nil {
			return nil, fmt.Errorf("failed to read event type: %w", err)
		}
		msg.event = eventType(event)

		var size uint32
		if err := binary.Read(reader, binary.BigEndian, &size); err != nil {
			return nil, fmt.Errorf("failed to read session id size: %w", err)
		}
		if size > 0 {
			session := make([]byte, size)
			if _, err := io.ReadFull(reader, session); err != nil {
				return nil, fmt.Errorf("failed to read session id: %w", err)
			}
			msg.sessionID = string(session)
		}
	}

	if h.msgType == errorMessage {
		if err := binary.Read(reader, binary.BigEndian, &msg.errorCode); err != nil {
			return nil, fmt.Errorf("failed to read error code: %w", err)
		}
	}

	var payloadSize uint32
	if err := binary.Read(reader, binary.BigEndian, &payloadSize); err != nil {
		return nil, fmt.Errorf("failed to read payload size: %w", err)
	}

	if payloadSize > 0 {
		msg.payload = make([]byte, payloadSize)
		if _, err := io.ReadFull(reader, msg.payload); err != nil {
			return nil, fmt.Errorf("failed to read payload (expected %d bytes): %w", payloadSize, err)
		}
	}

	return msg, nil
}

func (m *message) isLastPacket() bool {
	switch m.header.flags & 0b0011 {
	case lastPacketNoSequence, negativeSequenceNumber:
		return true
	default:
		return false
	}
}

func decompressPayload(data []byte, method compressionMethod) ([]byte, error) {
	switch method {
	case noCompression:
		return data, nil
	case gzipCompression:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader creation failed: %w", err)
		}
		defer reader.Close()

		out, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip read failed: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", method)
	}
}
