// Package chunk implements the RTMP chunk stream: a stateful, incremental
// framer that reassembles arbitrary byte fragments into complete message
// payloads (Deserializer), and the inverse transform that fragments payloads
// into header-compressed chunks (Serializer).
package chunk

import "github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"

// Payload is the unit exchanged between the chunk layer and the message
// layer: a complete, reassembled RTMP message before type-specific decoding.
type Payload struct {
	Timestamp timestamp.Timestamp
	TypeID    uint8
	StreamID  uint32
	Data      []byte
}

// MaxMessageLength is the largest payload size the 3-byte message-length
// field can carry (2^24 - 1 bytes).
const MaxMessageLength = 1<<24 - 1

// extendedTimestampMarker is the 3-byte wire value that signals a 4-byte
// extended timestamp follows the message header.
const extendedTimestampMarker uint32 = 0xFFFFFF

// headerState is the previous-header cache entry kept per csid, used to
// resolve the fields that non-Full chunk formats omit.
type headerState struct {
	Timestamp     uint32 // absolute
	Delta         uint32 // delta from the header before this one
	MessageLength uint32
	TypeID        uint8
	StreamID      uint32
	HasExtended   bool
}

func readUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func writeUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// peekBasicHeader inspects buf for a complete basic header (1-3 bytes)
// without mutating it. ok is false when buf does not yet hold enough bytes
// to know the full basic header length.
func peekBasicHeader(buf []byte) (fmtVal uint8, csid uint32, n int, ok bool) {
	if len(buf) < 1 {
		return 0, 0, 0, false
	}
	fmtVal = buf[0] >> 6
	raw := buf[0] & 0x3F
	switch raw {
	case 0: // 2-byte form: csid in [64, 319]
		if len(buf) < 2 {
			return 0, 0, 0, false
		}
		return fmtVal, uint32(buf[1]) + 64, 2, true
	case 1: // 3-byte form: csid in [320, 65599]
		if len(buf) < 3 {
			return 0, 0, 0, false
		}
		return fmtVal, uint32(buf[1]) + 64 + uint32(buf[2])<<8, 3, true
	default: // 1-byte form: csid in [2, 63]
		return fmtVal, uint32(raw), 1, true
	}
}

// encodeBasicHeader appends the 1-3 byte basic header for fmtVal/csid to dst.
func encodeBasicHeader(dst []byte, fmtVal uint8, csid uint32) []byte {
	switch {
	case csid >= 2 && csid <= 63:
		return append(dst, fmtVal<<6|byte(csid))
	case csid >= 64 && csid <= 319:
		return append(dst, fmtVal<<6, byte(csid-64))
	default: // csid in [320, 65599]
		v := csid - 64
		return append(dst, fmtVal<<6|1, byte(v&0xFF), byte(v>>8))
	}
}
