package chunk

import (
	"encoding/binary"

	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
)

// Serializer turns complete message payloads into header-compressed RTMP
// chunks. It is not safe for concurrent use; one instance serves one
// session.
type Serializer struct {
	headers      map[uint32]*headerState
	maxChunkSize uint32
}

// NewSerializer returns a Serializer with the protocol-default initial max
// chunk size of 128 bytes.
func NewSerializer() *Serializer {
	return &Serializer{
		headers:      make(map[uint32]*headerState),
		maxChunkSize: 128,
	}
}

// SetSelfMaxChunkSize updates the chunk size this side declares to the peer
// (normally sent as a SetChunkSize control message in tandem).
func (s *Serializer) SetSelfMaxChunkSize(n uint32) {
	s.maxChunkSize = n
}

// assignCSID maps a message type id to a chunk stream lane, so repeated
// messages of the same kind share a csid and benefit from header
// compression. This is one valid assignment among many the protocol
// permits; csid 0 and 1 are wire markers and are never produced.
func assignCSID(typeID uint8) uint32 {
	switch {
	case typeID >= 1 && typeID <= 6:
		return 2 // protocol control
	case typeID == 18 || typeID == 19:
		return 3 // AMF0 data (18, 19)
	case typeID == 9:
		return 4 // video
	case typeID == 8:
		return 5 // audio
	default:
		return 6
	}
}

// Serialize encodes p as one or more chunks, selecting the most compressed
// header format the previous-header cache for its csid allows, unless
// forceUncompressed requests a Full header regardless of cache state.
func (s *Serializer) Serialize(p Payload, forceUncompressed bool) ([]byte, error) {
	if len(p.Data) > MaxMessageLength {
		return nil, cerrors.NewCodecError("chunk.serialize", cerrors.KindMessageTooLong, len(p.Data), nil)
	}

	csid := assignCSID(p.TypeID)
	prev := s.headers[csid]
	abs := p.Timestamp.Value()
	messageLength := uint32(len(p.Data))

	var fmtVal uint8
	var delta uint32
	switch {
	case forceUncompressed || prev == nil:
		fmtVal = 0
	case p.StreamID != prev.StreamID:
		fmtVal = 0
	default:
		delta = abs - prev.Timestamp // wraps naturally as uint32 arithmetic
		switch {
		case p.TypeID != prev.TypeID || messageLength != prev.MessageLength:
			fmtVal = 1
		case delta != prev.Delta:
			fmtVal = 2
		default:
			fmtVal = 3
		}
	}

	tsField := abs
	if fmtVal == 1 || fmtVal == 2 {
		tsField = delta
	}
	extended := tsField >= extendedTimestampMarker
	if fmtVal == 3 && prev != nil {
		extended = prev.HasExtended
		tsField = prev.Timestamp // value re-emitted is whatever the series already committed to
		if prev.HasExtended {
			delta = prev.Delta
		}
	}

	out := encodeBasicHeader(nil, fmtVal, csid)
	out = appendMessageHeaderFields(out, fmtVal, tsField, messageLength, p.TypeID, p.StreamID, extended)
	if extended {
		var ext [4]byte
		binary.BigEndian.PutUint32(ext[:], tsField)
		out = append(out, ext[:]...)
	}

	first := p.Data
	if uint32(len(first)) > s.maxChunkSize {
		first = first[:s.maxChunkSize]
	}
	out = append(out, first...)

	written := uint32(len(first))
	for written < messageLength {
		remain := messageLength - written
		n := remain
		if n > s.maxChunkSize {
			n = s.maxChunkSize
		}
		out = encodeBasicHeader(out, 3, csid)
		if extended {
			var ext [4]byte
			binary.BigEndian.PutUint32(ext[:], tsField)
			out = append(out, ext[:]...)
		}
		out = append(out, p.Data[written:written+n]...)
		written += n
	}

	s.headers[csid] = &headerState{
		Timestamp:     abs,
		Delta:         delta,
		MessageLength: messageLength,
		TypeID:        p.TypeID,
		StreamID:      p.StreamID,
		HasExtended:   extended,
	}
	return out, nil
}

// appendMessageHeaderFields appends the message-header bytes (not the basic
// header, not the extended timestamp) for fmtVal. The 3-byte timestamp/delta
// field is clamped to extendedTimestampMarker when extended is true; the
// real value follows separately as a 4-byte field.
func appendMessageHeaderFields(dst []byte, fmtVal uint8, tsField, messageLength uint32, typeID uint8, streamID uint32, extended bool) []byte {
	field3 := tsField
	if extended {
		field3 = extendedTimestampMarker
	}
	switch fmtVal {
	case 0:
		mh := make([]byte, 11)
		writeUint24(mh[0:3], field3)
		writeUint24(mh[3:6], messageLength)
		mh[6] = typeID
		binary.LittleEndian.PutUint32(mh[7:11], streamID)
		return append(dst, mh...)
	case 1:
		mh := make([]byte, 7)
		writeUint24(mh[0:3], field3)
		writeUint24(mh[3:6], messageLength)
		mh[6] = typeID
		return append(dst, mh...)
	case 2:
		mh := make([]byte, 3)
		writeUint24(mh[0:3], field3)
		return append(dst, mh...)
	default: // fmt3: no message header bytes
		return dst
	}
}
