package chunk

import (
	"encoding/binary"

	"github.com/alxayo/rtmpcodec/internal/bufpool"
	cerrors "github.com/alxayo/rtmpcodec/internal/errors"
	"github.com/alxayo/rtmpcodec/internal/rtmp/timestamp"
)

// phase is the deserializer's resumable state-machine discriminator. Feed
// can return with unconsumed, incomplete input at any phase; the next call
// must resume exactly there rather than restart the chunk.
type phase int

const (
	phaseBasicHeader phase = iota
	// phaseHeaderFields covers the timestamp, message-length, type-id and
	// stream-id fields in one step: for every format they are a single
	// contiguous run of bytes with no useful suspend point in between.
	phaseHeaderFields
	phaseExtendedTimestamp
	phasePayloadBytes
)

// building accumulates the header fields of the chunk currently being
// parsed, phase by phase, until AwaitPayloadBytes can run.
type building struct {
	fmtVal        uint8
	csid          uint32
	rawTimestamp  uint32 // 3-byte wire value: absolute (fmt0) or delta (fmt1/2)
	messageLength uint32
	typeID        uint8
	streamID      uint32
	extended      bool
	extendedValue uint32
}

// pendingMessage is a message in the middle of being reassembled from
// multiple chunks on one csid.
type pendingMessage struct {
	timestamp     uint32
	delta         uint32
	typeID        uint8
	streamID      uint32
	messageLength uint32
	data          []byte
}

// Deserializer turns a byte stream into a sequence of complete Payload
// values. It is not safe for concurrent use; one instance serves one
// session (peer connection).
type Deserializer struct {
	headers      map[uint32]*headerState
	pending      map[uint32]*pendingMessage
	maxChunkSize uint32
	buf          []byte
	phase        phase
	b            building
}

// NewDeserializer returns a Deserializer with the protocol-default initial
// max chunk size of 128 bytes.
func NewDeserializer() *Deserializer {
	return &Deserializer{
		headers:      make(map[uint32]*headerState),
		pending:      make(map[uint32]*pendingMessage),
		maxChunkSize: 128,
	}
}

// SetPeerMaxChunkSize updates the chunk size the peer declared via a
// SetChunkSize control message. The codec honors whatever value is given;
// range validation is the caller's responsibility.
func (d *Deserializer) SetPeerMaxChunkSize(n uint32) {
	d.maxChunkSize = n
}

// Abort discards any partially-reassembled message on csid, as requested by
// a peer Abort control message. Header state for the csid is kept: the next
// chunk on that lane may still use a compressed format.
func (d *Deserializer) Abort(csid uint32) {
	pend, ok := d.pending[csid]
	if !ok {
		return
	}
	bufpool.Put(pend.data)
	delete(d.pending, csid)
}

// Feed consumes newly-arrived bytes and returns every MessagePayload that
// became complete as a result. feed(A) then feed(B) always yields the same
// payloads, in the same order, as feed(A++B): unconsumed bytes and the
// current phase persist across calls.
func (d *Deserializer) Feed(data []byte) ([]Payload, error) {
	if len(data) > 0 {
		d.buf = append(d.buf, data...)
	}
	var out []Payload
	for {
		switch d.phase {
		case phaseBasicHeader:
			fmtVal, csid, n, ok := peekBasicHeader(d.buf)
			if !ok {
				return out, nil
			}
			d.buf = d.buf[n:]
			d.b = building{fmtVal: fmtVal, csid: csid}
			d.phase = phaseHeaderFields

		case phaseHeaderFields:
			ok, err := d.readHeaderFields()
			if err != nil {
				return out, err
			}
			if !ok {
				return out, nil
			}
			d.phase = phaseExtendedTimestamp

		case phaseExtendedTimestamp:
			ok, err := d.readExtendedTimestamp()
			if err != nil {
				return out, err
			}
			if !ok {
				return out, nil
			}
			d.phase = phasePayloadBytes

		case phasePayloadBytes:
			payload, consumed, err := d.readPayload()
			if err != nil {
				return out, err
			}
			if !consumed {
				return out, nil
			}
			if payload != nil {
				out = append(out, *payload)
			}
			d.phase = phaseBasicHeader
		}
	}
}

// readHeaderFields reads the message-header bytes for the current format
// (possibly zero bytes for Empty/fmt3, which inherits everything) and
// resolves the fields that non-Full formats omit from the csid's cache.
func (d *Deserializer) readHeaderFields() (bool, error) {
	switch d.b.fmtVal {
	case 0: // Full: 11 bytes
		if len(d.buf) < 11 {
			return false, nil
		}
		mh := d.buf[:11]
		d.buf = d.buf[11:]
		d.b.rawTimestamp = readUint24(mh[0:3])
		d.b.messageLength = readUint24(mh[3:6])
		d.b.typeID = mh[6]
		d.b.streamID = binary.LittleEndian.Uint32(mh[7:11])
		return true, nil

	case 1: // TimeDeltaWithLengthType: 7 bytes, inherits stream id
		prev, ok := d.headers[d.b.csid]
		if !ok {
			return false, cerrors.NewCodecError("chunk.deserialize", cerrors.KindNoPreviousChunkOnStream, d.b.csid, nil)
		}
		if len(d.buf) < 7 {
			return false, nil
		}
		mh := d.buf[:7]
		d.buf = d.buf[7:]
		d.b.rawTimestamp = readUint24(mh[0:3])
		d.b.messageLength = readUint24(mh[3:6])
		d.b.typeID = mh[6]
		d.b.streamID = prev.StreamID
		return true, nil

	case 2: // TimeDeltaOnly: 3 bytes, inherits length/type/stream id
		prev, ok := d.headers[d.b.csid]
		if !ok {
			return false, cerrors.NewCodecError("chunk.deserialize", cerrors.KindNoPreviousChunkOnStream, d.b.csid, nil)
		}
		if len(d.buf) < 3 {
			return false, nil
		}
		mh := d.buf[:3]
		d.buf = d.buf[3:]
		d.b.rawTimestamp = readUint24(mh)
		d.b.messageLength = prev.MessageLength
		d.b.typeID = prev.TypeID
		d.b.streamID = prev.StreamID
		return true, nil

	default: // Empty (fmt3): no header bytes, inherits everything
		prev, ok := d.headers[d.b.csid]
		if !ok {
			return false, cerrors.NewCodecError("chunk.deserialize", cerrors.KindNoPreviousChunkOnStream, d.b.csid, nil)
		}
		d.b.messageLength = prev.MessageLength
		d.b.typeID = prev.TypeID
		d.b.streamID = prev.StreamID
		return true, nil
	}
}

// readExtendedTimestamp reads the 4-byte extended timestamp when the wire
// value read in readHeaderFields was exactly 0xFFFFFF (fmt0/1/2), or, for
// fmt3, when the previous header on this csid itself used one.
func (d *Deserializer) readExtendedTimestamp() (bool, error) {
	switch d.b.fmtVal {
	case 0, 1, 2:
		if d.b.rawTimestamp != extendedTimestampMarker {
			return true, nil
		}
	default: // fmt3
		prev := d.headers[d.b.csid] // present: readHeaderFields already required it
		if !prev.HasExtended {
			return true, nil
		}
	}
	if len(d.buf) < 4 {
		return false, nil
	}
	d.b.extended = true
	d.b.extendedValue = binary.BigEndian.Uint32(d.buf[:4])
	d.buf = d.buf[4:]
	return true, nil
}

// readPayload consumes min(remaining-of-message, max_chunk_size) bytes and
// either completes a message (returning it) or leaves it pending for the
// next chunk on this csid. consumed is false only when not enough bytes
// have arrived yet to satisfy this chunk's slice.
func (d *Deserializer) readPayload() (payload *Payload, consumed bool, err error) {
	pend := d.pending[d.b.csid]
	var remaining uint32
	if pend == nil {
		remaining = d.b.messageLength
	} else {
		remaining = pend.messageLength - uint32(len(pend.data))
	}
	toRead := remaining
	if toRead > d.maxChunkSize {
		toRead = d.maxChunkSize
	}
	if uint32(len(d.buf)) < toRead {
		return nil, false, nil
	}
	chunkData := d.buf[:toRead]
	d.buf = d.buf[toRead:]

	if pend == nil {
		abs, delta := d.resolveTimestamp()
		pend = &pendingMessage{
			timestamp:     abs,
			delta:         delta,
			typeID:        d.b.typeID,
			streamID:      d.b.streamID,
			messageLength: d.b.messageLength,
			data:          bufpool.Get(int(d.b.messageLength)),
		}
		d.pending[d.b.csid] = pend
		d.headers[d.b.csid] = &headerState{
			Timestamp:     abs,
			Delta:         delta,
			MessageLength: d.b.messageLength,
			TypeID:        d.b.typeID,
			StreamID:      d.b.streamID,
			HasExtended:   d.b.extended,
		}
	}
	pend.data = append(pend.data, chunkData...)

	if uint32(len(pend.data)) >= pend.messageLength {
		out := Payload{
			Timestamp: timestamp.New(pend.timestamp),
			TypeID:    pend.typeID,
			StreamID:  pend.streamID,
			Data:      pend.data,
		}
		delete(d.pending, d.b.csid)
		return &out, true, nil
	}
	return nil, true, nil
}

// resolveTimestamp computes the absolute timestamp and delta for the chunk
// currently being parsed, per the format-specific delta semantics in the
// chunk deserializer's design.
func (d *Deserializer) resolveTimestamp() (abs uint32, delta uint32) {
	switch d.b.fmtVal {
	case 0: // Full: absolute, no delta established yet
		v := d.b.rawTimestamp
		if d.b.extended {
			v = d.b.extendedValue
		}
		return v, 0
	case 1, 2:
		prev := d.headers[d.b.csid]
		var prevAbs uint32
		if prev != nil {
			prevAbs = prev.Timestamp
		}
		dv := d.b.rawTimestamp
		if d.b.extended {
			dv = d.b.extendedValue
		}
		return prevAbs + dv, dv
	default: // fmt3: reuse the last delta
		prev := d.headers[d.b.csid]
		return prev.Timestamp + prev.Delta, prev.Delta
	}
}
